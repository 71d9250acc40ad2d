package store

import "time"

// DocumentRecord is the metadata row for one decision document. The markdown
// body itself lives in the blob store at FilePath; ContentChecksum and
// ContentSize describe what should be there.
type DocumentRecord struct {
	ID              string
	CycleID         string
	UserID          string
	FilePath        string
	ContentChecksum string
	ContentSize     int64
	Version         int
	SyncSource      string
	LastSyncedAt    time.Time
	ParentID        string
	BranchPoint     string
	BranchLabel     string
	SearchText      string
	Title           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	UpdatedBy       string
}

// VersionHistoryEntry is one audit row, appended on every successful write.
type VersionHistoryEntry struct {
	ID         int64
	DocumentID string
	Version    int
	Checksum   string
	SyncSource string
	UpdatedBy  string
	CreatedAt  time.Time
}

// DocumentTreeNode is one row of a branch lineage query, root first.
type DocumentTreeNode struct {
	ID          string
	ParentID    string
	BranchPoint string
	BranchLabel string
	Title       string
	Depth       int
}
