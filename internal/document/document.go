package document

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// DecisionDocument is the aggregate root for one decision document. Every
// content mutation bumps the version by exactly one and updates the sync
// fields as a unit.
type DecisionDocument struct {
	ID      string
	CycleID string
	UserID  string

	Content     MarkdownContent
	StoragePath string

	Version      Version
	SyncSource   SyncSource
	LastSyncedAt time.Time

	// Branch lineage. ParentID and BranchPoint are set together or not at all.
	ParentID    string
	BranchPoint Component
	BranchLabel string

	CreatedAt time.Time
	UpdatedAt time.Time
	UpdatedBy Actor
}

// StoragePath computes the relative blob path for a document. It is a pure
// function of the owning user and document identity, computed once at
// creation and persisted verbatim afterwards.
func StoragePath(userID, documentID string) string {
	return path.Join("users", userID, "documents", documentID+".md")
}

// New creates a root document at version 1.
func New(id, cycleID, userID string, content MarkdownContent, now time.Time) (*DecisionDocument, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(cycleID) == "" || strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: document requires id, cycle id, and user id", ErrInvalidFormat)
	}
	return &DecisionDocument{
		ID:           id,
		CycleID:      cycleID,
		UserID:       userID,
		Content:      content,
		StoragePath:  StoragePath(userID, id),
		Version:      FirstVersion,
		SyncSource:   SourceInitial,
		LastSyncedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
		UpdatedBy:    ActorSystem(),
	}, nil
}

// NewBranch creates a document forked from parent at the given component.
func NewBranch(id, cycleID string, parent *DecisionDocument, branchPoint Component, label string, content MarkdownContent, now time.Time) (*DecisionDocument, error) {
	if parent == nil {
		return nil, fmt.Errorf("%w: branch requires a parent document", ErrInvalidFormat)
	}
	if !branchPoint.Valid() {
		return nil, fmt.Errorf("%w: branch point %q", ErrInvalidFormat, branchPoint)
	}
	doc, err := New(id, cycleID, parent.UserID, content, now)
	if err != nil {
		return nil, err
	}
	doc.ParentID = parent.ID
	doc.BranchPoint = branchPoint
	doc.BranchLabel = label
	return doc, nil
}

// Validate checks aggregate invariants that persistence cannot express.
func (d *DecisionDocument) Validate() error {
	if !d.Version.Valid() {
		return fmt.Errorf("%w: version %d", ErrInvalidFormat, d.Version)
	}
	if (d.ParentID == "") != (d.BranchPoint == "") {
		return fmt.Errorf("%w: branch parent and branch point must be set together", ErrInvalidFormat)
	}
	if d.BranchPoint != "" && !d.BranchPoint.Valid() {
		return fmt.Errorf("%w: branch point %q", ErrInvalidFormat, d.BranchPoint)
	}
	return nil
}

func (d *DecisionDocument) IsBranch() bool { return d.ParentID != "" }

// touch applies a content mutation: version, content, sync fields, and the
// update stamp move together, never partially.
func (d *DecisionDocument) touch(content MarkdownContent, source SyncSource, actor Actor, now time.Time) {
	d.Content = content
	d.Version = d.Version.Next()
	d.SyncSource = source
	d.LastSyncedAt = now
	d.UpdatedAt = now
	d.UpdatedBy = actor
}

// RegenerateFromComponents records a system regeneration from structured
// component state. Returns false without mutating when content is unchanged.
func (d *DecisionDocument) RegenerateFromComponents(markdown string, now time.Time) bool {
	if !d.Content.HasChanged(markdown) {
		return false
	}
	d.touch(d.Content.Update(markdown), SourceComponentUpdate, ActorSystem(), now)
	return true
}

// ApplyAgentEdit records an AI-agent rewrite of the markdown.
func (d *DecisionDocument) ApplyAgentEdit(markdown string, now time.Time) bool {
	if !d.Content.HasChanged(markdown) {
		return false
	}
	d.touch(d.Content.Update(markdown), SourceComponentUpdate, ActorAgent(), now)
	return true
}

// ApplyUserEdit records a user edit without a version check. The acting user
// is unknown on this path, so provenance falls back to the system actor.
func (d *DecisionDocument) ApplyUserEdit(markdown string, now time.Time) {
	d.touch(d.Content.Update(markdown), SourceUserEdit, ActorSystem(), now)
}

// ApplyCheckedUserEdit records a user edit guarded by an expected version.
// This is the only transition that can fail.
func (d *DecisionDocument) ApplyCheckedUserEdit(markdown string, expected Version, userID string, now time.Time) error {
	if expected != d.Version {
		return fmt.Errorf("%w: expected version %d, have %d", ErrVersionConflict, expected, d.Version)
	}
	actor, err := ActorUser(userID)
	if err != nil {
		return err
	}
	d.touch(d.Content.Update(markdown), SourceUserEdit, actor, now)
	return nil
}

// SyncFromFile reconciles externally modified file content. A checksum match
// is a complete no-op, which keeps filesystem polling idempotent. The actor
// is left unchanged: the external editor is unknown.
func (d *DecisionDocument) SyncFromFile(fileContent string, now time.Time) bool {
	if !d.Content.HasChanged(fileContent) {
		return false
	}
	d.touch(d.Content.Update(fileContent), SourceFileSync, d.UpdatedBy, now)
	return true
}
