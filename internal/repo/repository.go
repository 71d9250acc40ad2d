// Package repo coordinates the dual-storage persistence of decision
// documents: Postgres rows for metadata, a blob store for markdown bodies.
// Writes are file-first; the database row is only ever updated after the
// bytes it describes are durably stored.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"choicesherpa/api/internal/blob"
	"choicesherpa/api/internal/cache"
	"choicesherpa/api/internal/document"
	"choicesherpa/api/internal/markdown"
	"choicesherpa/api/internal/search"
	"choicesherpa/api/internal/store"
)

// metadataStore is the slice of the Postgres layer the repository needs.
type metadataStore interface {
	InsertDocument(ctx context.Context, rec store.DocumentRecord) error
	UpdateDocumentVersioned(ctx context.Context, rec store.DocumentRecord, expectedVersion int) (bool, error)
	GetDocument(ctx context.Context, id string) (store.DocumentRecord, error)
	GetDocumentByCycle(ctx context.Context, cycleID string) (store.DocumentRecord, error)
	GetDocumentByPath(ctx context.Context, filePath string) (store.DocumentRecord, error)
	DocumentExists(ctx context.Context, id string) (bool, error)
	DocumentExistsByPath(ctx context.Context, filePath string) (bool, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
	ListDocuments(ctx context.Context) ([]store.DocumentRecord, error)
	ListUserDocuments(ctx context.Context, userID string) ([]store.DocumentRecord, error)
	InsertVersionHistory(ctx context.Context, entry store.VersionHistoryEntry) error
	ListVersionHistory(ctx context.Context, documentID string) ([]store.VersionHistoryEntry, error)
	DocumentTree(ctx context.Context, rootID string) ([]store.DocumentTreeNode, error)
}

// searchIndex is the optional full-text index a repository can keep current.
type searchIndex interface {
	IndexDocument(ctx context.Context, doc search.Document) error
	RemoveDocument(ctx context.Context, id string) error
}

type Repository struct {
	store metadataStore
	blobs blob.Store

	cache         *cache.ContentCache
	index         searchIndex
	recordHistory bool
}

type Option func(*Repository)

// WithCache adds a checksum-keyed content cache in front of the blob store.
func WithCache(c *cache.ContentCache) Option {
	return func(r *Repository) { r.cache = c }
}

// WithIndex keeps a full-text search index in step with writes, best effort.
func WithIndex(ix searchIndex) Option {
	return func(r *Repository) { r.index = ix }
}

// WithHistory appends a version_history row on every successful write.
func WithHistory() Option {
	return func(r *Repository) { r.recordHistory = true }
}

func New(metadata metadataStore, blobs blob.Store, opts ...Option) *Repository {
	r := &Repository{store: metadata, blobs: blobs}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SyncOutcome reports what a file sync did.
type SyncOutcome struct {
	DocumentID string
	Changed    bool
	Version    document.Version
	Checksum   string
}

// IntegrityStatus classifies metadata/file agreement for one document.
type IntegrityStatus string

const (
	IntegrityInSync          IntegrityStatus = "in_sync"
	IntegrityFileModified    IntegrityStatus = "file_modified"
	IntegrityFileMissing     IntegrityStatus = "file_missing"
	IntegrityMetadataMissing IntegrityStatus = "metadata_missing"
)

// IntegrityReport is the result of verifying one document.
type IntegrityReport struct {
	DocumentID       string
	Path             string
	Status           IntegrityStatus
	MetadataChecksum string
	FileChecksum     string
}

// Revision is one version history entry.
type Revision struct {
	Version    document.Version
	Checksum   string
	SyncSource document.SyncSource
	UpdatedBy  string
	At         time.Time
}

// TreeNode is one document in a branch lineage, root first.
type TreeNode struct {
	ID          string
	ParentID    string
	BranchPoint document.Component
	BranchLabel string
	Title       string
	Depth       int
}

// Create persists a new document, file first. If the metadata insert fails
// the blob is removed again so no orphan survives a failed create.
func (r *Repository) Create(ctx context.Context, doc *document.DecisionDocument) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if doc.Content.Size() > MaxContentBytes {
		return fmt.Errorf("%w: %d bytes", ErrContentTooLarge, doc.Content.Size())
	}

	raw := []byte(doc.Content.Raw())
	if err := r.blobs.Write(ctx, doc.StoragePath, raw, doc.UpdatedBy.Encode()); err != nil {
		return fmt.Errorf("write document file: %w", err)
	}

	if err := r.store.InsertDocument(ctx, toRecord(doc)); err != nil {
		if removeErr := r.blobs.Remove(ctx, doc.StoragePath); removeErr != nil {
			log.Printf("repo: remove blob after failed insert %s: %v", doc.ID, removeErr)
		}
		if store.IsUniqueViolation(err) {
			return fmt.Errorf("%w: cycle %s already has a document", ErrConflict, doc.CycleID)
		}
		return err
	}

	r.afterWrite(ctx, doc)
	return nil
}

// Update persists a new version of an existing document, guarded by the
// version the caller read. The file is written first; a lost version race
// leaves the file one write ahead of the row, which the next sync or
// integrity pass reconciles.
func (r *Repository) Update(ctx context.Context, doc *document.DecisionDocument, expected document.Version) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if doc.Content.Size() > MaxContentBytes {
		return fmt.Errorf("%w: %d bytes", ErrContentTooLarge, doc.Content.Size())
	}

	raw := []byte(doc.Content.Raw())
	if err := r.blobs.Write(ctx, doc.StoragePath, raw, doc.UpdatedBy.Encode()); err != nil {
		return fmt.Errorf("write document file: %w", err)
	}

	ok, err := r.store.UpdateDocumentVersioned(ctx, toRecord(doc), int(expected))
	if err != nil {
		return err
	}
	if !ok {
		return r.missingOrConflict(ctx, doc.ID, expected)
	}

	r.afterWrite(ctx, doc)
	return nil
}

// missingOrConflict disambiguates a zero-row conditional update.
func (r *Repository) missingOrConflict(ctx context.Context, id string, expected document.Version) error {
	exists, err := r.store.DocumentExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: document %s moved past version %d", ErrConflict, id, expected)
}

// Get loads a document with its markdown body.
func (r *Repository) Get(ctx context.Context, id string) (*document.DecisionDocument, error) {
	rec, err := r.store.GetDocument(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return r.hydrate(ctx, rec)
}

// GetByCycle loads the document for a decision cycle.
func (r *Repository) GetByCycle(ctx context.Context, cycleID string) (*document.DecisionDocument, error) {
	rec, err := r.store.GetDocumentByCycle(ctx, cycleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cycle %s", ErrNotFound, cycleID)
	}
	if err != nil {
		return nil, fmt.Errorf("get document by cycle: %w", err)
	}
	return r.hydrate(ctx, rec)
}

// List returns a user's documents without bodies. Content stays behind the
// checksum until someone asks for it.
func (r *Repository) List(ctx context.Context, userID string) ([]*document.DecisionDocument, error) {
	recs, err := r.store.ListUserDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}
	docs := make([]*document.DecisionDocument, 0, len(recs))
	for _, rec := range recs {
		doc, err := fromRecord(rec, "")
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// SyncFromFile reconciles one externally modified file into the metadata
// layer. Unchanged content is a complete no-op, so polling the same file
// repeatedly is safe.
func (r *Repository) SyncFromFile(ctx context.Context, path string, fileContent []byte, now time.Time) (SyncOutcome, error) {
	rec, err := r.store.GetDocumentByPath(ctx, path)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncOutcome{}, fmt.Errorf("%w: no document registered at %s", ErrNotFound, path)
	}
	if err != nil {
		return SyncOutcome{}, fmt.Errorf("get document by path: %w", err)
	}

	doc, err := fromRecord(rec, "")
	if err != nil {
		return SyncOutcome{}, err
	}

	if !doc.SyncFromFile(string(fileContent), now) {
		return SyncOutcome{
			DocumentID: doc.ID,
			Changed:    false,
			Version:    doc.Version,
			Checksum:   doc.Content.Checksum(),
		}, nil
	}

	ok, err := r.store.UpdateDocumentVersioned(ctx, toRecord(doc), rec.Version)
	if err != nil {
		return SyncOutcome{}, err
	}
	if !ok {
		return SyncOutcome{}, r.missingOrConflict(ctx, doc.ID, document.Version(rec.Version))
	}

	r.afterWrite(ctx, doc)
	return SyncOutcome{
		DocumentID: doc.ID,
		Changed:    true,
		Version:    doc.Version,
		Checksum:   doc.Content.Checksum(),
	}, nil
}

// VerifyIntegrity compares one document's metadata checksum with the bytes
// actually on disk.
func (r *Repository) VerifyIntegrity(ctx context.Context, id string) (IntegrityReport, error) {
	rec, err := r.store.GetDocument(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return IntegrityReport{DocumentID: id, Status: IntegrityMetadataMissing}, nil
	}
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("get document: %w", err)
	}

	report := IntegrityReport{
		DocumentID:       rec.ID,
		Path:             rec.FilePath,
		MetadataChecksum: rec.ContentChecksum,
	}
	data, err := r.blobs.Read(ctx, rec.FilePath)
	if errors.Is(err, blob.ErrNotExist) {
		report.Status = IntegrityFileMissing
		return report, nil
	}
	if err != nil {
		return IntegrityReport{}, err
	}

	report.FileChecksum = document.Checksum(string(data))
	if report.FileChecksum == rec.ContentChecksum {
		report.Status = IntegrityInSync
	} else {
		report.Status = IntegrityFileModified
	}
	return report, nil
}

// VerifyAll checks every registered document, then reports stored files no
// metadata row points at, so all four states show up in one pass.
func (r *Repository) VerifyAll(ctx context.Context) ([]IntegrityReport, error) {
	recs, err := r.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	registered := make(map[string]bool, len(recs))
	reports := make([]IntegrityReport, 0, len(recs))
	for _, rec := range recs {
		registered[rec.FilePath] = true
		report, err := r.VerifyIntegrity(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	paths, err := r.blobs.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		if registered[path] {
			continue
		}
		reports = append(reports, IntegrityReport{
			Path:   path,
			Status: IntegrityMetadataMissing,
		})
	}
	return reports, nil
}

// Delete removes the metadata row first, then the blob best effort. A blob
// left behind by a failed removal is picked up by the orphan sweep.
func (r *Repository) Delete(ctx context.Context, id string) error {
	rec, err := r.store.GetDocument(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	ok, err := r.store.DeleteDocument(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := r.blobs.Remove(ctx, rec.FilePath); err != nil && !errors.Is(err, blob.ErrNotExist) {
		log.Printf("repo: remove blob for deleted document %s: %v", id, err)
	}
	if r.cache != nil {
		r.cache.Invalidate(ctx, rec.ContentChecksum)
	}
	if r.index != nil {
		if err := r.index.RemoveDocument(ctx, id); err != nil {
			log.Printf("repo: remove document %s from index: %v", id, err)
		}
	}
	return nil
}

// SweepOrphans removes stored files no metadata row points at. Files written
// moments ago by an in-flight create can look orphaned, so callers should
// only sweep paths older than their write pipeline.
func (r *Repository) SweepOrphans(ctx context.Context) ([]string, error) {
	paths, err := r.blobs.List(ctx)
	if err != nil {
		return nil, err
	}
	removed := make([]string, 0)
	for _, path := range paths {
		exists, err := r.store.DocumentExistsByPath(ctx, path)
		if err != nil {
			return removed, err
		}
		if exists {
			continue
		}
		if err := r.blobs.Remove(ctx, path); err != nil && !errors.Is(err, blob.ErrNotExist) {
			log.Printf("repo: remove orphan %s: %v", path, err)
			continue
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// History returns a document's recorded versions, oldest first.
func (r *Repository) History(ctx context.Context, id string) ([]Revision, error) {
	entries, err := r.store.ListVersionHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	revisions := make([]Revision, 0, len(entries))
	for _, entry := range entries {
		source, err := document.ParseSyncSource(entry.SyncSource)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, Revision{
			Version:    document.Version(entry.Version),
			Checksum:   entry.Checksum,
			SyncSource: source,
			UpdatedBy:  entry.UpdatedBy,
			At:         entry.CreatedAt,
		})
	}
	return revisions, nil
}

// BranchTree returns the branch lineage rooted at a document.
func (r *Repository) BranchTree(ctx context.Context, rootID string) ([]TreeNode, error) {
	rows, err := r.store.DocumentTree(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rootID)
	}
	nodes := make([]TreeNode, 0, len(rows))
	for _, row := range rows {
		node := TreeNode{
			ID:          row.ID,
			ParentID:    row.ParentID,
			BranchLabel: row.BranchLabel,
			Title:       row.Title,
			Depth:       row.Depth,
		}
		if row.BranchPoint != "" {
			component, err := document.ComponentFromCode(row.BranchPoint)
			if err != nil {
				return nil, err
			}
			node.BranchPoint = component
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// hydrate turns a row into an aggregate with its body loaded, preferring the
// cache when the cached bytes still match the row's checksum.
func (r *Repository) hydrate(ctx context.Context, rec store.DocumentRecord) (*document.DecisionDocument, error) {
	if r.cache != nil {
		if raw, hit := r.cache.Get(ctx, rec.ContentChecksum); hit {
			return fromRecord(rec, raw)
		}
	}
	data, err := r.blobs.Read(ctx, rec.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read document file: %w", err)
	}
	raw := string(data)
	if r.cache != nil && document.Checksum(raw) == rec.ContentChecksum {
		r.cache.Put(ctx, rec.ContentChecksum, raw)
	}
	return fromRecord(rec, raw)
}

// afterWrite handles the best-effort side channels of a successful write.
func (r *Repository) afterWrite(ctx context.Context, doc *document.DecisionDocument) {
	if r.recordHistory {
		if err := r.store.InsertVersionHistory(ctx, store.VersionHistoryEntry{
			DocumentID: doc.ID,
			Version:    int(doc.Version),
			Checksum:   doc.Content.Checksum(),
			SyncSource: string(doc.SyncSource),
			UpdatedBy:  doc.UpdatedBy.Encode(),
			CreatedAt:  doc.UpdatedAt,
		}); err != nil {
			log.Printf("repo: record history for %s v%d: %v", doc.ID, doc.Version, err)
		}
	}
	if r.cache != nil {
		r.cache.Put(ctx, doc.Content.Checksum(), doc.Content.Raw())
	}
	if r.index != nil {
		title, text := deriveSearchFields(doc.Content.Raw())
		if err := r.index.IndexDocument(ctx, search.Document{
			ID:      doc.ID,
			CycleID: doc.CycleID,
			UserID:  doc.UserID,
			Title:   title,
			Content: text,
		}); err != nil {
			log.Printf("repo: index document %s: %v", doc.ID, err)
		}
	}
}

// deriveSearchFields pulls the title out of the markdown and uses the raw
// body as the searchable text.
func deriveSearchFields(raw string) (title, text string) {
	result := markdown.Parse(raw)
	return result.Metadata.Title, raw
}

func toRecord(doc *document.DecisionDocument) store.DocumentRecord {
	title, text := deriveSearchFields(doc.Content.Raw())
	branchPoint := ""
	if doc.BranchPoint != "" {
		branchPoint = doc.BranchPoint.Code()
	}
	return store.DocumentRecord{
		ID:              doc.ID,
		CycleID:         doc.CycleID,
		UserID:          doc.UserID,
		FilePath:        doc.StoragePath,
		ContentChecksum: doc.Content.Checksum(),
		ContentSize:     doc.Content.Size(),
		Version:         int(doc.Version),
		SyncSource:      string(doc.SyncSource),
		LastSyncedAt:    doc.LastSyncedAt,
		ParentID:        doc.ParentID,
		BranchPoint:     branchPoint,
		BranchLabel:     doc.BranchLabel,
		SearchText:      text,
		Title:           title,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
		UpdatedBy:       doc.UpdatedBy.Encode(),
	}
}

func fromRecord(rec store.DocumentRecord, raw string) (*document.DecisionDocument, error) {
	source, err := document.ParseSyncSource(rec.SyncSource)
	if err != nil {
		return nil, err
	}
	actor, err := document.ParseActor(rec.UpdatedBy)
	if err != nil {
		return nil, err
	}
	content := document.RestoreContent(raw, rec.ContentChecksum)
	if raw != "" {
		content = document.NewMarkdownContent(raw)
	}
	doc := &document.DecisionDocument{
		ID:           rec.ID,
		CycleID:      rec.CycleID,
		UserID:       rec.UserID,
		Content:      content,
		StoragePath:  rec.FilePath,
		Version:      document.Version(rec.Version),
		SyncSource:   source,
		LastSyncedAt: rec.LastSyncedAt,
		ParentID:     rec.ParentID,
		BranchLabel:  rec.BranchLabel,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
		UpdatedBy:    actor,
	}
	if rec.BranchPoint != "" {
		component, err := document.ComponentFromCode(rec.BranchPoint)
		if err != nil {
			return nil, err
		}
		doc.BranchPoint = component
	}
	return doc, doc.Validate()
}
