package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"

	"choicesherpa/api/internal/blob"
	"choicesherpa/api/internal/cache"
	"choicesherpa/api/internal/document"
	"choicesherpa/api/internal/store"
)

var t0 = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

// fakeStore implements metadataStore with overridable behavior per method.
type fakeStore struct {
	insertDocument          func(ctx context.Context, rec store.DocumentRecord) error
	updateDocumentVersioned func(ctx context.Context, rec store.DocumentRecord, expected int) (bool, error)
	getDocument             func(ctx context.Context, id string) (store.DocumentRecord, error)
	getDocumentByCycle      func(ctx context.Context, cycleID string) (store.DocumentRecord, error)
	getDocumentByPath       func(ctx context.Context, filePath string) (store.DocumentRecord, error)
	documentExists          func(ctx context.Context, id string) (bool, error)
	documentExistsByPath    func(ctx context.Context, filePath string) (bool, error)
	deleteDocument          func(ctx context.Context, id string) (bool, error)
	listDocuments           func(ctx context.Context) ([]store.DocumentRecord, error)
	listUserDocuments       func(ctx context.Context, userID string) ([]store.DocumentRecord, error)
	insertVersionHistory    func(ctx context.Context, entry store.VersionHistoryEntry) error
	listVersionHistory      func(ctx context.Context, documentID string) ([]store.VersionHistoryEntry, error)
	documentTree            func(ctx context.Context, rootID string) ([]store.DocumentTreeNode, error)
}

func (f *fakeStore) InsertDocument(ctx context.Context, rec store.DocumentRecord) error {
	if f.insertDocument != nil {
		return f.insertDocument(ctx, rec)
	}
	return nil
}

func (f *fakeStore) UpdateDocumentVersioned(ctx context.Context, rec store.DocumentRecord, expected int) (bool, error) {
	if f.updateDocumentVersioned != nil {
		return f.updateDocumentVersioned(ctx, rec, expected)
	}
	return true, nil
}

func (f *fakeStore) GetDocument(ctx context.Context, id string) (store.DocumentRecord, error) {
	if f.getDocument != nil {
		return f.getDocument(ctx, id)
	}
	return store.DocumentRecord{}, sql.ErrNoRows
}

func (f *fakeStore) GetDocumentByCycle(ctx context.Context, cycleID string) (store.DocumentRecord, error) {
	if f.getDocumentByCycle != nil {
		return f.getDocumentByCycle(ctx, cycleID)
	}
	return store.DocumentRecord{}, sql.ErrNoRows
}

func (f *fakeStore) GetDocumentByPath(ctx context.Context, filePath string) (store.DocumentRecord, error) {
	if f.getDocumentByPath != nil {
		return f.getDocumentByPath(ctx, filePath)
	}
	return store.DocumentRecord{}, sql.ErrNoRows
}

func (f *fakeStore) DocumentExists(ctx context.Context, id string) (bool, error) {
	if f.documentExists != nil {
		return f.documentExists(ctx, id)
	}
	return false, nil
}

func (f *fakeStore) DocumentExistsByPath(ctx context.Context, filePath string) (bool, error) {
	if f.documentExistsByPath != nil {
		return f.documentExistsByPath(ctx, filePath)
	}
	return false, nil
}

func (f *fakeStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	if f.deleteDocument != nil {
		return f.deleteDocument(ctx, id)
	}
	return true, nil
}

func (f *fakeStore) ListDocuments(ctx context.Context) ([]store.DocumentRecord, error) {
	if f.listDocuments != nil {
		return f.listDocuments(ctx)
	}
	return nil, nil
}

func (f *fakeStore) ListUserDocuments(ctx context.Context, userID string) ([]store.DocumentRecord, error) {
	if f.listUserDocuments != nil {
		return f.listUserDocuments(ctx, userID)
	}
	return nil, nil
}

func (f *fakeStore) InsertVersionHistory(ctx context.Context, entry store.VersionHistoryEntry) error {
	if f.insertVersionHistory != nil {
		return f.insertVersionHistory(ctx, entry)
	}
	return nil
}

func (f *fakeStore) ListVersionHistory(ctx context.Context, documentID string) ([]store.VersionHistoryEntry, error) {
	if f.listVersionHistory != nil {
		return f.listVersionHistory(ctx, documentID)
	}
	return nil, nil
}

func (f *fakeStore) DocumentTree(ctx context.Context, rootID string) ([]store.DocumentTreeNode, error) {
	if f.documentTree != nil {
		return f.documentTree(ctx, rootID)
	}
	return nil, nil
}

// memBlob is an in-memory blob.Store with injectable failures.
type memBlob struct {
	mu        sync.Mutex
	files     map[string][]byte
	writeErr  error
	removeErr error
}

func newMemBlob() *memBlob {
	return &memBlob{files: make(map[string][]byte)}
}

func (m *memBlob) Write(ctx context.Context, path string, data []byte, author string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *memBlob) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", blob.ErrNotExist, path)
	}
	return data, nil
}

func (m *memBlob) Remove(ctx context.Context, path string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("%w: %s", blob.ErrNotExist, path)
	}
	delete(m.files, path)
	return nil
}

func (m *memBlob) Stat(ctx context.Context, path string) (blob.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return blob.FileInfo{}, fmt.Errorf("%w: %s", blob.ErrNotExist, path)
	}
	return blob.FileInfo{Path: path, Size: int64(len(data))}, nil
}

func (m *memBlob) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for path := range m.files {
		paths = append(paths, path)
	}
	return paths, nil
}

func (m *memBlob) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func newTestDoc(t *testing.T) *document.DecisionDocument {
	t.Helper()
	doc, err := document.New("doc_1", "cyc_1", "usr_1", document.NewMarkdownContent("# Career Decision\n"), t0)
	if err != nil {
		t.Fatalf("document.New() error = %v", err)
	}
	return doc
}

func TestCreatePersistsFileAndRow(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlob()
	var inserted store.DocumentRecord
	st := &fakeStore{
		insertDocument: func(ctx context.Context, rec store.DocumentRecord) error {
			if !blobs.has(rec.FilePath) {
				t.Error("metadata insert ran before the file was written")
			}
			inserted = rec
			return nil
		},
	}
	doc := newTestDoc(t)

	if err := New(st, blobs).Create(ctx, doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if inserted.CycleID != "cyc_1" || inserted.Version != 1 {
		t.Errorf("inserted record = %+v", inserted)
	}
	if inserted.ContentChecksum != doc.Content.Checksum() {
		t.Errorf("checksum = %q, want %q", inserted.ContentChecksum, doc.Content.Checksum())
	}
	if inserted.Title != "Career Decision" {
		t.Errorf("title = %q", inserted.Title)
	}
}

func TestCreateCleansUpFileWhenInsertFails(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlob()
	st := &fakeStore{
		insertDocument: func(ctx context.Context, rec store.DocumentRecord) error {
			return errors.New("insert document: boom")
		},
	}
	doc := newTestDoc(t)

	if err := New(st, blobs).Create(ctx, doc); err == nil {
		t.Fatal("Create() expected an error")
	}
	if blobs.has(doc.StoragePath) {
		t.Error("orphan file left behind after failed insert")
	}
}

func TestCreateDuplicateCycleIsConflict(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlob()
	st := &fakeStore{
		insertDocument: func(ctx context.Context, rec store.DocumentRecord) error {
			return fmt.Errorf("insert document: %w", &pgconn.PgError{Code: "23505"})
		},
	}
	doc := newTestDoc(t)

	err := New(st, blobs).Create(ctx, doc)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
	if blobs.has(doc.StoragePath) {
		t.Error("orphan file left behind after duplicate cycle")
	}
}

func TestCreateRejectsOversizedContent(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlob()
	doc := newTestDoc(t)
	doc.Content = document.NewMarkdownContent(string(make([]byte, MaxContentBytes+1)))

	err := New(&fakeStore{}, blobs).Create(ctx, doc)
	if !errors.Is(err, ErrContentTooLarge) {
		t.Fatalf("Create() error = %v, want ErrContentTooLarge", err)
	}
	if blobs.has(doc.StoragePath) {
		t.Error("oversized content reached the blob store")
	}
}

func TestUpdateDisambiguatesZeroRows(t *testing.T) {
	ctx := context.Background()
	doc := newTestDoc(t)
	doc.ApplyUserEdit("# Edited\n", t0.Add(time.Minute))

	t.Run("document gone", func(t *testing.T) {
		st := &fakeStore{
			updateDocumentVersioned: func(ctx context.Context, rec store.DocumentRecord, expected int) (bool, error) {
				return false, nil
			},
			documentExists: func(ctx context.Context, id string) (bool, error) { return false, nil },
		}
		if err := New(st, newMemBlob()).Update(ctx, doc, 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("version moved", func(t *testing.T) {
		st := &fakeStore{
			updateDocumentVersioned: func(ctx context.Context, rec store.DocumentRecord, expected int) (bool, error) {
				return false, nil
			},
			documentExists: func(ctx context.Context, id string) (bool, error) { return true, nil },
		}
		if err := New(st, newMemBlob()).Update(ctx, doc, 1); !errors.Is(err, ErrConflict) {
			t.Errorf("Update() error = %v, want ErrConflict", err)
		}
	})
}

// Two writers race from the same observed version; exactly one may win.
func TestConcurrentUpdateRace(t *testing.T) {
	ctx := context.Background()
	version := 3
	st := &fakeStore{
		updateDocumentVersioned: func(ctx context.Context, rec store.DocumentRecord, expected int) (bool, error) {
			if expected != version {
				return false, nil
			}
			version = rec.Version
			return true, nil
		},
		documentExists: func(ctx context.Context, id string) (bool, error) { return true, nil },
	}
	r := New(st, newMemBlob())

	first := newTestDoc(t)
	first.Version = 3
	second := newTestDoc(t)
	second.Version = 3

	first.ApplyUserEdit("# First writer\n", t0.Add(time.Minute))
	second.ApplyUserEdit("# Second writer\n", t0.Add(time.Minute))

	if err := r.Update(ctx, first, 3); err != nil {
		t.Fatalf("first Update() error = %v", err)
	}
	if version != 4 {
		t.Errorf("stored version = %d, want 4", version)
	}
	if err := r.Update(ctx, second, 3); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Update() error = %v, want ErrConflict", err)
	}
	if version != 4 {
		t.Errorf("stored version = %d after lost race, want 4", version)
	}
}

func baseRecord(content string) store.DocumentRecord {
	return store.DocumentRecord{
		ID:              "doc_1",
		CycleID:         "cyc_1",
		UserID:          "usr_1",
		FilePath:        "users/usr_1/documents/doc_1.md",
		ContentChecksum: document.Checksum(content),
		ContentSize:     int64(len(content)),
		Version:         2,
		SyncSource:      "user_edit",
		LastSyncedAt:    t0,
		CreatedAt:       t0,
		UpdatedAt:       t0,
		UpdatedBy:       "user:usr_1",
	}
}

func TestGetHydratesFromBlob(t *testing.T) {
	ctx := context.Background()
	content := "# Career Decision\n"
	rec := baseRecord(content)
	blobs := newMemBlob()
	_ = blobs.Write(ctx, rec.FilePath, []byte(content), "system")
	st := &fakeStore{
		getDocument: func(ctx context.Context, id string) (store.DocumentRecord, error) {
			if id != "doc_1" {
				return store.DocumentRecord{}, sql.ErrNoRows
			}
			return rec, nil
		},
	}

	doc, err := New(st, blobs).Get(ctx, "doc_1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Content.Raw() != content {
		t.Errorf("content = %q", doc.Content.Raw())
	}
	if doc.Version != 2 || !doc.UpdatedBy.IsUser() {
		t.Errorf("doc = version %d, actor %+v", doc.Version, doc.UpdatedBy)
	}

	if _, err := New(st, blobs).Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(nope) error = %v, want ErrNotFound", err)
	}
}

func TestGetServesFromCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	contentCache, err := cache.NewContentCache("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewContentCache() error = %v", err)
	}
	defer contentCache.Close()

	content := "# Career Decision\n"
	rec := baseRecord(content)
	contentCache.Put(ctx, rec.ContentChecksum, content)

	// No blob behind it: a hit must come from the cache alone.
	st := &fakeStore{
		getDocument: func(ctx context.Context, id string) (store.DocumentRecord, error) { return rec, nil },
	}
	doc, err := New(st, newMemBlob(), WithCache(contentCache)).Get(ctx, "doc_1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Content.Raw() != content {
		t.Errorf("content = %q", doc.Content.Raw())
	}
}

func TestSyncFromFileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	content := "# Career Decision\n"
	rec := baseRecord(content)
	updates := 0
	st := &fakeStore{
		getDocumentByPath: func(ctx context.Context, filePath string) (store.DocumentRecord, error) {
			if filePath != rec.FilePath {
				return store.DocumentRecord{}, sql.ErrNoRows
			}
			return rec, nil
		},
		updateDocumentVersioned: func(ctx context.Context, updated store.DocumentRecord, expected int) (bool, error) {
			if expected != rec.Version {
				return false, nil
			}
			updates++
			rec = updated
			return true, nil
		},
	}
	r := New(st, newMemBlob())

	// Same bytes: nothing happens.
	outcome, err := r.SyncFromFile(ctx, rec.FilePath, []byte(content), t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("SyncFromFile() error = %v", err)
	}
	if outcome.Changed || updates != 0 {
		t.Errorf("no-op sync changed something: %+v, updates = %d", outcome, updates)
	}

	// Modified bytes: one version bump.
	outcome, err = r.SyncFromFile(ctx, rec.FilePath, []byte("# Edited on disk\n"), t0.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("SyncFromFile() error = %v", err)
	}
	if !outcome.Changed || outcome.Version != 3 {
		t.Errorf("outcome = %+v, want changed at version 3", outcome)
	}
	if rec.SyncSource != "file_sync" {
		t.Errorf("sync source = %q", rec.SyncSource)
	}

	// Same modified bytes again: back to a no-op.
	outcome, err = r.SyncFromFile(ctx, rec.FilePath, []byte("# Edited on disk\n"), t0.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("SyncFromFile() error = %v", err)
	}
	if outcome.Changed || updates != 1 {
		t.Errorf("repeat sync not idempotent: %+v, updates = %d", outcome, updates)
	}

	if _, err := r.SyncFromFile(ctx, "users/usr_9/documents/ghost.md", []byte("x"), t0); !errors.Is(err, ErrNotFound) {
		t.Errorf("SyncFromFile(unregistered) error = %v, want ErrNotFound", err)
	}
}

func TestVerifyIntegrity(t *testing.T) {
	ctx := context.Background()
	content := "# Career Decision\n"
	rec := baseRecord(content)
	st := &fakeStore{
		getDocument: func(ctx context.Context, id string) (store.DocumentRecord, error) { return rec, nil },
	}

	t.Run("in sync", func(t *testing.T) {
		blobs := newMemBlob()
		_ = blobs.Write(ctx, rec.FilePath, []byte(content), "system")
		report, err := New(st, blobs).VerifyIntegrity(ctx, "doc_1")
		if err != nil {
			t.Fatalf("VerifyIntegrity() error = %v", err)
		}
		if report.Status != IntegrityInSync {
			t.Errorf("status = %s", report.Status)
		}
	})

	t.Run("file modified", func(t *testing.T) {
		blobs := newMemBlob()
		_ = blobs.Write(ctx, rec.FilePath, []byte("# Edited behind our back\n"), "system")
		report, err := New(st, blobs).VerifyIntegrity(ctx, "doc_1")
		if err != nil {
			t.Fatalf("VerifyIntegrity() error = %v", err)
		}
		if report.Status != IntegrityFileModified {
			t.Errorf("status = %s", report.Status)
		}
		if report.FileChecksum == "" || report.FileChecksum == report.MetadataChecksum {
			t.Errorf("report checksums = %+v", report)
		}
	})

	t.Run("file missing", func(t *testing.T) {
		report, err := New(st, newMemBlob()).VerifyIntegrity(ctx, "doc_1")
		if err != nil {
			t.Fatalf("VerifyIntegrity() error = %v", err)
		}
		if report.Status != IntegrityFileMissing {
			t.Errorf("status = %s", report.Status)
		}
	})

	t.Run("metadata missing", func(t *testing.T) {
		report, err := New(&fakeStore{}, newMemBlob()).VerifyIntegrity(ctx, "doc_ghost")
		if err != nil {
			t.Fatalf("VerifyIntegrity() error = %v", err)
		}
		if report.Status != IntegrityMetadataMissing {
			t.Errorf("status = %s", report.Status)
		}
		if report.DocumentID != "doc_ghost" {
			t.Errorf("document id = %q", report.DocumentID)
		}
	})
}

func TestVerifyAllReportsUnregisteredFile(t *testing.T) {
	ctx := context.Background()
	content := "# Career Decision\n"
	rec := baseRecord(content)
	blobs := newMemBlob()
	_ = blobs.Write(ctx, rec.FilePath, []byte(content), "system")
	_ = blobs.Write(ctx, "users/usr_9/documents/stray.md", []byte("# Stray\n"), "system")
	st := &fakeStore{
		listDocuments: func(ctx context.Context) ([]store.DocumentRecord, error) {
			return []store.DocumentRecord{rec}, nil
		},
		getDocument: func(ctx context.Context, id string) (store.DocumentRecord, error) { return rec, nil },
	}

	reports, err := New(st, blobs).VerifyAll(ctx)
	if err != nil {
		t.Fatalf("VerifyAll() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("VerifyAll() = %d reports, want 2", len(reports))
	}
	byStatus := make(map[IntegrityStatus]IntegrityReport, len(reports))
	for _, report := range reports {
		byStatus[report.Status] = report
	}
	if _, ok := byStatus[IntegrityInSync]; !ok {
		t.Errorf("reports = %+v, want one in_sync", reports)
	}
	orphan, ok := byStatus[IntegrityMetadataMissing]
	if !ok || orphan.Path != "users/usr_9/documents/stray.md" {
		t.Errorf("reports = %+v, want metadata_missing for the stray file", reports)
	}
}

func TestDeleteRowFirstThenFile(t *testing.T) {
	ctx := context.Background()
	content := "# Career Decision\n"
	rec := baseRecord(content)
	blobs := newMemBlob()
	_ = blobs.Write(ctx, rec.FilePath, []byte(content), "system")
	deleted := false
	st := &fakeStore{
		getDocument:    func(ctx context.Context, id string) (store.DocumentRecord, error) { return rec, nil },
		deleteDocument: func(ctx context.Context, id string) (bool, error) { deleted = true; return true, nil },
	}

	if err := New(st, blobs).Delete(ctx, "doc_1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Error("metadata row not deleted")
	}
	if blobs.has(rec.FilePath) {
		t.Error("blob still present after delete")
	}

	// A failing blob removal must not fail the delete; the sweep handles it.
	blobs2 := newMemBlob()
	_ = blobs2.Write(ctx, rec.FilePath, []byte(content), "system")
	blobs2.removeErr = errors.New("disk on fire")
	if err := New(st, blobs2).Delete(ctx, "doc_1"); err != nil {
		t.Errorf("Delete() with failing blob removal error = %v", err)
	}
}

func TestSweepOrphans(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlob()
	_ = blobs.Write(ctx, "users/usr_1/documents/doc_1.md", []byte("x"), "system")
	_ = blobs.Write(ctx, "users/usr_1/documents/ghost.md", []byte("y"), "system")
	st := &fakeStore{
		documentExistsByPath: func(ctx context.Context, filePath string) (bool, error) {
			return filePath == "users/usr_1/documents/doc_1.md", nil
		},
	}

	removed, err := New(st, blobs).SweepOrphans(ctx)
	if err != nil {
		t.Fatalf("SweepOrphans() error = %v", err)
	}
	if len(removed) != 1 || removed[0] != "users/usr_1/documents/ghost.md" {
		t.Errorf("removed = %v", removed)
	}
	if !blobs.has("users/usr_1/documents/doc_1.md") {
		t.Error("registered document was swept")
	}
}

func TestHistoryRecording(t *testing.T) {
	ctx := context.Background()
	var entries []store.VersionHistoryEntry
	st := &fakeStore{
		insertVersionHistory: func(ctx context.Context, entry store.VersionHistoryEntry) error {
			entries = append(entries, entry)
			return nil
		},
		listVersionHistory: func(ctx context.Context, documentID string) ([]store.VersionHistoryEntry, error) {
			return entries, nil
		},
	}
	r := New(st, newMemBlob(), WithHistory())
	doc := newTestDoc(t)

	if err := r.Create(ctx, doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	doc.ApplyUserEdit("# Edited\n", t0.Add(time.Minute))
	if err := r.Update(ctx, doc, 1); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	revisions, err := r.History(ctx, doc.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("revisions = %d, want 2", len(revisions))
	}
	if revisions[0].Version != 1 || revisions[1].Version != 2 {
		t.Errorf("revision versions = %d, %d", revisions[0].Version, revisions[1].Version)
	}
	if revisions[1].SyncSource != document.SourceUserEdit {
		t.Errorf("revision source = %s", revisions[1].SyncSource)
	}
}

func TestBranchTree(t *testing.T) {
	ctx := context.Background()
	st := &fakeStore{
		documentTree: func(ctx context.Context, rootID string) ([]store.DocumentTreeNode, error) {
			return []store.DocumentTreeNode{
				{ID: "doc_1", Depth: 0},
				{ID: "doc_2", ParentID: "doc_1", BranchPoint: "A", BranchLabel: "explore Berlin", Depth: 1},
			}, nil
		},
	}
	nodes, err := New(st, newMemBlob()).BranchTree(ctx, "doc_1")
	if err != nil {
		t.Fatalf("BranchTree() error = %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(nodes))
	}
	if nodes[1].BranchPoint != document.ComponentAlternatives {
		t.Errorf("branch point = %s", nodes[1].BranchPoint)
	}

	empty := &fakeStore{}
	if _, err := New(empty, newMemBlob()).BranchTree(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("BranchTree(ghost) error = %v, want ErrNotFound", err)
	}
}
