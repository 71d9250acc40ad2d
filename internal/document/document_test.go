package document

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func newTestDocument(t *testing.T) *DecisionDocument {
	t.Helper()
	doc, err := New("doc_1", "cyc_1", "usr_1", NewMarkdownContent("# Career Decision\n"), t0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return doc
}

func TestNewDocument(t *testing.T) {
	doc := newTestDocument(t)
	if doc.Version != FirstVersion {
		t.Errorf("version = %d, want %d", doc.Version, FirstVersion)
	}
	if doc.SyncSource != SourceInitial {
		t.Errorf("sync source = %s, want %s", doc.SyncSource, SourceInitial)
	}
	if !doc.UpdatedBy.IsSystem() {
		t.Errorf("updated by = %+v, want system", doc.UpdatedBy)
	}
	if doc.StoragePath != "users/usr_1/documents/doc_1.md" {
		t.Errorf("storage path = %q", doc.StoragePath)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	if _, err := New("", "cyc_1", "usr_1", NewMarkdownContent(""), t0); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("New() with blank id error = %v, want ErrInvalidFormat", err)
	}
}

func TestVersionsAreMonotonic(t *testing.T) {
	doc := newTestDocument(t)

	if changed := doc.RegenerateFromComponents("# Career Decision\n\nMore.\n", t0.Add(time.Minute)); !changed {
		t.Fatal("RegenerateFromComponents() = false for new content")
	}
	if doc.Version != 2 {
		t.Errorf("version = %d, want 2", doc.Version)
	}
	if doc.SyncSource != SourceComponentUpdate {
		t.Errorf("sync source = %s", doc.SyncSource)
	}

	doc.ApplyUserEdit("# Career Decision\n\nEdited.\n", t0.Add(2*time.Minute))
	if doc.Version != 3 {
		t.Errorf("version = %d, want 3", doc.Version)
	}
	if doc.SyncSource != SourceUserEdit {
		t.Errorf("sync source = %s", doc.SyncSource)
	}

	if changed := doc.SyncFromFile("# Career Decision\n\nFrom disk.\n", t0.Add(3*time.Minute)); !changed {
		t.Fatal("SyncFromFile() = false for new content")
	}
	if doc.Version != 4 {
		t.Errorf("version = %d, want 4", doc.Version)
	}
}

func TestRegenerateIsNoOpForIdenticalContent(t *testing.T) {
	doc := newTestDocument(t)
	before := doc.Version

	if changed := doc.RegenerateFromComponents(doc.Content.Raw(), t0.Add(time.Minute)); changed {
		t.Error("RegenerateFromComponents() = true for identical content")
	}
	if doc.Version != before {
		t.Errorf("version moved to %d on a no-op", doc.Version)
	}
	if doc.UpdatedAt != t0 {
		t.Error("UpdatedAt moved on a no-op")
	}
}

func TestAgentEditProvenance(t *testing.T) {
	doc := newTestDocument(t)
	if changed := doc.ApplyAgentEdit("# Rewritten\n", t0.Add(time.Minute)); !changed {
		t.Fatal("ApplyAgentEdit() = false for new content")
	}
	if !doc.UpdatedBy.IsAgent() {
		t.Errorf("updated by = %+v, want agent", doc.UpdatedBy)
	}
	if doc.SyncSource != SourceComponentUpdate {
		t.Errorf("sync source = %s, want %s", doc.SyncSource, SourceComponentUpdate)
	}
}

func TestCheckedUserEdit(t *testing.T) {
	doc := newTestDocument(t)

	if err := doc.ApplyCheckedUserEdit("# Edited\n", FirstVersion, "usr_1", t0.Add(time.Minute)); err != nil {
		t.Fatalf("ApplyCheckedUserEdit() error = %v", err)
	}
	if doc.Version != 2 {
		t.Errorf("version = %d, want 2", doc.Version)
	}
	if !doc.UpdatedBy.IsUser() || doc.UpdatedBy.UserID() != "usr_1" {
		t.Errorf("updated by = %+v, want user usr_1", doc.UpdatedBy)
	}

	// Stale expected version must fail without mutating anything.
	err := doc.ApplyCheckedUserEdit("# Stale\n", FirstVersion, "usr_1", t0.Add(2*time.Minute))
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("ApplyCheckedUserEdit() error = %v, want ErrVersionConflict", err)
	}
	if doc.Version != 2 {
		t.Errorf("version = %d after rejected edit, want 2", doc.Version)
	}
	if doc.Content.HasChanged("# Edited\n") {
		t.Error("content mutated by rejected edit")
	}

	if err := doc.ApplyCheckedUserEdit("# Next\n", 2, "", t0.Add(3*time.Minute)); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ApplyCheckedUserEdit() with blank user error = %v, want ErrInvalidFormat", err)
	}
}

func TestSyncFromFileIsIdempotent(t *testing.T) {
	doc := newTestDocument(t)
	doc.ApplyUserEdit("# Edited by user\n", t0.Add(time.Minute))
	actorBefore := doc.UpdatedBy

	if changed := doc.SyncFromFile("# Edited by user\n", t0.Add(2*time.Minute)); changed {
		t.Error("SyncFromFile() = true for checksum-identical content")
	}
	if doc.Version != 2 {
		t.Errorf("version = %d after no-op sync, want 2", doc.Version)
	}

	if changed := doc.SyncFromFile("# Edited on disk\n", t0.Add(3*time.Minute)); !changed {
		t.Fatal("SyncFromFile() = false for modified file")
	}
	if doc.SyncSource != SourceFileSync {
		t.Errorf("sync source = %s, want %s", doc.SyncSource, SourceFileSync)
	}
	// The external editor is unknown, so provenance stays as it was.
	if doc.UpdatedBy != actorBefore {
		t.Errorf("updated by = %+v, want unchanged %+v", doc.UpdatedBy, actorBefore)
	}

	// Re-syncing the same file content is a complete no-op.
	version := doc.Version
	if changed := doc.SyncFromFile("# Edited on disk\n", t0.Add(4*time.Minute)); changed {
		t.Error("SyncFromFile() = true on repeat sync")
	}
	if doc.Version != version {
		t.Errorf("version = %d after repeat sync, want %d", doc.Version, version)
	}
}

func TestBranching(t *testing.T) {
	parent := newTestDocument(t)

	branch, err := NewBranch("doc_2", "cyc_2", parent, ComponentAlternatives, "explore Berlin", NewMarkdownContent("# Branch\n"), t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("NewBranch() error = %v", err)
	}
	if branch.ParentID != parent.ID || branch.BranchPoint != ComponentAlternatives {
		t.Errorf("branch lineage = %q at %q", branch.ParentID, branch.BranchPoint)
	}
	if !branch.IsBranch() {
		t.Error("IsBranch() = false")
	}
	if branch.Version != FirstVersion {
		t.Errorf("branch version = %d, want %d", branch.Version, FirstVersion)
	}
	if err := branch.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	if _, err := NewBranch("doc_3", "cyc_3", nil, ComponentProblem, "", NewMarkdownContent(""), t0); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("NewBranch() without parent error = %v, want ErrInvalidFormat", err)
	}
	if _, err := NewBranch("doc_3", "cyc_3", parent, Component("nope"), "", NewMarkdownContent(""), t0); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("NewBranch() with bad branch point error = %v, want ErrInvalidFormat", err)
	}

	branch.ParentID = ""
	if err := branch.Validate(); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Validate() with orphaned branch point error = %v, want ErrInvalidFormat", err)
	}
}
