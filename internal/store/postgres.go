package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, used to detect a second document landing on the same cycle.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const documentColumns = `
	id, cycle_id, user_id, file_path, content_checksum, content_size,
	version, sync_source, last_synced_at,
	COALESCE(parent_id, ''), branch_point, branch_label,
	title, created_at, updated_at, updated_by
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (DocumentRecord, error) {
	var rec DocumentRecord
	err := row.Scan(
		&rec.ID, &rec.CycleID, &rec.UserID, &rec.FilePath, &rec.ContentChecksum, &rec.ContentSize,
		&rec.Version, &rec.SyncSource, &rec.LastSyncedAt,
		&rec.ParentID, &rec.BranchPoint, &rec.BranchLabel,
		&rec.Title, &rec.CreatedAt, &rec.UpdatedAt, &rec.UpdatedBy,
	)
	return rec, err
}

func (s *PostgresStore) InsertDocument(ctx context.Context, rec DocumentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (
			id, cycle_id, user_id, file_path, content_checksum, content_size,
			version, sync_source, last_synced_at,
			parent_id, branch_point, branch_label,
			search_text, title, created_at, updated_at, updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14, $15, $16, $17)
	`,
		rec.ID, rec.CycleID, rec.UserID, rec.FilePath, rec.ContentChecksum, rec.ContentSize,
		rec.Version, rec.SyncSource, rec.LastSyncedAt,
		rec.ParentID, rec.BranchPoint, rec.BranchLabel,
		rec.SearchText, rec.Title, rec.CreatedAt, rec.UpdatedAt, rec.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// UpdateDocumentVersioned applies a conditional update guarded by the caller's
// expected version. It reports false when no row matched, which the caller
// disambiguates into missing-or-conflict.
func (s *PostgresStore) UpdateDocumentVersioned(ctx context.Context, rec DocumentRecord, expectedVersion int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET content_checksum=$1, content_size=$2, version=$3, sync_source=$4,
			last_synced_at=$5, search_text=$6, title=$7, updated_at=$8, updated_by=$9
		WHERE id=$10 AND version=$11
	`,
		rec.ContentChecksum, rec.ContentSize, rec.Version, rec.SyncSource,
		rec.LastSyncedAt, rec.SearchText, rec.Title, rec.UpdatedAt, rec.UpdatedBy,
		rec.ID, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update document rows: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	return scanDocument(row)
}

func (s *PostgresStore) GetDocumentByCycle(ctx context.Context, cycleID string) (DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE cycle_id=$1`, cycleID)
	return scanDocument(row)
}

func (s *PostgresStore) GetDocumentByPath(ctx context.Context, filePath string) (DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE file_path=$1`, filePath)
	return scanDocument(row)
}

func (s *PostgresStore) DocumentExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE id=$1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) DocumentExistsByPath(ctx context.Context, filePath string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE file_path=$1)`, filePath).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document path: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete document rows: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]DocumentRecord, error) {
	return s.listDocuments(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY updated_at DESC`)
}

func (s *PostgresStore) ListUserDocuments(ctx context.Context, userID string) ([]DocumentRecord, error) {
	return s.listDocuments(ctx, `SELECT `+documentColumns+` FROM documents WHERE user_id=$1 ORDER BY updated_at DESC`, userID)
}

func (s *PostgresStore) listDocuments(ctx context.Context, query string, args ...any) ([]DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]DocumentRecord, 0)
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (s *PostgresStore) InsertVersionHistory(ctx context.Context, entry VersionHistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO version_history (document_id, version, checksum, sync_source, updated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (document_id, version) DO NOTHING
	`, entry.DocumentID, entry.Version, entry.Checksum, entry.SyncSource, entry.UpdatedBy, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert version history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListVersionHistory(ctx context.Context, documentID string) ([]VersionHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, version, checksum, sync_source, updated_by, created_at
		FROM version_history
		WHERE document_id=$1
		ORDER BY version ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list version history: %w", err)
	}
	defer rows.Close()

	items := make([]VersionHistoryEntry, 0)
	for rows.Next() {
		var e VersionHistoryEntry
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Version, &e.Checksum, &e.SyncSource, &e.UpdatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version history: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// DocumentTree walks branch lineage down from a root document.
func (s *PostgresStore) DocumentTree(ctx context.Context, rootID string) ([]DocumentTreeNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE tree AS (
			SELECT id, COALESCE(parent_id, '') AS parent_id, branch_point, branch_label, title, 0 AS depth
			FROM documents WHERE id=$1
			UNION ALL
			SELECT d.id, COALESCE(d.parent_id, ''), d.branch_point, d.branch_label, d.title, t.depth + 1
			FROM documents d
			JOIN tree t ON d.parent_id = t.id
		)
		SELECT id, parent_id, branch_point, branch_label, title, depth
		FROM tree
		ORDER BY depth, id
	`, rootID)
	if err != nil {
		return nil, fmt.Errorf("document tree: %w", err)
	}
	defer rows.Close()

	nodes := make([]DocumentTreeNode, 0)
	for rows.Next() {
		var n DocumentTreeNode
		if err := rows.Scan(&n.ID, &n.ParentID, &n.BranchPoint, &n.BranchLabel, &n.Title, &n.Depth); err != nil {
			return nil, fmt.Errorf("scan tree node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}
