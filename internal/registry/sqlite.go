package registry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kxddry/hr-rag/internal/domain"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS registry (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT '',
	timestamp REAL NOT NULL DEFAULT 0,
	upload_date TEXT NOT NULL DEFAULT '',
	index_key TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT ''
)`

// SQLiteRegistry keeps the catalog in a single SQLite table.
type SQLiteRegistry struct {
	db *sql.DB
}

var _ domain.Registry = (*SQLiteRegistry)(nil)

// NewSQLiteRegistry opens or creates the database at path.
func NewSQLiteRegistry(path string) (*SQLiteRegistry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("registry: creating data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("registry: opening database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: running migrations: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

// Close closes the database connection.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// List returns entries in insertion order. A replaced entry keeps its slot.
func (r *SQLiteRegistry) List(ctx context.Context) ([]domain.RegistryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT document_id, display_name, request_id, timestamp,
		upload_date, index_key, url FROM registry ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	defer rows.Close()
	var out []domain.RegistryEntry
	for rows.Next() {
		var e domain.RegistryEntry
		if err := rows.Scan(&e.DocumentID, &e.DisplayName, &e.RequestID, &e.Timestamp,
			&e.UploadDate, &e.IndexKey, &e.URL); err != nil {
			return nil, fmt.Errorf("registry: scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: list rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRegistry) Append(ctx context.Context, e domain.RegistryEntry) error {
	if err := validate(e); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO registry
		(document_id, display_name, request_id, timestamp, upload_date, index_key, url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			display_name = excluded.display_name,
			request_id = excluded.request_id,
			timestamp = excluded.timestamp,
			upload_date = excluded.upload_date,
			index_key = excluded.index_key,
			url = excluded.url`,
		e.DocumentID, e.DisplayName, e.RequestID, e.Timestamp, e.UploadDate, e.IndexKey, e.URL)
	if err != nil {
		return fmt.Errorf("registry: append %q: %w", e.DocumentID, err)
	}
	return nil
}

func (r *SQLiteRegistry) Remove(ctx context.Context, documentID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM registry WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("registry: remove %q: %w", documentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry: remove %q: %w", documentID, err)
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
