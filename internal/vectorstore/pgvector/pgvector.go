// Package pgvector stores every document index in one Postgres table keyed
// by document id.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/vectorstore"
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	db         DB
	tableIdent string
	dimension  int
}

var _ domain.IndexStore = (*Store)(nil)

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn, table string, dimension int) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	s := New(pool, table, dimension)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

func New(db DB, table string, dimension int) *Store {
	if table == "" {
		table = "hrrag_chunks"
	}
	return &Store{db: db, tableIdent: pgx.Identifier{table}.Sanitize(), dimension: dimension}
}

// Migrate creates the extension, table and document index if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if s.dimension <= 0 {
		return errors.New("pgvector: dimension must be greater than zero")
	}
	if _, err := s.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		embedding vector(%d),
		chunk JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`, s.tableIdent, s.dimension)
	if _, err := s.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: create table: %w", err)
	}
	createIndex := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (document_id)",
		pgx.Identifier{trimIdent(s.tableIdent) + "_document_idx"}.Sanitize(), s.tableIdent)
	if _, err := s.db.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("pgvector: create index: %w", err)
	}
	return nil
}

func (s *Store) count(ctx context.Context, documentID string) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT count(*) FROM %s WHERE document_id = $1", s.tableIdent)
	if err := s.db.QueryRow(ctx, q, documentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgvector: count %q: %w", documentID, err)
	}
	return n, nil
}

// Create inserts all rows of the document in one transaction unless rows
// already exist for it.
func (s *Store) Create(ctx context.Context, documentID string, chunks []domain.Chunk, vectors [][]float32) (id string, err error) {
	id = vectorstore.IndexID(documentID)
	n, err := s.count(ctx, documentID)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return id, nil
	}
	dim, err := vectorstore.Validate(chunks, vectors)
	if err != nil {
		return "", err
	}
	if s.dimension > 0 && dim != s.dimension {
		return "", fmt.Errorf("pgvector: got dimension %d want %d: %w", dim, s.dimension, vectorstore.ErrDimensionMismatch)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("pgvector: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("pgvector: rollback failed: %w; original error: %v", rbErr, err)
			}
			id = ""
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("pgvector: commit: %w", commitErr)
			id = ""
		}
	}()
	stmt := fmt.Sprintf(`INSERT INTO %s (id, document_id, chunk_index, embedding, chunk, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`, s.tableIdent)
	now := time.Now().UTC()
	for i := range chunks {
		payload, marshalErr := json.Marshal(chunks[i])
		if marshalErr != nil {
			return id, fmt.Errorf("pgvector: marshal chunk %d: %w", i, marshalErr)
		}
		rowID := fmt.Sprintf("%s:%d", documentID, chunks[i].Index)
		if _, execErr := tx.Exec(ctx, stmt, rowID, documentID, chunks[i].Index, pgv.NewVector(vectors[i]), payload, now); execErr != nil {
			return id, fmt.Errorf("pgvector: insert %q: %w", rowID, execErr)
		}
	}
	return id, nil
}

func (s *Store) Load(ctx context.Context, documentID string) (domain.Index, error) {
	n, err := s.count(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, vectorstore.ErrIndexNotFound
	}
	return &Index{store: s, documentID: documentID, size: int(n)}, nil
}

func (s *Store) Exists(ctx context.Context, documentID string) (bool, error) {
	n, err := s.count(ctx, documentID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Delete(ctx context.Context, documentID string) error {
	tag, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", s.tableIdent), documentID)
	if err != nil {
		return fmt.Errorf("pgvector: delete %q: %w", documentID, err)
	}
	if tag.RowsAffected() == 0 {
		return vectorstore.ErrIndexNotFound
	}
	return nil
}

// Index searches one document's rows with the <-> operator.
type Index struct {
	store      *Store
	documentID string
	size       int
}

var _ domain.Index = (*Index)(nil)

func (x *Index) DocumentID() string { return x.documentID }

func (x *Index) Len() int { return x.size }

func (x *Index) Search(ctx context.Context, query []float32, k int) ([]domain.RetrievedDoc, error) {
	if k <= 0 {
		k = 5
	}
	q := fmt.Sprintf(`SELECT chunk, embedding <-> $1 AS distance FROM %s
WHERE document_id = $2 ORDER BY distance ASC, chunk_index ASC LIMIT $3`, x.store.tableIdent)
	rows, err := x.store.db.Query(ctx, q, pgv.NewVector(query), x.documentID, k)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()
	results := make([]domain.RetrievedDoc, 0, k)
	for rows.Next() {
		var (
			raw  []byte
			dist float64
		)
		if err := rows.Scan(&raw, &dist); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		var chunk domain.Chunk
		if err := json.Unmarshal(raw, &chunk); err != nil {
			return nil, fmt.Errorf("pgvector: decode chunk: %w", err)
		}
		results = append(results, domain.RetrievedDoc{Chunk: chunk, Source: x.documentID, Distance: dist * dist})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: search rows: %w", err)
	}
	return results, nil
}

func trimIdent(ident string) string {
	if len(ident) >= 2 && ident[0] == '"' && ident[len(ident)-1] == '"' {
		return ident[1 : len(ident)-1]
	}
	return ident
}
