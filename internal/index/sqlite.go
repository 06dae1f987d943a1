package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // sqlite driver
)

// SQLiteStore keeps documents in a local SQLite file, for runs that do not
// have a Postgres at hand. Vectors are stored as JSON arrays.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("index.sqlite_path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// under the concurrent upserts the enrichment pool produces.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS startup_documents (
			id TEXT PRIMARY KEY,
			embedding TEXT NOT NULL,
			document TEXT NOT NULL,
			metadata TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the document under its ID.
func (s *SQLiteStore) Upsert(ctx context.Context, doc Document) error {
	vector, err := json.Marshal(doc.Vector)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	const query = `
		INSERT INTO startup_documents (id, embedding, document, metadata, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			document = excluded.document,
			metadata = excluded.metadata,
			updated_at = datetime('now')`

	if _, err := s.db.ExecContext(ctx, query, doc.ID, string(vector), doc.Text, string(metadata)); err != nil {
		return fmt.Errorf("upsert document %q: %w", doc.ID, err)
	}
	return nil
}

// Get fetches the document under id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Document, bool, error) {
	const query = `SELECT embedding, document, metadata FROM startup_documents WHERE id = ?`

	var vector, text, metadata string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&vector, &text, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("get document %q: %w", id, err)
	}

	doc := Document{ID: id, Text: text}
	if err := json.Unmarshal([]byte(vector), &doc.Vector); err != nil {
		return Document{}, false, fmt.Errorf("unmarshal embedding for %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
		return Document{}, false, fmt.Errorf("unmarshal metadata for %q: %w", id, err)
	}
	return doc, true, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite index: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
