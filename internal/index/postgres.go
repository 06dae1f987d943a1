package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool behind the Postgres store.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps documents in a Postgres table, embedding stored as a
// real[] column. Concurrent upserts to different keys are safe; same-key
// upserts are last-write-wins.
type PostgresStore struct {
	pool  pgPool
	table string
}

// NewPostgresStore connects a pool and ensures the schema exists.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("index.postgres_dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "startup_documents"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	store := &PostgresStore{pool: pool, table: table}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithPool wires an existing pool, bypassing connection
// setup. Used by tests with pgxmock.
func NewPostgresStoreWithPool(pool pgPool, table string) *PostgresStore {
	if table == "" {
		table = "startup_documents"
	}
	return &PostgresStore{pool: pool, table: table}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding REAL[] NOT NULL,
			document TEXT NOT NULL,
			metadata JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the document under its ID.
func (s *PostgresStore) Upsert(ctx context.Context, doc Document) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, document, metadata, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			document = EXCLUDED.document,
			metadata = EXCLUDED.metadata,
			updated_at = now()`, s.table)

	if _, err := s.pool.Exec(ctx, query, doc.ID, doc.Vector, doc.Text, metadata); err != nil {
		return fmt.Errorf("upsert document %q: %w", doc.ID, err)
	}
	return nil
}

// Get fetches the document under id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Document, bool, error) {
	query := fmt.Sprintf(
		`SELECT embedding, document, metadata FROM %s WHERE id = $1`, s.table)

	var (
		vector   []float32
		text     string
		metadata []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(&vector, &text, &metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("get document %q: %w", id, err)
	}

	doc := Document{ID: id, Vector: vector, Text: text}
	if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
		return Document{}, false, fmt.Errorf("unmarshal metadata for %q: %w", id, err)
	}
	return doc, true, nil
}

// Close shuts the pool down.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
