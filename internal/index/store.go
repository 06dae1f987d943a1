// Package index turns merged records into embedded documents and keeps them
// in a semantic index keyed by normalized entity name.
package index

import (
	"context"
	"errors"
	"strings"
)

// ErrIndexing marks an embedding or storage failure for one record. The
// batch logs it and moves on.
var ErrIndexing = errors.New("indexing failed")

// Metadata travels with each indexed document.
type Metadata struct {
	Name     string `json:"name"`
	Website  string `json:"website"`
	Industry string `json:"industry"`
	HasApp   bool   `json:"has_app"`
	AppsJSON string `json:"apps_json"`
	RunID    string `json:"run_id,omitempty"`
}

// Document is one indexed record: identity, embedding, the embedded text,
// and its metadata. ID collisions replace in place, which is what makes
// re-runs idempotent.
type Document struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata Metadata
}

// Store persists documents. Implementations must tolerate concurrent
// upserts to different keys.
type Store interface {
	Upsert(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, bool, error)
	Close() error
}

// NormalizeID derives the upsert identity from an entity name: lowercased,
// spaces collapsed to single dashes.
func NormalizeID(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	return strings.Join(fields, "-")
}
