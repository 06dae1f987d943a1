package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/caldera-data/dirscout/internal/enrich"
	"github.com/caldera-data/dirscout/internal/metrics"
)

// Indexer embeds merged records and writes them into a Store. One record
// failing never stops the batch.
type Indexer struct {
	embedder Embedder
	store    Store
	runID    string
	logger   *zap.Logger
}

// NewIndexer wires an embedder and store together under a run ID that is
// stamped onto every document's metadata.
func NewIndexer(embedder Embedder, store Store, runID string, logger *zap.Logger) *Indexer {
	return &Indexer{embedder: embedder, store: store, runID: runID, logger: logger}
}

// IndexAll builds one document per record, embeds them in a single batch,
// and upserts each into the store. It returns the number of documents
// successfully stored.
func (ix *Indexer) IndexAll(ctx context.Context, records []enrich.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		doc, err := ix.buildDocument(rec)
		if err != nil {
			metrics.RecordUpsert(false)
			ix.logger.Warn("skipping record",
				zap.String("name", rec.Entity.Name),
				zap.Error(err),
			)
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIndexing, err)
	}
	if len(vectors) != len(docs) {
		return 0, fmt.Errorf("%w: got %d vectors for %d documents", ErrIndexing, len(vectors), len(docs))
	}

	stored := 0
	for i, doc := range docs {
		doc.Vector = vectors[i]
		if err := ix.store.Upsert(ctx, doc); err != nil {
			metrics.RecordUpsert(false)
			ix.logger.Warn("upsert failed",
				zap.String("id", doc.ID),
				zap.Error(fmt.Errorf("%w: %v", ErrIndexing, err)),
			)
			continue
		}
		metrics.RecordUpsert(true)
		stored++
		ix.logger.Debug("indexed",
			zap.String("id", doc.ID),
			zap.Bool("has_app", doc.Metadata.HasApp),
		)
	}
	return stored, nil
}

// buildDocument assembles the embedding text and metadata for one record.
// The text is the profile description followed by one titled section per
// validated app, so companies with apps embed richer documents.
func (ix *Indexer) buildDocument(rec enrich.Record) (Document, error) {
	name := strings.TrimSpace(rec.Entity.Name)
	if name == "" {
		return Document{}, fmt.Errorf("%w: record has no name", ErrIndexing)
	}

	var text strings.Builder
	text.WriteString(rec.Entity.Description)
	apps := rec.Apps()
	for _, app := range apps {
		fmt.Fprintf(&text, "\n\n--- App: %s ---\n%s", app.Title, app.Description)
	}

	appsJSON := "[]"
	if len(apps) > 0 {
		raw, err := json.Marshal(apps)
		if err != nil {
			return Document{}, fmt.Errorf("%w: marshal apps: %v", ErrIndexing, err)
		}
		appsJSON = string(raw)
	}

	return Document{
		ID:   NormalizeID(name),
		Text: text.String(),
		Metadata: Metadata{
			Name:     name,
			Website:  rec.Entity.WebsiteURL,
			Industry: rec.Entity.Industry,
			HasApp:   rec.HasApp(),
			AppsJSON: appsJSON,
			RunID:    ix.runID,
		},
	}, nil
}
