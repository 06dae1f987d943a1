package enrich

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/caldera-data/dirscout/internal/directory"
	"github.com/caldera-data/dirscout/internal/metrics"
)

// Pool runs a fixed-size worker pool over the harvested entity set. Workers
// communicate finished records back over a single collector channel; there
// is no shared accumulator.
type Pool struct {
	worker *Worker
	logger *zap.Logger
}

// NewPool builds a Pool around a Worker.
func NewPool(worker *Worker, logger *zap.Logger) *Pool {
	return &Pool{worker: worker, logger: logger}
}

// Run enriches every entity with the given number of workers and returns
// the merged records. Completion order is not submission order; callers
// must not rely on it.
func (p *Pool) Run(ctx context.Context, entities []directory.Entity, workers int) []Record {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(entities) && len(entities) > 0 {
		workers = len(entities)
	}

	jobs := make(chan directory.Entity)
	results := make(chan Record)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entity := range jobs {
				metrics.IncActiveWorkers()
				record := p.worker.Enrich(ctx, entity)
				metrics.DecActiveWorkers()
				results <- record
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entity := range entities {
			select {
			case <-ctx.Done():
				return
			case jobs <- entity:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	records := make([]Record, 0, len(entities))
	for record := range results {
		records = append(records, record)
	}
	p.logger.Info("enrichment pool finished",
		zap.Int("entities", len(entities)),
		zap.Int("records", len(records)),
	)
	return records
}
