package directory

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caldera-data/dirscout/internal/metrics"
)

// SessionFactory mints isolated browsing sessions, one per partition.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, func(), error)
}

// Scheduler runs partitions concurrently under an admission gate.
type Scheduler struct {
	crawler  *Crawler
	sessions SessionFactory
	logger   *zap.Logger
}

// NewScheduler builds a Scheduler around a Crawler and a session factory.
func NewScheduler(crawler *Crawler, sessions SessionFactory, logger *zap.Logger) *Scheduler {
	return &Scheduler{crawler: crawler, sessions: sessions, logger: logger}
}

// Run crawls every requested partition with at most limit in flight, each in
// its own session. A failed partition yields an empty result and never
// cancels its siblings; all partitions are awaited to completion.
func (s *Scheduler) Run(ctx context.Context, letters []string, limit int) map[string][]Entity {
	if limit <= 0 {
		limit = 1
	}

	// Deliberately not errgroup.WithContext: one partition's fault must not
	// propagate cancellation to the others.
	g := new(errgroup.Group)
	g.SetLimit(limit)

	results := make([][]Entity, len(letters))
	for i, letter := range letters {
		g.Go(func() error {
			results[i] = s.runPartition(ctx, letter)
			return nil
		})
	}
	_ = g.Wait()

	merged := make(map[string][]Entity, len(letters))
	for i, letter := range letters {
		merged[letter] = results[i]
	}
	return merged
}

func (s *Scheduler) runPartition(ctx context.Context, letter string) []Entity {
	log := s.logger.With(zap.String("letter", letter))
	log.Info("starting partition")

	session, closeSession, err := s.sessions.NewSession(ctx)
	if err != nil {
		metrics.RecordPartition(letter, "session_error")
		log.Error("could not open browsing session", zap.Error(err))
		return nil
	}
	defer closeSession()

	entities, err := s.crawler.ScrapePartition(ctx, session, letter)
	if err != nil {
		metrics.RecordPartition(letter, "failed")
		log.Error("partition failed", zap.Error(err))
		return nil
	}
	metrics.RecordPartition(letter, "ok")
	return entities
}
