package enrich

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caldera-data/dirscout/internal/appstore"
	"github.com/caldera-data/dirscout/internal/directory"
	"github.com/caldera-data/dirscout/internal/metrics"
)

// Scanner checks a website for the login/sign-up feature signal in its own
// isolated session.
type Scanner interface {
	Scan(ctx context.Context, url string) (bool, error)
}

// Config controls which enrichment branches run.
type Config struct {
	SearchLimit  int
	LookupApps   bool
	ScanWebsites bool
}

// Worker enriches one entity at a time. The store clients are shared and
// read-only; everything mutable lives on the stack of a single Enrich call.
type Worker struct {
	apple   appstore.Client
	play    appstore.Client
	matcher appstore.Matcher
	scanner Scanner
	cfg     Config
	logger  *zap.Logger
}

// NewWorker builds a Worker. scanner may be nil when website scanning is
// disabled.
func NewWorker(apple, play appstore.Client, scanner Scanner, cfg Config, logger *zap.Logger) *Worker {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 3
	}
	return &Worker{
		apple:   apple,
		play:    play,
		scanner: scanner,
		cfg:     cfg,
		logger:  logger,
	}
}

// Enrich queries both stores and, optionally, the entity's own website
// concurrently, then merges whatever succeeded. A failed branch degrades to
// an absent slot; it never fails the record.
func (w *Worker) Enrich(ctx context.Context, entity directory.Entity) Record {
	start := time.Now()
	defer func() { metrics.ObserveEnrich(time.Since(start)) }()

	var (
		appleApp   *appstore.Candidate
		playApp    *appstore.Candidate
		hasLogin   bool
		scanFailed bool
	)

	var wg sync.WaitGroup
	if w.cfg.LookupApps {
		wg.Add(2)
		go func() {
			defer wg.Done()
			appleApp = w.matchFirst(ctx, w.apple, entity.Name)
		}()
		go func() {
			defer wg.Done()
			playApp = w.matchFirst(ctx, w.play, entity.Name)
		}()
	}
	if w.cfg.ScanWebsites && w.scanner != nil && entity.WebsiteURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found, err := w.scanner.Scan(ctx, entity.WebsiteURL)
			if err != nil {
				scanFailed = true
				w.logger.Debug("website scan failed",
					zap.String("name", entity.Name),
					zap.String("website", entity.WebsiteURL),
					zap.Error(err),
				)
				return
			}
			hasLogin = found
		}()
	}
	wg.Wait()

	// A site that would not even load is no longer considered valid, but the
	// record itself always survives with the URL kept for auditability.
	if scanFailed {
		entity.WebsiteValid = false
	}

	return Record{
		Entity:   entity,
		AppleApp: appleApp,
		PlayApp:  playApp,
		HasLogin: hasLogin,
	}
}

// matchFirst walks a source's candidates in rank order and returns the first
// one the match validator accepts, completed via Details when the search
// result lacked the publisher name.
func (w *Worker) matchFirst(ctx context.Context, client appstore.Client, name string) *appstore.Candidate {
	source := string(client.Source())

	candidates, err := client.Search(ctx, name, w.cfg.SearchLimit)
	if err != nil {
		metrics.RecordLookup(source, false)
		w.logger.Warn("store lookup failed",
			zap.String("source", source),
			zap.String("name", name),
			zap.Error(err),
		)
		return nil
	}
	metrics.RecordLookup(source, true)

	for _, candidate := range candidates {
		if candidate.Developer == "" {
			full, err := client.Details(ctx, candidate)
			if err != nil {
				w.logger.Debug("candidate details failed",
					zap.String("source", source),
					zap.String("title", candidate.Title),
					zap.Error(err),
				)
				continue
			}
			candidate = full
		}

		decision := w.matcher.Decide(name, candidate.Developer)
		if decision.Accepted {
			metrics.RecordMatch(source)
			w.logger.Debug("candidate accepted",
				zap.String("source", source),
				zap.String("query", decision.Query),
				zap.String("publisher", decision.Publisher),
			)
			return &candidate
		}
	}
	return nil
}
