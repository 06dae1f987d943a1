package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/caldera-data/dirscout/internal/metrics"
)

// ErrNavigation marks a failure to drive the hosted page at all: the entry
// page never loaded, or the session died mid-crawl. It terminates the
// affected partition only.
var ErrNavigation = errors.New("directory navigation failed")

// Session is the page-automation surface the crawler drives. Each partition
// owns exactly one Session; no session is ever shared across partitions.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	Visible(ctx context.Context, selector string) (bool, error)
	FirstAttr(ctx context.Context, selector, attr string) (string, error)
	Count(ctx context.Context, selector string) (int, error)
	Cards(ctx context.Context) ([]Card, error)
}

// Prober checks that a website is alive. Implementations must run each
// probe in an execution context isolated from the crawling session.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

// Config captures the knobs for one directory crawl.
type Config struct {
	BaseURL          string
	PageTimeout      time.Duration
	FilterTimeout    time.Duration
	LoadMoreTimeout  time.Duration
	PollInterval     time.Duration
	MaxLoadMore      int
	ValidateWebsites bool

	ItemSelector     string
	ItemLinkSelector string
	FilterSelector   string // contains one %s for the letter
	LoadMoreSelector string
}

// Crawler scrapes one alphabetical partition of the directory at a time.
type Crawler struct {
	cfg    Config
	prober Prober
	logger *zap.Logger
}

// NewCrawler builds a Crawler. The prober may be nil, in which case website
// validation is skipped regardless of configuration.
func NewCrawler(cfg Config, prober Prober, logger *zap.Logger) *Crawler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.MaxLoadMore <= 0 {
		cfg.MaxLoadMore = 200
	}
	return &Crawler{cfg: cfg, prober: prober, logger: logger}
}

// crawlState is partition-local. It is never shared, which is what makes
// partition-level concurrency safe without locks.
type crawlState struct {
	processed map[string]struct{}
	accepted  []Entity
}

// ScrapePartition drives one letter of the directory: filter, expand,
// extract, validate. It returns the accepted entities in DOM-visible order.
// A partition that yields nothing is a normal outcome, not an error.
func (c *Crawler) ScrapePartition(ctx context.Context, session Session, letter string) ([]Entity, error) {
	log := c.logger.With(zap.String("letter", letter))
	state := &crawlState{processed: make(map[string]struct{})}

	if err := session.Navigate(ctx, c.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrNavigation, c.cfg.BaseURL, err)
	}
	if err := session.WaitVisible(ctx, c.cfg.ItemLinkSelector, c.cfg.PageTimeout); err != nil {
		return nil, fmt.Errorf("%w: initial listing never appeared: %w", ErrNavigation, err)
	}

	// Take a marker before filtering so we can positively confirm the
	// listing changed afterwards.
	marker, err := session.FirstAttr(ctx, c.cfg.ItemLinkSelector, "href")
	if err != nil {
		return nil, fmt.Errorf("%w: read filter marker: %w", ErrNavigation, err)
	}

	if err := session.Click(ctx, fmt.Sprintf(c.cfg.FilterSelector, letter)); err != nil {
		return nil, fmt.Errorf("%w: click letter filter: %w", ErrNavigation, err)
	}
	if !c.waitFilterApplied(ctx, session, marker) {
		// A filter click with no observable effect means the partition has
		// zero results, not that something broke.
		log.Info("listing unchanged after filter, treating partition as empty")
		return nil, nil
	}

	for round := 0; round < c.cfg.MaxLoadMore; round++ {
		cards, err := session.Cards(ctx)
		if err != nil {
			log.Warn("listing extraction aborted", zap.Error(err))
			return state.accepted, nil
		}

		for _, card := range cards {
			c.processCard(ctx, state, card, log)
		}

		if !c.loadMore(ctx, session, len(cards), log) {
			break
		}
	}

	metrics.AddHarvested(letter, len(state.accepted))
	log.Info("partition finished",
		zap.Int("accepted", len(state.accepted)),
		zap.Int("processed", len(state.processed)),
	)
	return state.accepted, nil
}

// processCard extracts, dedups and validates a single listing card. A
// malformed card is skipped; it never aborts the partition.
func (c *Crawler) processCard(ctx context.Context, state *crawlState, card Card, log *zap.Logger) {
	entity, err := DecodeCard(c.cfg.BaseURL, card)
	if err != nil {
		log.Debug("skipping malformed card", zap.Error(err))
		return
	}
	if _, seen := state.processed[entity.IdentityKey]; seen {
		// The page re-rendered an item we already handled.
		return
	}
	state.processed[entity.IdentityKey] = struct{}{}

	if entity.WebsiteURL != "" {
		entity.WebsiteValid = true
		if c.cfg.ValidateWebsites && c.prober != nil {
			if err := c.prober.Probe(ctx, entity.WebsiteURL); err != nil {
				metrics.RecordProbe(false)
				log.Info("website failed validation, excluding entity",
					zap.String("name", entity.Name),
					zap.String("website", entity.WebsiteURL),
					zap.Error(err),
				)
				return
			}
			metrics.RecordProbe(true)
		}
	}

	state.accepted = append(state.accepted, entity)
}

// loadMore clicks the expansion control if present and waits for the visible
// item count to strictly increase. Returns false when the partition is
// exhausted.
func (c *Crawler) loadMore(ctx context.Context, session Session, visible int, log *zap.Logger) bool {
	present, err := session.Visible(ctx, c.cfg.LoadMoreSelector)
	if err != nil || !present {
		return false
	}
	if err := session.Click(ctx, c.cfg.LoadMoreSelector); err != nil {
		log.Warn("load-more click failed", zap.Error(err))
		return false
	}
	if !c.waitCountAbove(ctx, session, visible) {
		log.Info("load-more produced no growth, partition exhausted", zap.Int("visible", visible))
		return false
	}
	return true
}

// waitFilterApplied polls until the first listing href differs from the
// pre-filter marker, bounded by the filter timeout.
func (c *Crawler) waitFilterApplied(ctx context.Context, session Session, marker string) bool {
	deadline := time.Now().Add(c.cfg.FilterTimeout)
	for {
		current, err := session.FirstAttr(ctx, c.cfg.ItemLinkSelector, "href")
		if err == nil && current != marker {
			return true
		}
		if !c.sleepUntil(ctx, deadline) {
			return false
		}
	}
}

// waitCountAbove polls until more than n items are visible, bounded by the
// load-more timeout.
func (c *Crawler) waitCountAbove(ctx context.Context, session Session, n int) bool {
	deadline := time.Now().Add(c.cfg.LoadMoreTimeout)
	for {
		count, err := session.Count(ctx, c.cfg.ItemSelector)
		if err == nil && count > n {
			return true
		}
		if !c.sleepUntil(ctx, deadline) {
			return false
		}
	}
}

func (c *Crawler) sleepUntil(ctx context.Context, deadline time.Time) bool {
	if time.Now().After(deadline) {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.cfg.PollInterval):
		return true
	}
}
