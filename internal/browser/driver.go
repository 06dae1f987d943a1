// Package browser wraps chromedp behind the small page-automation surface
// the harvest pipeline needs: isolated sessions, a liveness probe, and a
// login/sign-up feature scan.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/caldera-data/dirscout/internal/directory"
)

// Config controls the shared browser process and per-session behavior.
type Config struct {
	Headless     bool
	UserAgent    string
	OpTimeout    time.Duration // bound on individual DOM operations
	ProbeTimeout time.Duration // bound on liveness probes and feature scans

	// Selectors used to lift listing cards out of the rendered page.
	ItemSelector  string
	TitleSelector string
	FieldSelector string
	LabelSelector string
}

// Driver owns the chromedp exec allocator. Every Session minted from it gets
// its own browser context, so no two sessions can observe each other's
// navigation state.
type Driver struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewDriver starts the allocator. Close must be called to reap the browser.
func NewDriver(cfg Config, logger *zap.Logger) (*Driver, error) {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 10 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Driver{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context, tearing down any remaining browsers.
func (d *Driver) Close() {
	d.allocCancel()
}

// NewSession mints an isolated browsing session. The returned cleanup
// function closes the session's browser context.
func (d *Driver) NewSession(ctx context.Context) (directory.Session, func(), error) {
	tabCtx, cancel := chromedp.NewContext(d.allocator)

	// Warm up the browser so session failures surface here, not on the
	// first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	stopForward := forwardCancel(ctx, cancel)
	session := &Session{
		cfg: d.cfg,
		ctx: tabCtx,
	}
	cleanup := func() {
		stopForward()
		cancel()
	}
	return session, cleanup, nil
}

// forwardCancel propagates cancellation from the caller's context into a
// chromedp context that does not descend from it.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
