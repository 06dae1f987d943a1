package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrProbe marks a website that failed the liveness check: transport error,
// timeout, or a non-2xx document response.
var ErrProbe = errors.New("website probe failed")

// probeTimeout falls back when the driver config leaves it unset.
const defaultProbeTimeout = 15 * time.Second

// responseStatus captures the status of the first document response seen on
// a probe session.
type responseStatus struct {
	once   sync.Once
	status int
}

func (m *responseStatus) capture(ev interface{}) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument {
		return
	}
	m.once.Do(func() {
		m.status = int(resp.Response.Status)
	})
}

// Probe opens url in a fresh, isolated browser context and verifies the
// document loads with a 2xx status. It implements directory.Prober. A hung
// or redirecting site can never disturb a crawl session because the probe
// context is its own browser.
func (d *Driver) Probe(ctx context.Context, url string) error {
	probeCtx, cancel := chromedp.NewContext(d.allocator)
	defer cancel()

	timeout := d.cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	taskCtx, cancelTask := context.WithTimeout(probeCtx, timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := &responseStatus{}
	chromedp.ListenTarget(taskCtx, meta.capture)

	err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProbe, url, err)
	}
	if meta.status < 200 || meta.status > 299 {
		return fmt.Errorf("%w: %s: status %d", ErrProbe, url, meta.status)
	}
	return nil
}

// FeatureScanner checks websites for login/sign-up affordances, the feature
// signal carried into the merged record.
type FeatureScanner struct {
	driver   *Driver
	keywords *regexp.Regexp
	logger   *zap.Logger
}

// NewFeatureScanner compiles the keyword set into one case-insensitive
// pattern. An empty keyword list yields a scanner that always reports false.
func NewFeatureScanner(driver *Driver, keywords []string, logger *zap.Logger) (*FeatureScanner, error) {
	if len(keywords) == 0 {
		return &FeatureScanner{driver: driver, logger: logger}, nil
	}
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			quoted = append(quoted, regexp.QuoteMeta(kw))
		}
	}
	pattern, err := regexp.Compile("(?i)(" + strings.Join(quoted, "|") + ")")
	if err != nil {
		return nil, fmt.Errorf("compile scan keywords: %w", err)
	}
	return &FeatureScanner{driver: driver, keywords: pattern, logger: logger}, nil
}

// Scan visits url in its own isolated session and reports whether any
// interactive element carries one of the configured keywords.
func (s *FeatureScanner) Scan(ctx context.Context, url string) (bool, error) {
	if s.keywords == nil || url == "" {
		return false, nil
	}

	scanCtx, cancel := chromedp.NewContext(s.driver.allocator)
	defer cancel()

	timeout := s.driver.cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	taskCtx, cancelTask := context.WithTimeout(scanCtx, timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	var texts []string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(
			`Array.from(document.querySelectorAll('a, button')).map(el => el.textContent.trim()).filter(t => t.length > 0)`,
			&texts,
		),
	)
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", url, err)
	}

	for _, text := range texts {
		if s.keywords.MatchString(text) {
			s.logger.Debug("feature keyword found",
				zap.String("url", url),
				zap.String("text", text),
			)
			return true, nil
		}
	}
	return false, nil
}
