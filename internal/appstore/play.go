package appstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// PlayClient scrapes the Google Play web storefront. There is no public
// search API, so both search and details go through the HTML pages. Search
// results do not carry the developer name, which the match validator needs,
// so Play candidates are completed via Details before validation.
type PlayClient struct {
	baseURL   string
	country   string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	base      *colly.Collector
}

// PlayOption configures the Play client.
type PlayOption func(*PlayClient)

// WithPlayBaseURL overrides the storefront origin (for tests).
func WithPlayBaseURL(base string) PlayOption {
	return func(c *PlayClient) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// NewPlayClient builds a Play storefront scraper biased to the given
// country. Every call clones the base collector, so concurrent lookups
// never share collector state.
func NewPlayClient(country, userAgent string, timeout time.Duration, qps float64, opts ...PlayOption) *PlayClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &PlayClient{
		baseURL:   "https://play.google.com",
		country:   country,
		userAgent: userAgent,
		timeout:   timeout,
		base:      colly.NewCollector(colly.Async(false)),
	}
	if qps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(qps), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source implements Client.
func (c *PlayClient) Source() Source { return SourcePlay }

func (c *PlayClient) collector() *colly.Collector {
	collector := c.base.Clone()
	if c.userAgent != "" {
		collector.UserAgent = c.userAgent
	}
	collector.SetRequestTimeout(c.timeout)
	return collector
}

func (c *PlayClient) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrLookup, err)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate wait: %w", ErrLookup, err)
		}
	}
	return nil
}

// Search scrapes the Play search page and returns up to limit app links in
// page order.
func (c *PlayClient) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("c", "apps")
	params.Set("hl", "en")
	params.Set("gl", c.country)
	target := c.baseURL + "/store/search?" + params.Encode()

	var (
		candidates []Candidate
		seen       = make(map[string]struct{})
		visitErr   error
	)

	collector := c.collector()
	collector.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})
	collector.OnHTML("a[href^='/store/apps/details']", func(e *colly.HTMLElement) {
		if len(candidates) >= limit {
			return
		}
		appID := appIDFromHref(e.Attr("href"))
		if appID == "" {
			return
		}
		if _, dup := seen[appID]; dup {
			return
		}
		seen[appID] = struct{}{}

		title := strings.TrimSpace(e.DOM.Find("span").First().Text())
		if title == "" {
			title = strings.TrimSpace(e.Text)
		}
		candidates = append(candidates, Candidate{
			Source: SourcePlay,
			ID:     appID,
			Title:  title,
			URL:    c.detailURL(appID),
		})
	})

	if err := collector.Visit(target); err != nil {
		return nil, fmt.Errorf("%w: play search: %w", ErrLookup, err)
	}
	collector.Wait()
	if visitErr != nil {
		return nil, fmt.Errorf("%w: play search: %w", ErrLookup, visitErr)
	}
	return candidates, nil
}

// Details scrapes the app detail page to complete a search candidate.
func (c *PlayClient) Details(ctx context.Context, cand Candidate) (Candidate, error) {
	if cand.ID == "" {
		return cand, fmt.Errorf("%w: candidate has no app id", ErrLookup)
	}
	if err := c.wait(ctx); err != nil {
		return cand, err
	}

	full := cand
	var visitErr error

	collector := c.collector()
	collector.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})
	collector.OnHTML("h1[itemprop=name]", func(e *colly.HTMLElement) {
		if t := strings.TrimSpace(e.Text); t != "" {
			full.Title = t
		}
	})
	collector.OnHTML("div[data-g-id=description]", func(e *colly.HTMLElement) {
		if full.Description == "" {
			full.Description = strings.TrimSpace(e.Text)
		}
	})
	collector.OnHTML("a[href*='/store/apps/dev']", func(e *colly.HTMLElement) {
		if full.Developer == "" {
			full.Developer = strings.TrimSpace(e.Text)
		}
	})
	collector.OnHTML("[itemprop=genre]", func(e *colly.HTMLElement) {
		if full.Genre == "" {
			full.Genre = strings.TrimSpace(e.Text)
		}
	})
	collector.OnHTML("[itemprop=starRating]", func(e *colly.HTMLElement) {
		if full.Score == 0 {
			full.Score = parseLeadingFloat(e.Text)
		}
	})
	collector.OnHTML("meta[itemprop=price]", func(e *colly.HTMLElement) {
		content := strings.TrimSpace(e.Attr("content"))
		full.Free = content == "" || content == "0"
	})

	if err := collector.Visit(c.detailURL(cand.ID)); err != nil {
		return cand, fmt.Errorf("%w: play details: %w", ErrLookup, err)
	}
	collector.Wait()
	if visitErr != nil {
		return cand, fmt.Errorf("%w: play details: %w", ErrLookup, visitErr)
	}
	full.URL = c.detailURL(cand.ID)
	return full, nil
}

func (c *PlayClient) detailURL(appID string) string {
	params := url.Values{}
	params.Set("id", appID)
	params.Set("hl", "en")
	params.Set("gl", c.country)
	return c.baseURL + "/store/apps/details?" + params.Encode()
}

// appIDFromHref pulls the id query parameter out of a /store/apps/details
// link.
func appIDFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("id")
}

// parseLeadingFloat reads the numeric prefix of strings like "4.3star".
func parseLeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

var _ Client = (*PlayClient)(nil)
