package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// AppleClient queries the iTunes Search API. Search results from this API
// are already detail-complete, so Details is a pass-through.
type AppleClient struct {
	baseURL string
	country string
	http    *http.Client
	limiter *rate.Limiter
}

// AppleOption configures the Apple client.
type AppleOption func(*AppleClient)

// WithAppleBaseURL overrides the API endpoint (for tests).
func WithAppleBaseURL(base string) AppleOption {
	return func(c *AppleClient) {
		c.baseURL = base
	}
}

// WithAppleHTTPClient sets a custom HTTP client.
func WithAppleHTTPClient(hc *http.Client) AppleOption {
	return func(c *AppleClient) {
		c.http = hc
	}
}

// NewAppleClient builds a client biased to the given storefront country.
// The iTunes API throttles aggressively, so calls are rate limited; qps <= 0
// disables the limiter.
func NewAppleClient(country string, timeout time.Duration, qps float64, opts ...AppleOption) *AppleClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &AppleClient{
		baseURL: "https://itunes.apple.com",
		country: country,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
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
func (c *AppleClient) Source() Source { return SourceApple }

// appleResult is the wire shape of one iTunes search hit.
type appleResult struct {
	TrackID          int64   `json:"trackId"`
	TrackName        string  `json:"trackName"`
	Description      string  `json:"description"`
	PrimaryGenreName string  `json:"primaryGenreName"`
	AverageRating    float64 `json:"averageUserRating"`
	RatingCount      int64   `json:"userRatingCount"`
	Price            float64 `json:"price"`
	ArtistName       string  `json:"artistName"`
	TrackViewURL     string  `json:"trackViewUrl"`
}

// Search queries the software storefront for the given term.
func (c *AppleClient) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate wait: %w", ErrLookup, err)
		}
	}

	params := url.Values{}
	params.Set("term", query)
	params.Set("country", c.country)
	params.Set("media", "software")
	params.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrLookup, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: itunes search: %w", ErrLookup, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: itunes search: status %d: %s", ErrLookup, resp.StatusCode, body)
	}

	var parsed struct {
		Results []appleResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode itunes response: %w", ErrLookup, err)
	}

	candidates := make([]Candidate, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		candidates = append(candidates, Candidate{
			Source:      SourceApple,
			ID:          strconv.FormatInt(r.TrackID, 10),
			Title:       r.TrackName,
			Description: r.Description,
			Genre:       r.PrimaryGenreName,
			Score:       r.AverageRating,
			Ratings:     r.RatingCount,
			Free:        r.Price == 0,
			Developer:   r.ArtistName,
			URL:         r.TrackViewURL,
		})
	}
	return candidates, nil
}

// Details is the identity for Apple: search results carry everything.
func (c *AppleClient) Details(_ context.Context, cand Candidate) (Candidate, error) {
	return cand, nil
}

var _ Client = (*AppleClient)(nil)
