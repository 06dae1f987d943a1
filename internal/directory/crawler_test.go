package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testItemSelector     = "div.item"
	testItemLinkSelector = "div.item a"
	testFilterSelector   = "a.filter[data-alphabet='%s']"
	testLoadMoreSelector = "#loadMore a"
)

func testConfig() Config {
	return Config{
		BaseURL:          "https://directory.test/setup/directory/",
		PageTimeout:      time.Second,
		FilterTimeout:    50 * time.Millisecond,
		LoadMoreTimeout:  50 * time.Millisecond,
		PollInterval:     time.Millisecond,
		MaxLoadMore:      10,
		ItemSelector:     testItemSelector,
		ItemLinkSelector: testItemLinkSelector,
		FilterSelector:   testFilterSelector,
		LoadMoreSelector: testLoadMoreSelector,
	}
}

// fakeSession scripts a partition as cumulative pages of cards, the way the
// hosted listing grows when its expansion control is clicked.
type fakeSession struct {
	pages          [][]Card
	round          int
	filtered       bool
	filterNoEffect bool
	navigateErr    error
}

func (s *fakeSession) Navigate(_ context.Context, _ string) error { return s.navigateErr }

func (s *fakeSession) WaitVisible(_ context.Context, _ string, _ time.Duration) error { return nil }

func (s *fakeSession) Click(_ context.Context, selector string) error {
	switch selector {
	case testLoadMoreSelector:
		if s.round < len(s.pages)-1 {
			s.round++
		}
	default:
		s.filtered = true
	}
	return nil
}

func (s *fakeSession) Visible(_ context.Context, selector string) (bool, error) {
	if selector == testLoadMoreSelector {
		return s.round < len(s.pages)-1, nil
	}
	return true, nil
}

func (s *fakeSession) FirstAttr(_ context.Context, _, _ string) (string, error) {
	if s.filtered && !s.filterNoEffect {
		return "/startup/first-filtered", nil
	}
	return "/startup/first-unfiltered", nil
}

func (s *fakeSession) Count(_ context.Context, _ string) (int, error) {
	return len(s.pages[s.round]), nil
}

func (s *fakeSession) Cards(_ context.Context) ([]Card, error) {
	return s.pages[s.round], nil
}

// failingProber rejects a fixed set of URLs.
type failingProber struct {
	down map[string]bool
}

func (p *failingProber) Probe(_ context.Context, url string) error {
	if p.down[url] {
		return errors.New("connection refused")
	}
	return nil
}

func card(slug, title string, fields ...LabeledField) Card {
	return Card{Href: "/startup/" + slug + "/", Title: title, Fields: fields}
}

func TestScrapePartitionCollectsAcrossPages(t *testing.T) {
	t.Parallel()

	first := []Card{
		card("acme", "Acme", LabeledField{Label: "Industry:", Value: "Fintech"}),
		card("beta", "Beta Labs"),
	}
	// The second page re-renders the first page's cards before the new ones.
	second := append(append([]Card{}, first...),
		card("gamma", "Gamma Works", LabeledField{Label: "Profile:", Value: "We build things."}),
	)

	session := &fakeSession{pages: [][]Card{first, second}}
	crawler := NewCrawler(testConfig(), nil, zap.NewNop())

	entities, err := crawler.ScrapePartition(context.Background(), session, "A")
	require.NoError(t, err)
	require.Len(t, entities, 3)
	require.Equal(t, "Acme", entities[0].Name)
	require.Equal(t, "Fintech", entities[0].Industry)
	require.Equal(t, "Gamma Works", entities[2].Name)
	require.Equal(t, "We build things.", entities[2].Description)
}

func TestScrapePartitionDeduplicatesRerenderedCards(t *testing.T) {
	t.Parallel()

	// The same profile link appears twice in one render.
	page := []Card{
		card("acme", "Acme"),
		card("acme", "Acme"),
	}
	session := &fakeSession{pages: [][]Card{page}}
	crawler := NewCrawler(testConfig(), nil, zap.NewNop())

	entities, err := crawler.ScrapePartition(context.Background(), session, "A")
	require.NoError(t, err)
	require.Len(t, entities, 1)
}

func TestScrapePartitionIsIdempotent(t *testing.T) {
	t.Parallel()

	page := []Card{card("acme", "Acme"), card("beta", "Beta")}
	crawler := NewCrawler(testConfig(), nil, zap.NewNop())

	first, err := crawler.ScrapePartition(context.Background(), &fakeSession{pages: [][]Card{page}}, "A")
	require.NoError(t, err)
	second, err := crawler.ScrapePartition(context.Background(), &fakeSession{pages: [][]Card{page}}, "A")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestScrapePartitionEmptyWhenFilterHasNoEffect(t *testing.T) {
	t.Parallel()

	session := &fakeSession{
		pages:          [][]Card{{card("acme", "Acme")}},
		filterNoEffect: true,
	}
	crawler := NewCrawler(testConfig(), nil, zap.NewNop())

	entities, err := crawler.ScrapePartition(context.Background(), session, "X")
	require.NoError(t, err)
	require.Empty(t, entities)
}

func TestScrapePartitionNavigationFailure(t *testing.T) {
	t.Parallel()

	session := &fakeSession{
		pages:       [][]Card{{}},
		navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED"),
	}
	crawler := NewCrawler(testConfig(), nil, zap.NewNop())

	_, err := crawler.ScrapePartition(context.Background(), session, "A")
	require.ErrorIs(t, err, ErrNavigation)
}

func TestScrapePartitionExcludesDeadWebsites(t *testing.T) {
	t.Parallel()

	page := []Card{
		card("alive", "Alive Co", LabeledField{Label: "Website:", Value: "alive.test"}),
		card("dead", "Dead Co", LabeledField{Label: "Website:", Value: "dead.test"}),
		card("nosite", "No Site Co"),
	}
	session := &fakeSession{pages: [][]Card{page}}

	cfg := testConfig()
	cfg.ValidateWebsites = true
	prober := &failingProber{down: map[string]bool{"http://dead.test": true}}
	crawler := NewCrawler(cfg, prober, zap.NewNop())

	entities, err := crawler.ScrapePartition(context.Background(), session, "A")
	require.NoError(t, err)
	require.Len(t, entities, 2)
	require.Equal(t, "Alive Co", entities[0].Name)
	require.True(t, entities[0].WebsiteValid)
	require.Equal(t, "No Site Co", entities[1].Name)
	require.False(t, entities[1].WebsiteValid)
}

func TestScrapePartitionSkipsMalformedCards(t *testing.T) {
	t.Parallel()

	page := []Card{
		{Href: "", Title: "No Link Co"},
		{Href: "/startup/untitled/", Title: "   "},
		card("fine", "Fine Co"),
	}
	session := &fakeSession{pages: [][]Card{page}}
	crawler := NewCrawler(testConfig(), nil, zap.NewNop())

	entities, err := crawler.ScrapePartition(context.Background(), session, "F")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	require.Equal(t, "Fine Co", entities[0].Name)
}

func TestScrapePartitionStopsAtLoadMoreCeiling(t *testing.T) {
	t.Parallel()

	// More pages than the configured ceiling allows.
	pages := make([][]Card, 0, 6)
	var cumulative []Card
	for i := 0; i < 6; i++ {
		cumulative = append(cumulative, card(fmt.Sprintf("s%d", i), fmt.Sprintf("Startup %d", i)))
		pages = append(pages, append([]Card{}, cumulative...))
	}

	cfg := testConfig()
	cfg.MaxLoadMore = 3
	session := &fakeSession{pages: pages}
	crawler := NewCrawler(cfg, nil, zap.NewNop())

	entities, err := crawler.ScrapePartition(context.Background(), session, "S")
	require.NoError(t, err)
	require.Len(t, entities, 3)
}
