package appstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const playSearchBody = `<html><body>
	<a href="/store/apps/details?id=com.acme.wallet"><span>Acme Wallet</span></a>
	<a href="/store/apps/details?id=com.acme.wallet"><span>Acme Wallet (again)</span></a>
	<a href="/store/apps/details?id=com.beta.app"><span>Beta App</span></a>
	<a href="/store/apps/details?id=com.gamma.app"><span>Gamma App</span></a>
	<a href="/store/search?q=other">unrelated link</a>
</body></html>`

const playDetailBody = `<html><body>
	<h1 itemprop="name">Acme Wallet</h1>
	<div data-g-id="description">Payments on the go.</div>
	<a href="/store/apps/dev?id=5551234">Acme Technologies</a>
	<span itemprop="genre">Finance</span>
	<div itemprop="starRating">4.3star</div>
	<meta itemprop="price" content="0">
</body></html>`

func playTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/store/search":
			_, _ = w.Write([]byte(playSearchBody))
		case "/store/apps/details":
			_, _ = w.Write([]byte(playDetailBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPlaySearch(t *testing.T) {
	t.Parallel()

	srv := playTestServer(t)
	client := NewPlayClient("ae", "test-agent", time.Second, 0, WithPlayBaseURL(srv.URL))

	candidates, err := client.Search(context.Background(), "acme", 2)
	require.NoError(t, err)

	// Duplicate links collapse and the limit caps the rest.
	require.Len(t, candidates, 2)
	require.Equal(t, "com.acme.wallet", candidates[0].ID)
	require.Equal(t, "Acme Wallet", candidates[0].Title)
	require.Equal(t, SourcePlay, candidates[0].Source)
	require.Empty(t, candidates[0].Developer)
	require.Equal(t, "com.beta.app", candidates[1].ID)
}

func TestPlayDetails(t *testing.T) {
	t.Parallel()

	srv := playTestServer(t)
	client := NewPlayClient("ae", "test-agent", time.Second, 0, WithPlayBaseURL(srv.URL))

	full, err := client.Details(context.Background(), Candidate{
		Source: SourcePlay,
		ID:     "com.acme.wallet",
		Title:  "Acme Wallet",
	})
	require.NoError(t, err)
	require.Equal(t, "Acme Wallet", full.Title)
	require.Equal(t, "Payments on the go.", full.Description)
	require.Equal(t, "Acme Technologies", full.Developer)
	require.Equal(t, "Finance", full.Genre)
	require.InDelta(t, 4.3, full.Score, 0.001)
	require.True(t, full.Free)
}

func TestPlayDetailsRequiresID(t *testing.T) {
	t.Parallel()

	client := NewPlayClient("ae", "test-agent", time.Second, 0)
	_, err := client.Details(context.Background(), Candidate{Source: SourcePlay})
	require.ErrorIs(t, err, ErrLookup)
}

func TestPlaySearchServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client := NewPlayClient("ae", "test-agent", time.Second, 0, WithPlayBaseURL(srv.URL))
	_, err := client.Search(context.Background(), "acme", 3)
	require.ErrorIs(t, err, ErrLookup)
}

func TestParseLeadingFloat(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 4.3, parseLeadingFloat("4.3star"), 0.001)
	require.InDelta(t, 5, parseLeadingFloat("5"), 0.001)
	require.Zero(t, parseLeadingFloat("star"))
	require.Zero(t, parseLeadingFloat(""))
}

func TestAppIDFromHref(t *testing.T) {
	t.Parallel()

	require.Equal(t, "com.acme.wallet", appIDFromHref("/store/apps/details?id=com.acme.wallet&hl=en"))
	require.Empty(t, appIDFromHref("/store/search?q=acme"))
}
