package directory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const cardBaseURL = "https://directory.test/setup/directory/"

func TestDecodeCard(t *testing.T) {
	t.Parallel()

	t.Run("full card", func(t *testing.T) {
		entity, err := DecodeCard(cardBaseURL, Card{
			Href:  "/startup/acme/",
			Title: "  Acme  ",
			Fields: []LabeledField{
				{Label: "Industry:", Value: "Fintech"},
				{Label: "Profile:", Value: "Payments for small businesses."},
				{Label: "Website:", Value: "acme.test"},
			},
		})
		require.NoError(t, err)
		require.Equal(t, "Acme", entity.Name)
		require.Equal(t, "https://directory.test/startup/acme/", entity.IdentityKey)
		require.Equal(t, entity.IdentityKey, entity.ProfileURL)
		require.Equal(t, "Fintech", entity.Industry)
		require.Equal(t, "Payments for small businesses.", entity.Description)
		require.Equal(t, "http://acme.test", entity.WebsiteURL)
	})

	t.Run("label casing and padding", func(t *testing.T) {
		entity, err := DecodeCard(cardBaseURL, Card{
			Href:  "/startup/beta/",
			Title: "Beta",
			Fields: []LabeledField{
				{Label: "  INDUSTRY  ", Value: "Logistics"},
			},
		})
		require.NoError(t, err)
		require.Equal(t, "Logistics", entity.Industry)
	})

	t.Run("unknown labels dropped", func(t *testing.T) {
		entity, err := DecodeCard(cardBaseURL, Card{
			Href:  "/startup/gamma/",
			Title: "Gamma",
			Fields: []LabeledField{
				{Label: "Founded:", Value: "2019"},
			},
		})
		require.NoError(t, err)
		require.Empty(t, entity.Industry)
		require.Empty(t, entity.Description)
		require.Empty(t, entity.WebsiteURL)
	})

	t.Run("missing href is a fault", func(t *testing.T) {
		_, err := DecodeCard(cardBaseURL, Card{Title: "Nameless"})
		require.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("missing title is a fault", func(t *testing.T) {
		_, err := DecodeCard(cardBaseURL, Card{Href: "/startup/x/"})
		require.ErrorIs(t, err, ErrExtraction)
	})
}

func TestIdentityKeyFor(t *testing.T) {
	t.Parallel()

	t.Run("relative and absolute refs agree", func(t *testing.T) {
		rel, err := IdentityKeyFor(cardBaseURL, "/startup/acme/")
		require.NoError(t, err)
		abs, err := IdentityKeyFor(cardBaseURL, "https://directory.test/startup/acme/")
		require.NoError(t, err)
		require.Equal(t, rel, abs)
	})

	t.Run("canonicalization folds variants", func(t *testing.T) {
		a, err := IdentityKeyFor(cardBaseURL, "HTTPS://DIRECTORY.TEST:443/startup/acme/?b=2&a=1#top")
		require.NoError(t, err)
		b, err := IdentityKeyFor(cardBaseURL, "https://directory.test/startup/acme/?a=1&b=2")
		require.NoError(t, err)
		require.Equal(t, b, a)
	})
}

func TestNormalizeWebsiteURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http://acme.test", NormalizeWebsiteURL(" acme.test "))
	require.Equal(t, "https://acme.test", NormalizeWebsiteURL("https://acme.test"))
	require.Empty(t, NormalizeWebsiteURL("  "))
}
