package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caldera-data/dirscout/internal/config"
)

func TestResolveLetters(t *testing.T) {
	t.Parallel()

	cfg := config.DirectoryConfig{Letters: []string{"A", "B", "C"}}

	t.Run("single letter uppercased", func(t *testing.T) {
		letters, err := resolveLetters(cfg, " q ", false)
		require.NoError(t, err)
		require.Equal(t, []string{"Q"}, letters)
	})

	t.Run("all uses configured set", func(t *testing.T) {
		letters, err := resolveLetters(cfg, "", true)
		require.NoError(t, err)
		require.Equal(t, []string{"A", "B", "C"}, letters)
	})

	t.Run("neither flag is an error", func(t *testing.T) {
		_, err := resolveLetters(cfg, "", false)
		require.Error(t, err)
	})

	t.Run("both flags is an error", func(t *testing.T) {
		_, err := resolveLetters(cfg, "A", true)
		require.Error(t, err)
	})

	t.Run("multi-character input rejected", func(t *testing.T) {
		_, err := resolveLetters(cfg, "AB", false)
		require.Error(t, err)
	})
}
