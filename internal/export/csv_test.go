package export

import (
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caldera-data/dirscout/internal/appstore"
	"github.com/caldera-data/dirscout/internal/directory"
	"github.com/caldera-data/dirscout/internal/enrich"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteEntitiesFixedSchema(t *testing.T) {
	t.Parallel()

	writer, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	entities := []directory.Entity{
		{
			Name:        "Acme",
			ProfileURL:  "https://directory.test/startup/acme/",
			WebsiteURL:  "http://acme.test",
			Industry:    "Fintech",
			Description: "Payments for small businesses.",
		},
		// Optional fields absent; columns must still be present.
		{Name: "Beta", ProfileURL: "https://directory.test/startup/beta/"},
	}

	path, err := writer.WriteEntities("a", entities)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"name", "profile_url", "website", "industry", "description"}, rows[0])
	require.Equal(t, []string{"Acme", "https://directory.test/startup/acme/", "http://acme.test", "Fintech", "Payments for small businesses."}, rows[1])
	require.Equal(t, []string{"Beta", "https://directory.test/startup/beta/", "", "", ""}, rows[2])
}

func TestWriteEntitiesReplacesOnRerun(t *testing.T) {
	t.Parallel()

	writer, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	_, err = writer.WriteEntities("A", []directory.Entity{
		{Name: "Stale", ProfileURL: "https://directory.test/startup/stale/"},
		{Name: "Acme", ProfileURL: "https://directory.test/startup/acme/"},
	})
	require.NoError(t, err)

	path, err := writer.WriteEntities("A", []directory.Entity{
		{Name: "Acme", ProfileURL: "https://directory.test/startup/acme/"},
	})
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	require.Equal(t, "Acme", rows[1][0])
}

func TestWriteEntitiesEmptyPartitionWipesFile(t *testing.T) {
	t.Parallel()

	writer, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	_, err = writer.WriteEntities("X", []directory.Entity{
		{Name: "Gone", ProfileURL: "https://directory.test/startup/gone/"},
	})
	require.NoError(t, err)

	path, err := writer.WriteEntities("X", nil)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
}

func TestWriteRecords(t *testing.T) {
	t.Parallel()

	writer, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	apple := appstore.Candidate{Source: appstore.SourceApple, Title: "Acme Wallet", Developer: "Acme Technologies"}
	records := []enrich.Record{
		{
			Entity: directory.Entity{
				Name:       "Acme",
				ProfileURL: "https://directory.test/startup/acme/",
				WebsiteURL: "http://acme.test",
			},
			AppleApp: &apple,
			HasLogin: true,
		},
		{
			Entity: directory.Entity{Name: "Beta", ProfileURL: "https://directory.test/startup/beta/"},
		},
	}

	path, err := writer.WriteRecords("startups_enriched.csv", records)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	require.Equal(t, []string{
		"name", "profile_url", "website", "industry", "description",
		"has_login", "has_app", "apps_json",
	}, rows[0])

	require.Equal(t, "true", rows[1][5])
	require.Equal(t, "true", rows[1][6])
	require.Contains(t, rows[1][7], "Acme Wallet")

	require.Equal(t, "false", rows[2][5])
	require.Equal(t, "false", rows[2][6])
	require.Equal(t, "[]", rows[2][7])
}

func TestLoadEntitiesReadsAllPartitions(t *testing.T) {
	t.Parallel()

	writer, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	_, err = writer.WriteEntities("A", []directory.Entity{
		{Name: "Acme", ProfileURL: "https://directory.test/startup/acme/", WebsiteURL: "http://acme.test", Industry: "Fintech"},
	})
	require.NoError(t, err)
	_, err = writer.WriteEntities("B", []directory.Entity{
		{Name: "Beta", ProfileURL: "https://directory.test/startup/beta/"},
	})
	require.NoError(t, err)

	entities, err := writer.LoadEntities()
	require.NoError(t, err)
	require.Len(t, entities, 2)
	require.Equal(t, "Acme", entities[0].Name)
	require.Equal(t, "http://acme.test", entities[0].WebsiteURL)
	require.Equal(t, "Fintech", entities[0].Industry)
	require.Equal(t, entities[0].ProfileURL, entities[0].IdentityKey)
	require.Equal(t, "Beta", entities[1].Name)
}

func TestLoadEntitiesWithoutFiles(t *testing.T) {
	t.Parallel()

	writer, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	_, err = writer.LoadEntities()
	require.Error(t, err)
}
