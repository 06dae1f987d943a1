package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caldera-data/dirscout/internal/appstore"
	"github.com/caldera-data/dirscout/internal/browser"
	"github.com/caldera-data/dirscout/internal/enrich"
	"github.com/caldera-data/dirscout/internal/export"
	"github.com/caldera-data/dirscout/internal/index"
)

const enrichedFileName = "startups_enriched.csv"

func newEnrichCmd() *cobra.Command {
	var (
		stores       bool
		scanWebsites bool
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enriches harvested entities and writes the merged records",
		Long: `Reads every partition CSV from the export directory, fans each entity
out to the app store lookup clients and optionally a website feature scan,
then writes one merged CSV and upserts each record into the semantic index.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnrich(cmd, storeFlags{
				stores:         stores,
				storesSet:      cmd.Flags().Changed("stores"),
				scanWebsites:   scanWebsites,
				scanWebsiteSet: cmd.Flags().Changed("scan-websites"),
			})
		},
	}

	cmd.Flags().BoolVar(&stores, "stores", true, "look up app store matches")
	cmd.Flags().BoolVar(&scanWebsites, "scan-websites", false, "scan entity websites for login/sign-up affordances")

	return cmd
}

// storeFlags records which toggles were set explicitly so flags override
// config only when the operator typed them.
type storeFlags struct {
	stores         bool
	storesSet      bool
	scanWebsites   bool
	scanWebsiteSet bool
}

func runEnrich(cmd *cobra.Command, flags storeFlags) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := app.Cfg

	lookupApps := cfg.Enrich.LookupApps
	if flags.storesSet {
		lookupApps = flags.stores
	}
	scanWebsites := cfg.Enrich.ScanWebsites
	if flags.scanWebsiteSet {
		scanWebsites = flags.scanWebsites
	}

	writer, err := export.NewWriter(cfg.Export.Dir)
	if err != nil {
		return err
	}
	entities, err := writer.LoadEntities()
	if err != nil {
		return err
	}
	app.Logger.Info("entities loaded", zap.Int("count", len(entities)))

	apple := appstore.NewAppleClient(cfg.AppStore.Country, cfg.AppStore.Timeout, cfg.AppStore.HostQPS)
	play := appstore.NewPlayClient(cfg.AppStore.Country, cfg.Browser.UserAgent, cfg.AppStore.Timeout, cfg.AppStore.HostQPS)

	var scanner enrich.Scanner
	if scanWebsites {
		driver, err := browser.NewDriver(browserConfig(cfg), app.Logger)
		if err != nil {
			return fmt.Errorf("start browser: %w", err)
		}
		defer driver.Close()

		scanner, err = browser.NewFeatureScanner(driver, cfg.Enrich.ScanKeywords, app.Logger)
		if err != nil {
			return err
		}
	}

	worker := enrich.NewWorker(apple, play, scanner, enrich.Config{
		SearchLimit:  cfg.AppStore.SearchLimit,
		LookupApps:   lookupApps,
		ScanWebsites: scanWebsites,
	}, app.Logger)

	pool := enrich.NewPool(worker, app.Logger)
	records := pool.Run(cmd.Context(), entities, cfg.Enrich.Workers)

	path, err := writer.WriteRecords(enrichedFileName, records)
	if err != nil {
		return fmt.Errorf("write merged records: %w", err)
	}
	app.Logger.Info("merged records written",
		zap.Int("records", len(records)),
		zap.String("path", path),
	)

	return indexRecords(cmd.Context(), app, records)
}

// indexRecords embeds and upserts the merged records into the configured
// backend. Backend "none" skips indexing entirely.
func indexRecords(ctx context.Context, app *App, records []enrich.Record) error {
	cfg := app.Cfg.Index
	if cfg.Backend == "none" {
		app.Logger.Info("index backend disabled, skipping")
		return nil
	}

	embedder, err := index.NewCohereEmbedder(cfg.CohereKey, cfg.CohereModel)
	if err != nil {
		return err
	}

	var store index.Store
	switch cfg.Backend {
	case "postgres":
		store, err = index.NewPostgresStore(ctx, index.PostgresConfig{DSN: cfg.PostgresDSN})
	case "sqlite":
		store, err = index.NewSQLiteStore(ctx, cfg.SQLitePath)
	default:
		return fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
	if err != nil {
		return fmt.Errorf("open index store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			app.Logger.Warn("close index store", zap.Error(cerr))
		}
	}()

	indexer := index.NewIndexer(embedder, store, app.RunID, app.Logger)
	stored, err := indexer.IndexAll(ctx, records)
	if err != nil {
		return err
	}
	app.Logger.Info("records indexed",
		zap.Int("stored", stored),
		zap.Int("records", len(records)),
		zap.String("backend", cfg.Backend),
	)
	return nil
}
