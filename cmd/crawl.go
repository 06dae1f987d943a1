// Package cmd defines and implements the CLI commands for the dirscout executable.
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caldera-data/dirscout/internal/browser"
	"github.com/caldera-data/dirscout/internal/config"
	"github.com/caldera-data/dirscout/internal/directory"
	"github.com/caldera-data/dirscout/internal/export"
)

func newCrawlCmd() *cobra.Command {
	var (
		letter string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Harvests directory partitions into per-letter CSV files",
		Long: `Crawls the configured directory with a headless browser, one isolated
session per alphabet partition, and writes each partition's accepted
entities to its own CSV file in the export directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, letter, all)
		},
	}

	cmd.Flags().StringVar(&letter, "letter", "", "harvest a single alphabet partition")
	cmd.Flags().BoolVar(&all, "all", false, "harvest every configured partition")

	return cmd
}

func runCrawl(cmd *cobra.Command, letter string, all bool) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	letters, err := resolveLetters(app.Cfg.Directory, letter, all)
	if err != nil {
		return err
	}

	driver, err := browser.NewDriver(browserConfig(app.Cfg), app.Logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer driver.Close()

	var prober directory.Prober
	if app.Cfg.Directory.ValidateWebsites {
		prober = driver
	}

	crawler := directory.NewCrawler(crawlerConfig(app.Cfg.Directory), prober, app.Logger)
	scheduler := directory.NewScheduler(crawler, driver, app.Logger)

	results := scheduler.Run(cmd.Context(), letters, app.Cfg.Directory.Concurrency)

	writer, err := export.NewWriter(app.Cfg.Export.Dir)
	if err != nil {
		return err
	}

	total := 0
	for _, l := range letters {
		entities := results[l]
		path, err := writer.WriteEntities(l, entities)
		if err != nil {
			return fmt.Errorf("write partition %s: %w", l, err)
		}
		total += len(entities)
		app.Logger.Info("partition written",
			zap.String("letter", l),
			zap.Int("entities", len(entities)),
			zap.String("path", path),
		)
	}

	app.Logger.Info("crawl finished",
		zap.Int("partitions", len(letters)),
		zap.Int("entities", total),
	)
	return nil
}

func resolveLetters(cfg config.DirectoryConfig, letter string, all bool) ([]string, error) {
	switch {
	case letter != "" && all:
		return nil, errors.New("--letter and --all are mutually exclusive")
	case letter != "":
		letter = strings.ToUpper(strings.TrimSpace(letter))
		if len(letter) != 1 {
			return nil, fmt.Errorf("--letter wants a single character, got %q", letter)
		}
		return []string{letter}, nil
	case all:
		return cfg.Letters, nil
	default:
		return nil, errors.New("crawl requires either --letter or --all")
	}
}

func browserConfig(cfg config.Config) browser.Config {
	return browser.Config{
		Headless:      cfg.Browser.Headless,
		UserAgent:     cfg.Browser.UserAgent,
		ProbeTimeout:  cfg.Browser.ProbeTimeout,
		ItemSelector:  cfg.Directory.ItemSelector,
		TitleSelector: cfg.Directory.TitleSelector,
		FieldSelector: cfg.Directory.FieldSelector,
		LabelSelector: cfg.Directory.LabelSelector,
	}
}

func crawlerConfig(cfg config.DirectoryConfig) directory.Config {
	return directory.Config{
		BaseURL:          cfg.BaseURL,
		PageTimeout:      cfg.PageTimeout,
		FilterTimeout:    cfg.FilterTimeout,
		LoadMoreTimeout:  cfg.LoadMoreTimeout,
		PollInterval:     cfg.PollInterval,
		MaxLoadMore:      cfg.MaxLoadMore,
		ValidateWebsites: cfg.ValidateWebsites,
		ItemSelector:     cfg.ItemSelector,
		ItemLinkSelector: cfg.ItemLinkSelector,
		FilterSelector:   cfg.FilterSelector,
		LoadMoreSelector: cfg.LoadMoreSelector,
	}
}
