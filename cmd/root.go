package cmd

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caldera-data/dirscout/internal/config"
	"github.com/caldera-data/dirscout/internal/logging"
	"github.com/caldera-data/dirscout/internal/metrics"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// App carries the services every subcommand needs: loaded configuration,
// the logger, and a run ID stamped on everything this invocation produces.
type App struct {
	Cfg    config.Config
	Logger *zap.Logger
	RunID  string

	stopMetrics context.CancelFunc
	metricsDone sync.WaitGroup
}

// newApp is a variable so tests can swap in a mock factory.
var newApp = func(ctx context.Context) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logging.InitLogger(cfg.Logging.Development)
	metrics.Init()

	app := &App{
		Cfg:    cfg,
		Logger: logging.L,
		RunID:  uuid.NewString(),
	}

	if cfg.Metrics.Enabled {
		metricsCtx, cancel := context.WithCancel(context.Background())
		app.stopMetrics = cancel
		app.metricsDone.Add(1)
		go func() {
			defer app.metricsDone.Done()
			if err := metrics.Serve(metricsCtx, cfg.Metrics.Port, app.Logger); err != nil {
				app.Logger.Warn("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	app.Logger.Info("services initialized", zap.String("run_id", app.RunID))
	return app, nil
}

// Close shuts down background services and flushes the logger.
func (a *App) Close() {
	if a.stopMetrics != nil {
		a.stopMetrics()
		a.metricsDone.Wait()
	}
	_ = a.Logger.Sync()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirscout",
		Short: "Harvests a hosted startup directory and enriches it with app store data.",
		Long: `dirscout crawls an alphabetically partitioned startup directory with a
headless browser, enriches each harvested company with validated app store
matches and website feature signals, and writes the merged records into CSV
files and a semantic index.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if app, ok := cmd.Context().Value(appKey).(*App); ok && app != nil {
				app.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default relies on DIRSCOUT_* env and built-in defaults)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newEnrichCmd())

	return cmd
}

// Execute is the main entry point. It wires OS signals into the command
// context so an interrupt cancels in-flight partitions and workers.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.L.Fatal("command execution failed", zap.Error(err))
	}
}

func resolveApp(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey).(*App)
	if !ok || app == nil {
		return nil, errors.New("application services not initialized")
	}
	return app, nil
}
