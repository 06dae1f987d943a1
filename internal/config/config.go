// Package config loads and validates dirscout configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Directory DirectoryConfig `mapstructure:"directory"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	AppStore  AppStoreConfig  `mapstructure:"appstore"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	Index     IndexConfig     `mapstructure:"index"`
	Export    ExportConfig    `mapstructure:"export"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DirectoryConfig governs the paginated directory crawl.
type DirectoryConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Concurrency      int           `mapstructure:"concurrency"`
	Letters          []string      `mapstructure:"letters"`
	PageTimeout      time.Duration `mapstructure:"page_timeout"`
	FilterTimeout    time.Duration `mapstructure:"filter_timeout"`
	LoadMoreTimeout  time.Duration `mapstructure:"load_more_timeout"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxLoadMore      int           `mapstructure:"max_load_more"`
	ValidateWebsites bool          `mapstructure:"validate_websites"`

	// Selectors for the hosted directory markup.
	ItemSelector     string `mapstructure:"item_selector"`
	ItemLinkSelector string `mapstructure:"item_link_selector"`
	TitleSelector    string `mapstructure:"title_selector"`
	FieldSelector    string `mapstructure:"field_selector"`
	LabelSelector    string `mapstructure:"label_selector"`
	FilterSelector   string `mapstructure:"filter_selector"`
	LoadMoreSelector string `mapstructure:"load_more_selector"`
}

// BrowserConfig controls the headless browser the crawl stage runs on.
type BrowserConfig struct {
	Headless     bool          `mapstructure:"headless"`
	UserAgent    string        `mapstructure:"user_agent"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// AppStoreConfig configures the external app store lookup clients.
type AppStoreConfig struct {
	Country     string        `mapstructure:"country"`
	SearchLimit int           `mapstructure:"search_limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
	HostQPS     float64       `mapstructure:"host_qps"`
}

// EnrichConfig governs the enrichment worker pool.
type EnrichConfig struct {
	Workers      int      `mapstructure:"workers"`
	LookupApps   bool     `mapstructure:"lookup_apps"`
	ScanWebsites bool     `mapstructure:"scan_websites"`
	ScanKeywords []string `mapstructure:"scan_keywords"`
}

// IndexConfig selects and configures the semantic index backend.
type IndexConfig struct {
	Backend     string `mapstructure:"backend"` // postgres, sqlite or none
	PostgresDSN string `mapstructure:"postgres_dsn"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	CohereKey   string `mapstructure:"cohere_api_key"`
	CohereModel string `mapstructure:"cohere_model"`
}

// ExportConfig sets where CSV artifacts are written.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// MetricsConfig toggles the Prometheus endpoint served during a batch.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DIRSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("directory.base_url", "https://infive.ae/setup/directory/")
	v.SetDefault("directory.concurrency", 4)
	v.SetDefault("directory.letters", defaultLetters())
	v.SetDefault("directory.page_timeout", "60s")
	v.SetDefault("directory.filter_timeout", "10s")
	v.SetDefault("directory.load_more_timeout", "15s")
	v.SetDefault("directory.poll_interval", "250ms")
	v.SetDefault("directory.max_load_more", 200)
	v.SetDefault("directory.validate_websites", true)
	v.SetDefault("directory.item_selector", "div.listingItemLI")
	v.SetDefault("directory.item_link_selector", "div.listingItemLI a")
	v.SetDefault("directory.title_selector", "h1.listingTitle")
	v.SetDefault("directory.field_selector", "div.listingDescription")
	v.SetDefault("directory.label_selector", "strong")
	v.SetDefault("directory.filter_selector", "a.startup-alphabet-search[data-alphabet='%s']")
	v.SetDefault("directory.load_more_selector", "#loadMoreTechStartups a.primaryBtn")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "dirscout/1.0 (+https://github.com/caldera-data/dirscout)")
	v.SetDefault("browser.probe_timeout", "15s")

	v.SetDefault("appstore.country", "ae")
	v.SetDefault("appstore.search_limit", 3)
	v.SetDefault("appstore.timeout", "15s")
	v.SetDefault("appstore.host_qps", 1.0)

	v.SetDefault("enrich.workers", 8)
	v.SetDefault("enrich.lookup_apps", true)
	v.SetDefault("enrich.scan_websites", false)
	v.SetDefault("enrich.scan_keywords", []string{
		"log in", "login", "sign in", "signin", "sign up", "signup",
		"register", "create account", "my account",
	})

	v.SetDefault("index.backend", "sqlite")
	v.SetDefault("index.sqlite_path", "data/dirscout.db")
	v.SetDefault("index.cohere_model", "embed-english-v3.0")

	v.SetDefault("export.dir", "data/export")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Directory.BaseURL == "" {
		return fmt.Errorf("directory.base_url must be set")
	}
	if c.Directory.Concurrency <= 0 {
		return fmt.Errorf("directory.concurrency must be > 0")
	}
	if c.Directory.MaxLoadMore <= 0 {
		return fmt.Errorf("directory.max_load_more must be > 0")
	}
	if c.Enrich.Workers <= 0 {
		return fmt.Errorf("enrich.workers must be > 0")
	}
	if c.AppStore.SearchLimit <= 0 {
		return fmt.Errorf("appstore.search_limit must be > 0")
	}
	switch c.Index.Backend {
	case "postgres":
		if c.Index.PostgresDSN == "" {
			return fmt.Errorf("index.postgres_dsn must be set for the postgres backend")
		}
	case "sqlite":
		if c.Index.SQLitePath == "" {
			return fmt.Errorf("index.sqlite_path must be set for the sqlite backend")
		}
	case "none":
	default:
		return fmt.Errorf("index.backend must be postgres, sqlite or none")
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	return nil
}

func defaultLetters() []string {
	letters := make([]string, 0, 26)
	for ch := 'A'; ch <= 'Z'; ch++ {
		letters = append(letters, string(ch))
	}
	return letters
}
