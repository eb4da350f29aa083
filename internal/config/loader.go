package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("LEADGOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("leadgoat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".leadgoat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Only a searched-for file may be absent.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env vars can override them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("search.base_url", cfg.Search.BaseURL)
	v.SetDefault("search.rank_by", cfg.Search.RankBy)
	v.SetDefault("search.max_results", cfg.Search.MaxResults)
	v.SetDefault("search.consent_buttons", cfg.Search.ConsentButtons)

	v.SetDefault("browser.type", cfg.Browser.Type)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.bin_path", cfg.Browser.BinPath)
	v.SetDefault("browser.no_sandbox", cfg.Browser.NoSandbox)
	v.SetDefault("browser.page_timeout", cfg.Browser.PageTimeout)
	v.SetDefault("browser.idle_timeout", cfg.Browser.IdleTimeout)
	v.SetDefault("browser.settle_delay", cfg.Browser.SettleDelay)
	v.SetDefault("browser.user_agents", cfg.Browser.UserAgents)
	v.SetDefault("browser.max_body_size", cfg.Browser.MaxBodySize)
	v.SetDefault("browser.tls_insecure", cfg.Browser.TLSInsecure)

	v.SetDefault("scroll.container_selectors", cfg.Scroll.ContainerSelectors)
	v.SetDefault("scroll.listing_selector", cfg.Scroll.ListingSelector)
	v.SetDefault("scroll.listing_prefix", cfg.Scroll.ListingPrefix)
	v.SetDefault("scroll.exclude_patterns", cfg.Scroll.ExcludePatterns)
	v.SetDefault("scroll.end_markers", cfg.Scroll.EndMarkers)
	v.SetDefault("scroll.step", cfg.Scroll.Step)
	v.SetDefault("scroll.settle_delay", cfg.Scroll.SettleDelay)
	v.SetDefault("scroll.stall_threshold", cfg.Scroll.StallThreshold)
	v.SetDefault("scroll.max_iterations", cfg.Scroll.MaxIterations)
	v.SetDefault("scroll.nudge_every", cfg.Scroll.NudgeEvery)

	v.SetDefault("engine.batch_size", cfg.Engine.BatchSize)
	v.SetDefault("engine.visit_delay", cfg.Engine.VisitDelay)
	v.SetDefault("engine.visit_jitter", cfg.Engine.VisitJitter)
	v.SetDefault("engine.batch_delay", cfg.Engine.BatchDelay)
	v.SetDefault("engine.batch_jitter", cfg.Engine.BatchJitter)
	v.SetDefault("engine.max_attempts", cfg.Engine.MaxAttempts)
	v.SetDefault("engine.retry_base_delay", cfg.Engine.RetryBaseDelay)
	v.SetDefault("engine.attempt_timeout", cfg.Engine.AttemptTimeout)
	v.SetDefault("engine.max_records", cfg.Engine.MaxRecords)
	v.SetDefault("engine.over_fetch", cfg.Engine.OverFetch)

	v.SetDefault("contacts.max_visits", cfg.Contacts.MaxVisits)
	v.SetDefault("contacts.priority_keywords", cfg.Contacts.PriorityKeywords)
	v.SetDefault("contacts.seed_keyword_paths", cfg.Contacts.SeedKeywordPaths)
	v.SetDefault("contacts.max_title_length", cfg.Contacts.MaxTitleLength)

	v.SetDefault("pipeline.sanitize", cfg.Pipeline.Sanitize)
	v.SetDefault("pipeline.required_fields", cfg.Pipeline.RequiredFields)
	v.SetDefault("pipeline.dedup", cfg.Pipeline.Dedup)

	v.SetDefault("storage.backends", cfg.Storage.Backends)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.collection", cfg.Storage.Mongo.Collection)
	v.SetDefault("storage.sqlite.path", cfg.Storage.SQLite.Path)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.addr", cfg.Cache.Addr)
	v.SetDefault("cache.prefix", cfg.Cache.Prefix)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
