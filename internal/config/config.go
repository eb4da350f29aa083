package config

import (
	"slices"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for LeadGoat.
type Config struct {
	Search   SearchConfig   `mapstructure:"search"   yaml:"search"`
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Scroll   ScrollConfig   `mapstructure:"scroll"   yaml:"scroll"`
	Engine   EngineConfig   `mapstructure:"engine"   yaml:"engine"`
	Contacts ContactsConfig `mapstructure:"contacts" yaml:"contacts"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"    yaml:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// SearchConfig controls the listing search and ranking.
type SearchConfig struct {
	BaseURL        string   `mapstructure:"base_url"        yaml:"base_url"`
	RankBy         string   `mapstructure:"rank_by"         yaml:"rank_by"`
	MaxResults     int      `mapstructure:"max_results"     yaml:"max_results"`
	ConsentButtons []string `mapstructure:"consent_buttons" yaml:"consent_buttons"`
}

// BrowserConfig controls the page driver.
type BrowserConfig struct {
	Type        string        `mapstructure:"type"         yaml:"type"` // rod, http
	Headless    bool          `mapstructure:"headless"     yaml:"headless"`
	Stealth     bool          `mapstructure:"stealth"      yaml:"stealth"`
	BinPath     string        `mapstructure:"bin_path"     yaml:"bin_path"`
	NoSandbox   bool          `mapstructure:"no_sandbox"   yaml:"no_sandbox"`
	PageTimeout time.Duration `mapstructure:"page_timeout" yaml:"page_timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	UserAgents  []string      `mapstructure:"user_agents"  yaml:"user_agents"`
	MaxBodySize int64         `mapstructure:"max_body_size" yaml:"max_body_size"`
	TLSInsecure bool          `mapstructure:"tls_insecure" yaml:"tls_insecure"`
}

// ScrollConfig controls result-list discovery.
type ScrollConfig struct {
	ContainerSelectors []string      `mapstructure:"container_selectors" yaml:"container_selectors"`
	ListingSelector    string        `mapstructure:"listing_selector"    yaml:"listing_selector"`
	ListingPrefix      string        `mapstructure:"listing_prefix"      yaml:"listing_prefix"`
	ExcludePatterns    []string      `mapstructure:"exclude_patterns"    yaml:"exclude_patterns"`
	EndMarkers         []string      `mapstructure:"end_markers"         yaml:"end_markers"`
	Step               int           `mapstructure:"step"                yaml:"step"`
	SettleDelay        time.Duration `mapstructure:"settle_delay"        yaml:"settle_delay"`
	StallThreshold     int           `mapstructure:"stall_threshold"     yaml:"stall_threshold"`
	MaxIterations      int           `mapstructure:"max_iterations"      yaml:"max_iterations"`
	NudgeEvery         int           `mapstructure:"nudge_every"         yaml:"nudge_every"`
}

// EngineConfig controls batching, pacing and retries.
type EngineConfig struct {
	BatchSize      int           `mapstructure:"batch_size"       yaml:"batch_size"`
	VisitDelay     time.Duration `mapstructure:"visit_delay"      yaml:"visit_delay"`
	VisitJitter    time.Duration `mapstructure:"visit_jitter"     yaml:"visit_jitter"`
	BatchDelay     time.Duration `mapstructure:"batch_delay"      yaml:"batch_delay"`
	BatchJitter    time.Duration `mapstructure:"batch_jitter"     yaml:"batch_jitter"`
	MaxAttempts    int           `mapstructure:"max_attempts"     yaml:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"  yaml:"attempt_timeout"`
	MaxRecords     int           `mapstructure:"max_records"      yaml:"max_records"`
	OverFetch      float64       `mapstructure:"over_fetch"       yaml:"over_fetch"`
}

// ContactsConfig controls the website contact crawl.
type ContactsConfig struct {
	MaxVisits        int      `mapstructure:"max_visits"        yaml:"max_visits"`
	PriorityKeywords []string `mapstructure:"priority_keywords" yaml:"priority_keywords"`
	SeedKeywordPaths bool     `mapstructure:"seed_keyword_paths" yaml:"seed_keyword_paths"`
	MaxTitleLength   int      `mapstructure:"max_title_length"  yaml:"max_title_length"`
}

// PipelineConfig controls record normalisation before ranking.
type PipelineConfig struct {
	Sanitize       bool     `mapstructure:"sanitize"        yaml:"sanitize"`
	RequiredFields []string `mapstructure:"required_fields" yaml:"required_fields"`
	Dedup          bool     `mapstructure:"dedup"           yaml:"dedup"`
}

// StorageConfig controls output/storage.
type StorageConfig struct {
	Backends   []string     `mapstructure:"backends"    yaml:"backends"` // file, mongodb, sqlite
	OutputPath string       `mapstructure:"output_path" yaml:"output_path"`
	Mongo      MongoConfig  `mapstructure:"mongo"       yaml:"mongo"`
	SQLite     SQLiteConfig `mapstructure:"sqlite"      yaml:"sqlite"`
}

// MongoConfig configures the MongoDB sink.
type MongoConfig struct {
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// SQLiteConfig configures the SQLite sink.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// CacheConfig controls the optional Redis record cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Addr    string        `mapstructure:"addr"    yaml:"addr"`
	Prefix  string        `mapstructure:"prefix"  yaml:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"     yaml:"ttl"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultPriorityKeywords mark pages likely to list people or contact details.
var DefaultPriorityKeywords = []string{
	"team", "about", "staff", "management", "leadership",
	"contact", "people", "who-we-are", "executives",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			BaseURL:        "https://www.google.com/maps/search/",
			RankBy:         "rating",
			MaxResults:     50,
			ConsentButtons: []string{`button[aria-label="Reject all"]`},
		},
		Browser: BrowserConfig{
			Type:        "rod",
			Headless:    true,
			Stealth:     true,
			NoSandbox:   true,
			PageTimeout: 30 * time.Second,
			IdleTimeout: 10 * time.Second,
			SettleDelay: 2 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			MaxBodySize: 10 * 1024 * 1024, // 10MB
		},
		Scroll: ScrollConfig{
			ContainerSelectors: []string{
				`div[role="feed"]`,
				`div[aria-label*="Results for"]`,
				`.section-scrollbox`,
			},
			ListingSelector: `a[href^="https://www.google.com/maps/place/"]`,
			ListingPrefix:   "https://www.google.com/maps/place/",
			ExcludePatterns: []string{"/maps/place/@"},
			EndMarkers: []string{
				"You've reached the end of the list.",
				"No more results",
				"End of list",
			},
			Step:           1000,
			SettleDelay:    1 * time.Second,
			StallThreshold: 5,
			MaxIterations:  100,
			NudgeEvery:     4,
		},
		Engine: EngineConfig{
			BatchSize:      3,
			VisitDelay:     2 * time.Second,
			VisitJitter:    1 * time.Second,
			BatchDelay:     3 * time.Second,
			BatchJitter:    2 * time.Second,
			MaxAttempts:    3,
			RetryBaseDelay: 2 * time.Second,
			AttemptTimeout: 2 * time.Minute,
			MaxRecords:     50,
			OverFetch:      1.5,
		},
		Contacts: ContactsConfig{
			MaxVisits:        100,
			PriorityKeywords: slices.Clone(DefaultPriorityKeywords),
			SeedKeywordPaths: true,
			MaxTitleLength:   100,
		},
		Pipeline: PipelineConfig{
			Sanitize:       true,
			RequiredFields: []string{"title"},
			Dedup:          true,
		},
		Storage: StorageConfig{
			Backends:   []string{"file"},
			OutputPath: "./output",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "leadgoat",
				Collection: "leads",
			},
			SQLite: SQLiteConfig{
				Path: "./output/leads.db",
			},
		},
		Cache: CacheConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			Prefix:  "leadgoat:listing:",
			TTL:     24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
