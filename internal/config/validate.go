package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Search.MaxResults < 1 {
		return fmt.Errorf("search.max_results must be >= 1, got %d", cfg.Search.MaxResults)
	}
	if _, err := url.Parse(cfg.Search.BaseURL); err != nil {
		return fmt.Errorf("invalid search.base_url %q: %w", cfg.Search.BaseURL, err)
	}

	if cfg.Browser.Type != "rod" && cfg.Browser.Type != "http" {
		return fmt.Errorf("browser.type must be 'rod' or 'http', got %q", cfg.Browser.Type)
	}
	if cfg.Browser.PageTimeout <= 0 {
		return fmt.Errorf("browser.page_timeout must be > 0")
	}
	if cfg.Browser.MaxBodySize <= 0 {
		return fmt.Errorf("browser.max_body_size must be > 0")
	}

	if len(cfg.Scroll.ContainerSelectors) == 0 {
		return fmt.Errorf("scroll.container_selectors must not be empty")
	}
	if cfg.Scroll.Step < 1 {
		return fmt.Errorf("scroll.step must be >= 1, got %d", cfg.Scroll.Step)
	}
	if cfg.Scroll.StallThreshold < 1 {
		return fmt.Errorf("scroll.stall_threshold must be >= 1, got %d", cfg.Scroll.StallThreshold)
	}
	if cfg.Scroll.MaxIterations < 1 {
		return fmt.Errorf("scroll.max_iterations must be >= 1, got %d", cfg.Scroll.MaxIterations)
	}

	if cfg.Engine.BatchSize < 1 {
		return fmt.Errorf("engine.batch_size must be >= 1, got %d", cfg.Engine.BatchSize)
	}
	if cfg.Engine.MaxAttempts < 1 {
		return fmt.Errorf("engine.max_attempts must be >= 1, got %d", cfg.Engine.MaxAttempts)
	}
	if cfg.Engine.VisitDelay < 0 || cfg.Engine.BatchDelay < 0 || cfg.Engine.RetryBaseDelay < 0 || cfg.Engine.AttemptTimeout < 0 {
		return fmt.Errorf("engine delays and attempt_timeout must be >= 0")
	}
	if cfg.Engine.MaxRecords < 0 {
		return fmt.Errorf("engine.max_records must be >= 0, got %d", cfg.Engine.MaxRecords)
	}
	if cfg.Engine.OverFetch < 1 {
		return fmt.Errorf("engine.over_fetch must be >= 1, got %v", cfg.Engine.OverFetch)
	}

	if cfg.Contacts.MaxVisits < 1 {
		return fmt.Errorf("contacts.max_visits must be >= 1, got %d", cfg.Contacts.MaxVisits)
	}

	validBackends := map[string]bool{
		"file": true, "mongodb": true, "sqlite": true,
	}
	if len(cfg.Storage.Backends) == 0 {
		return fmt.Errorf("storage.backends must not be empty")
	}
	for _, b := range cfg.Storage.Backends {
		if !validBackends[b] {
			return fmt.Errorf("storage backend %q is not supported (valid: file, mongodb, sqlite)", b)
		}
	}

	if cfg.Cache.Enabled && cfg.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when cache is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
