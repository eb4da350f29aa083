package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/driver"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// navPage fails Navigate with a per-condition error and records the waits.
type navPage struct {
	driver.Page
	errs  map[driver.WaitCondition]error
	waits []driver.WaitCondition
}

func (p *navPage) Navigate(ctx context.Context, url string, opts driver.NavigateOptions) error {
	p.waits = append(p.waits, opts.Wait)
	return p.errs[opts.Wait]
}

func TestSearchURL(t *testing.T) {
	got := searchURL("https://www.google.com/maps/search/", "liquor store", "Brooklyn")
	want := "https://www.google.com/maps/search/liquor+store+in+Brooklyn"
	if got != want {
		t.Errorf("searchURL = %q, want %q", got, want)
	}

	got = searchURL("https://www.google.com/maps/search/", "café & bar", "São Paulo")
	want = "https://www.google.com/maps/search/caf%C3%A9+%26+bar+in+S%C3%A3o+Paulo"
	if got != want {
		t.Errorf("searchURL = %q, want %q", got, want)
	}
}

func TestContactSeeds(t *testing.T) {
	cfg := config.ContactsConfig{
		PriorityKeywords: []string{"team", " /about/ ", ""},
		SeedKeywordPaths: true,
	}
	got := contactSeeds("https://acme.test", cfg)
	want := []string{"https://acme.test", "https://acme.test/team", "https://acme.test/about"}
	if len(got) != len(want) {
		t.Fatalf("expected %d seeds, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("seed %d = %q, want %q", i, got[i], want[i])
		}
	}

	cfg.SeedKeywordPaths = false
	if got := contactSeeds("https://acme.test", cfg); len(got) != 1 {
		t.Errorf("expected only the base URL, got %v", got)
	}
}

func TestSetupLogger(t *testing.T) {
	verbose = false
	cfg := config.DefaultConfig()

	tests := []struct {
		level  string
		format string
		want   slog.Level
	}{
		{"info", "text", slog.LevelInfo},
		{"debug", "json", slog.LevelDebug},
		{"warn", "text", slog.LevelWarn},
		{"error", "json", slog.LevelError},
	}
	for _, tt := range tests {
		cfg.Logging.Level = tt.level
		cfg.Logging.Format = tt.format
		logger := setupLogger(cfg)
		if !logger.Enabled(context.Background(), tt.want) {
			t.Errorf("%s: expected level %v enabled", tt.level, tt.want)
		}
		if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-4) {
			t.Errorf("%s: expected level %v disabled", tt.level, tt.want-4)
		}
	}

	verbose = true
	defer func() { verbose = false }()
	cfg.Logging.Level = "error"
	if !setupLogger(cfg).Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected --verbose to force debug")
	}
}

func TestApplyCLIOverrides(t *testing.T) {
	defer func() { browserType, headful, outputPath = "", false, "" }()
	browserType, headful, outputPath = "HTTP", true, "/tmp/leads"

	cfg := config.DefaultConfig()
	applyCLIOverrides(cfg)

	if cfg.Browser.Type != "http" {
		t.Errorf("expected browser type http, got %q", cfg.Browser.Type)
	}
	if cfg.Browser.Headless {
		t.Error("expected --headful to disable headless")
	}
	if cfg.Storage.OutputPath != "/tmp/leads" {
		t.Errorf("expected output override, got %q", cfg.Storage.OutputPath)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("overridden config should validate: %v", err)
	}
}

func TestCommandArgs(t *testing.T) {
	for _, tt := range []struct {
		name string
		args []string
		ok   bool
	}{
		{"search", []string{"dentist"}, false},
		{"search", []string{"dentist", "Austin"}, true},
		{"search", []string{"dentist", "Austin", "reviews"}, true},
		{"search", []string{"a", "b", "c", "d"}, false},
		{"contacts", []string{}, false},
		{"contacts", []string{"acme.test"}, true},
	} {
		cmd := searchCmd()
		if tt.name == "contacts" {
			cmd = contactsCmd()
		}
		err := cmd.Args(cmd, tt.args)
		if (err == nil) != tt.ok {
			t.Errorf("%s %v: args error = %v, want ok=%v", tt.name, tt.args, err, tt.ok)
		}
	}
}

func TestNavigateIdleOrLoad(t *testing.T) {
	idleTimeout := &types.FetchError{URL: "https://acme.test", Err: fmt.Errorf("%w: networkidle", types.ErrWaitTimeout), Retryable: true}
	notFound := &types.FetchError{URL: "https://acme.test", StatusCode: 404, Err: errors.New("HTTP 404")}

	tests := []struct {
		name    string
		errs    map[driver.WaitCondition]error
		waits   int
		wantErr error
	}{
		{"idle reached", nil, 1, nil},
		{"idle timeout falls back to load", map[driver.WaitCondition]error{driver.WaitNetworkIdle: idleTimeout}, 2, nil},
		{"load also times out", map[driver.WaitCondition]error{
			driver.WaitNetworkIdle: idleTimeout,
			driver.WaitLoad:        idleTimeout,
		}, 2, types.ErrWaitTimeout},
		{"other errors do not fall back", map[driver.WaitCondition]error{driver.WaitNetworkIdle: notFound}, 1, notFound},
	}

	cfg := config.DefaultConfig().Browser
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &navPage{errs: tt.errs}
			err := navigateIdleOrLoad(context.Background(), page, "https://acme.test", &cfg, testLogger)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(page.waits) != tt.waits {
				t.Fatalf("expected %d navigations, got %v", tt.waits, page.waits)
			}
			if page.waits[0] != driver.WaitNetworkIdle || (tt.waits == 2 && page.waits[1] != driver.WaitLoad) {
				t.Errorf("unexpected wait order %v", page.waits)
			}
		})
	}
}
