// LeadGoat finds local businesses on a map search, ranks them, and crawls
// business websites for contact details.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/driver"
	"github.com/IshaanNene/LeadGoat/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// shared browser flags
	browserType string
	headful     bool
	outputPath  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "leadgoat",
		Short: "Local business lead finder",
		Long: `LeadGoat searches a map service for businesses in an area,
visits every listing, ranks the results, and crawls business websites
for emails, social profiles and team members.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(contactsCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addBrowserFlags registers the flags shared by every crawling command.
func addBrowserFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&browserType, "browser", "", "page driver: rod or http")
	cmd.Flags().BoolVar(&headful, "headful", false, "show the browser window")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output directory")
}

// loadConfig reads, overrides and validates the configuration.
func loadConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	for _, fn := range overrides {
		fn(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyCLIOverrides applies the shared command-line flags to the config.
func applyCLIOverrides(cfg *config.Config) {
	if browserType != "" {
		cfg.Browser.Type = strings.ToLower(browserType)
	}
	if headful {
		cfg.Browser.Headless = false
	}
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

// setupLogger creates a structured logger from the logging section.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Logging.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// startMetrics creates the run's metrics and serves them when enabled.
func startMetrics(cfg *config.Config, logger *slog.Logger) *observability.Metrics {
	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}
	return metrics
}

// newBrowser builds the configured page driver.
func newBrowser(cfg *config.Config, logger *slog.Logger) (driver.Browser, error) {
	switch cfg.Browser.Type {
	case "http":
		return driver.NewStaticBrowser(&cfg.Browser, logger), nil
	default:
		b, err := driver.NewRodBrowser(&cfg.Browser, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("LeadGoat %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Search:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Search.BaseURL)
			fmt.Printf("  Rank By:           %s\n", cfg.Search.RankBy)
			fmt.Printf("  Max Results:       %d\n", cfg.Search.MaxResults)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Type:              %s\n", cfg.Browser.Type)
			fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("  Page Timeout:      %s\n", cfg.Browser.PageTimeout)
			fmt.Printf("  Idle Timeout:      %s\n", cfg.Browser.IdleTimeout)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Browser.UserAgents))
			fmt.Printf("\nScroll:\n")
			fmt.Printf("  Containers:        %s\n", strings.Join(cfg.Scroll.ContainerSelectors, " | "))
			fmt.Printf("  Step:              %dpx\n", cfg.Scroll.Step)
			fmt.Printf("  Stall Threshold:   %d\n", cfg.Scroll.StallThreshold)
			fmt.Printf("  Max Iterations:    %d\n", cfg.Scroll.MaxIterations)
			fmt.Printf("\nEngine:\n")
			fmt.Printf("  Batch Size:        %d\n", cfg.Engine.BatchSize)
			fmt.Printf("  Visit Delay:       %s (+%s jitter)\n", cfg.Engine.VisitDelay, cfg.Engine.VisitJitter)
			fmt.Printf("  Batch Delay:       %s (+%s jitter)\n", cfg.Engine.BatchDelay, cfg.Engine.BatchJitter)
			fmt.Printf("  Max Attempts:      %d (%s timeout each)\n", cfg.Engine.MaxAttempts, cfg.Engine.AttemptTimeout)
			fmt.Printf("  Max Records:       %d (x%.2f over-fetch)\n", cfg.Engine.MaxRecords, cfg.Engine.OverFetch)
			fmt.Printf("\nContacts:\n")
			fmt.Printf("  Max Visits:        %d\n", cfg.Contacts.MaxVisits)
			fmt.Printf("  Keywords:          %s\n", strings.Join(cfg.Contacts.PriorityKeywords, ", "))
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Backends:          %s\n", strings.Join(cfg.Storage.Backends, ", "))
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("\nCache:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Cache.Enabled)
			fmt.Printf("  Addr:              %s\n", cfg.Cache.Addr)
			fmt.Printf("  TTL:               %s\n", cfg.Cache.TTL)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}
