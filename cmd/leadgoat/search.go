package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/LeadGoat/internal/cache"
	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/discover"
	"github.com/IshaanNene/LeadGoat/internal/driver"
	"github.com/IshaanNene/LeadGoat/internal/engine"
	"github.com/IshaanNene/LeadGoat/internal/extract"
	"github.com/IshaanNene/LeadGoat/internal/observability"
	"github.com/IshaanNene/LeadGoat/internal/pipeline"
	"github.com/IshaanNene/LeadGoat/internal/rank"
	"github.com/IshaanNene/LeadGoat/internal/storage"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

var (
	searchMaxResults int
	searchBackends   []string
	searchNoCache    bool
)

// searchCmd creates the "search" subcommand.
func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <place> <area> [rating|reviews|relevance]",
		Short: "Find, visit and rank business listings for a place in an area",
		Long: `Search the map service for <place> in <area>, scroll the result list
until it stops growing, visit every listing in small paced batches, and
write the ranked leads to ranked_leads.csv and ranked_leads.json.

Ranking defaults to rating (rating, then review count). "reviews" ranks by
review count; "relevance" scores listings against the search terms.`,
		Example: `  leadgoat search "liquor store" Brooklyn
  leadgoat search dentist "San Diego" reviews --max-results 20`,
		Args: cobra.RangeArgs(2, 3),
		RunE: runSearch,
	}

	addBrowserFlags(cmd)
	cmd.Flags().IntVarP(&searchMaxResults, "max-results", "n", 0, "maximum ranked results to keep")
	cmd.Flags().StringSliceVar(&searchBackends, "backend", nil, "storage backends: file, mongodb, sqlite")
	cmd.Flags().BoolVar(&searchNoCache, "no-cache", false, "ignore the record cache for this run")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(func(cfg *config.Config) {
		if searchMaxResults > 0 {
			cfg.Search.MaxResults = searchMaxResults
			cfg.Engine.MaxRecords = searchMaxResults
		}
		if len(searchBackends) > 0 {
			cfg.Storage.Backends = searchBackends
		}
		if searchNoCache {
			cfg.Cache.Enabled = false
		}
	})
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	place, area := args[0], args[1]
	rankBy := cfg.Search.RankBy
	if len(args) == 3 {
		rankBy = args[2]
	}
	method, err := rank.ParseMethod(rankBy)
	if err != nil {
		logger.Warn("unknown ranking method, using rating", "method", rankBy)
	}

	logger.Info("starting search",
		"place", place,
		"area", area,
		"rank_by", method,
		"max_results", cfg.Search.MaxResults,
		"browser", cfg.Browser.Type,
	)

	ctx, cancel := signalContext(logger)
	defer cancel()

	metrics := startMetrics(cfg, logger)

	browser, err := newBrowser(cfg, logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	start := time.Now()

	// Discover listing URLs
	disc, err := discoverListings(ctx, cfg, browser, metrics, logger, searchURL(cfg.Search.BaseURL, place, area))
	if err != nil {
		return err
	}
	if len(disc.URLs) == 0 {
		fmt.Printf("\n⚠️  No listings found for %q in %q\n", place, area)
		return nil
	}

	// Reuse records extracted by a recent run
	recordCache := cache.New(&cfg.Cache, logger)
	defer recordCache.Close()

	byURL := make(map[string]*types.Record, len(disc.URLs))
	var pending []string
	for _, u := range disc.URLs {
		rec, err := recordCache.Get(ctx, u)
		switch {
		case err == nil:
			byURL[u] = rec
			metrics.CacheHits.Add(1)
		case errors.Is(err, types.ErrCacheMiss):
			pending = append(pending, u)
		default:
			logger.Debug("cache lookup failed", "url", u, "error", err)
			pending = append(pending, u)
		}
	}

	// Visit listings in paced batches
	extractor := extract.NewDetailExtractor(&cfg.Browser, logger, extract.WithMetrics(metrics))
	retry := engine.NewRetryCoordinator(browser, cfg.Engine.MaxAttempts, cfg.Engine.RetryBaseDelay, logger,
		engine.WithRetryMetrics(metrics),
		engine.WithAttemptTimeout(cfg.Engine.AttemptTimeout),
	)
	orch := engine.NewOrchestrator[*types.Record](&cfg.Engine, retry, extractor.Extract, logger)
	orch.SetMetrics(metrics)

	frontier := engine.NewFrontier(logger, engine.WithVisitCap(0))
	if limit := orch.Limit(); limit > 0 && len(byURL) > 0 {
		// Cached records count toward the over-fetch limit.
		remaining := limit - len(byURL)
		if remaining <= 0 {
			pending = nil
		}
		orch.SetLimit(max(remaining, 0))
	}
	frontier.Seed(pending)

	orch.OnResult(func(u string, rec *types.Record) {
		byURL[u] = rec
		if err := recordCache.Set(context.WithoutCancel(ctx), rec); err != nil {
			logger.Debug("cache store failed", "url", u, "error", err)
		}
	})

	res := orch.Run(ctx, frontier)

	records := make([]*types.Record, 0, len(byURL))
	for _, u := range disc.URLs {
		if rec, ok := byURL[u]; ok {
			records = append(records, rec)
		}
	}

	// Normalise, rank and export
	pipe := pipeline.FromConfig(&cfg.Pipeline, logger)
	pipe.SetMetrics(metrics)
	records = pipe.ProcessAll(records)

	ranked := rank.Rank(records, method, place+" "+area, cfg.Search.MaxResults)

	exporter, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer exporter.Close()

	// Export even after an interrupt so partial runs are kept.
	exportCtx, exportCancel := context.WithTimeout(context.Background(), time.Minute)
	defer exportCancel()
	if err := exporter.Export(exportCtx, ranked); err != nil {
		return fmt.Errorf("export leads: %w", err)
	}
	metrics.RecordsExported.Add(int64(len(ranked)))

	elapsed := time.Since(start)
	stats := metrics.Snapshot()

	logger.Info("search complete",
		"elapsed", elapsed,
		"discovered", len(disc.URLs),
		"visited", res.Visited,
		"failed", res.Failed,
		"ranked", len(ranked),
		"stop", res.StopReason,
	)

	fmt.Printf("\n✅ Search complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Query:      %s in %s (ranked by %s)\n", place, area, method)
	fmt.Printf("   Listings:   %d discovered (%s after %d scrolls)\n", len(disc.URLs), disc.StopReason, disc.Iterations)
	fmt.Printf("   Visits:     %d visited, %d failed, %d cached\n", res.Visited, res.Failed, stats["cache_hits"])
	fmt.Printf("   Records:    %d extracted, %d dropped\n", stats["records_extracted"], stats["records_dropped"])
	fmt.Printf("   Ranked:     %d leads\n", len(ranked))
	fmt.Printf("   Output:     %s\n", cfg.Storage.OutputPath)

	if len(ranked) > 0 {
		fmt.Println("\n🏆 Top leads:")
		for _, r := range ranked[:min(5, len(ranked))] {
			fmt.Printf("   %2d. %s (%.1f★, %d reviews)\n", r.Rank, r.Title, r.Rating, r.ReviewCount)
		}
	}

	if ctx.Err() != nil {
		fmt.Println("\n⚠️  Interrupted: results above are partial.")
	}
	return nil
}

// searchURL builds the result-list URL for "<place> in <area>".
func searchURL(base, place, area string) string {
	return base + url.QueryEscape(place) + "+in+" + url.QueryEscape(area)
}

// discoverListings opens the result list, dismisses the consent dialog and
// scrolls it until no new listings appear.
func discoverListings(ctx context.Context, cfg *config.Config, browser driver.Browser, metrics *observability.Metrics, logger *slog.Logger, target string) (*discover.Discovery, error) {
	page, err := browser.NewIsolatedPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open search page: %w", err)
	}
	defer page.Close()

	logger.Info("opening result list", "url", target)
	err = page.Navigate(ctx, target, driver.NavigateOptions{
		Wait:    driver.WaitDOMContentLoaded,
		Timeout: cfg.Browser.PageTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("navigate to search: %w", err)
	}

	for _, sel := range cfg.Search.ConsentButtons {
		if err := page.Click(ctx, sel); err == nil {
			logger.Debug("dismissed consent dialog", "selector", sel)
			break
		}
	}

	if err := types.Sleep(ctx, cfg.Browser.SettleDelay); err != nil {
		return nil, err
	}

	d := discover.NewScrollDiscoverer(&cfg.Scroll, logger, discover.WithMetrics(metrics))
	disc, err := d.Discover(ctx, page)
	if err != nil {
		if errors.Is(err, types.ErrNoResultsContainer) {
			return nil, fmt.Errorf("no result list on %s: %w", target, err)
		}
		return nil, fmt.Errorf("discover listings: %w", err)
	}
	return disc, nil
}
