package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/driver"
	"github.com/IshaanNene/LeadGoat/internal/engine"
	"github.com/IshaanNene/LeadGoat/internal/extract"
	"github.com/IshaanNene/LeadGoat/internal/storage"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

var (
	contactsMaxVisits int
	contactsNoSeeds   bool
)

// contactsCmd creates the "contacts" subcommand.
func contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts <website>",
		Short: "Crawl a business website for emails, social profiles and team members",
		Long: `Crawl one website, staying on its host. Pages whose path mentions
team, about, contact and similar keywords are visited first.

Emails are appended to emails.csv as they are found; the merged report
(emails, social profiles, team members) is written to contact_info.json.`,
		Example: `  leadgoat contacts example.com
  leadgoat contacts https://example.com --max-visits 30 --browser http`,
		Args: cobra.ExactArgs(1),
		RunE: runContacts,
	}

	addBrowserFlags(cmd)
	cmd.Flags().IntVar(&contactsMaxVisits, "max-visits", 0, "maximum pages to visit")
	cmd.Flags().BoolVar(&contactsNoSeeds, "no-keyword-seeds", false, "do not seed <site>/<keyword> paths")

	return cmd
}

func runContacts(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(func(cfg *config.Config) {
		if contactsMaxVisits > 0 {
			cfg.Contacts.MaxVisits = contactsMaxVisits
		}
		if contactsNoSeeds {
			cfg.Contacts.SeedKeywordPaths = false
		}
	})
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	website := args[0]
	if !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		website = "https://" + website
	}
	if err := config.ValidateURL(website); err != nil {
		return fmt.Errorf("invalid website %q: %w", args[0], err)
	}
	website = strings.TrimRight(website, "/")

	logger.Info("starting contact crawl",
		"website", website,
		"max_visits", cfg.Contacts.MaxVisits,
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

	writer, err := storage.NewContactWriter(cfg.Storage.OutputPath, logger)
	if err != nil {
		return err
	}
	defer writer.Close()

	frontier := engine.NewFrontier(logger,
		engine.WithSeedScope(),
		engine.WithPriorityKeywords(cfg.Contacts.PriorityKeywords),
		engine.WithVisitCap(cfg.Contacts.MaxVisits),
	)
	seeded := frontier.Seed(contactSeeds(website, cfg.Contacts))
	logger.Debug("frontier seeded", "seeds", seeded, "scope", frontier.ScopeHost())

	extractor := extract.NewContactExtractor(&cfg.Contacts, logger)
	collector := extract.NewContactCollector(website, metrics, logger)

	visit := func(ctx context.Context, page driver.Page, pageURL string) (*types.PageContacts, error) {
		if err := navigateIdleOrLoad(ctx, page, pageURL, &cfg.Browser, logger); err != nil {
			return nil, fmt.Errorf("navigate page: %w", err)
		}

		if final := engine.NormalizeLink(page.URL()); final != "" && final != pageURL {
			frontier.MarkVisited(final)
		}

		pc, err := extractor.Extract(ctx, page, pageURL)
		if err != nil {
			return nil, err
		}
		for _, link := range pc.Links {
			if err := frontier.Enqueue(engine.NormalizeLink(link), engine.PriorityNormal); err != nil {
				metrics.URLsRejected.Add(1)
				continue
			}
			metrics.URLsEnqueued.Add(1)
		}
		return pc, nil
	}

	retry := engine.NewRetryCoordinator(browser, cfg.Engine.MaxAttempts, cfg.Engine.RetryBaseDelay, logger,
		engine.WithRetryMetrics(metrics),
		engine.WithAttemptTimeout(cfg.Engine.AttemptTimeout),
	)
	orch := engine.NewOrchestrator[*types.PageContacts](&cfg.Engine, retry, visit, logger)
	orch.SetMetrics(metrics)
	orch.SetLimit(0)
	orch.OnResult(func(pageURL string, pc *types.PageContacts) {
		collector.Add(pc)
		if err := writer.AppendEmails(pageURL, pc.Emails); err != nil {
			logger.Warn("failed to append emails", "url", pageURL, "error", err)
		}
	})

	start := time.Now()
	res := orch.Run(ctx, frontier)

	report := collector.Report()
	if err := writer.WriteReport(report); err != nil {
		return fmt.Errorf("write contact report: %w", err)
	}

	elapsed := time.Since(start)
	logger.Info("contact crawl complete",
		"elapsed", elapsed,
		"visited", res.Visited,
		"failed", res.Failed,
		"emails", len(report.Emails),
		"socials", len(report.SocialMedia),
		"team", len(report.TeamMembers),
		"stop", res.StopReason,
	)

	fmt.Printf("\n✅ Contact crawl complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Website:    %s\n", website)
	fmt.Printf("   Pages:      %d visited, %d failed\n", res.Visited, res.Failed)
	fmt.Printf("   Emails:     %d\n", len(report.Emails))
	fmt.Printf("   Socials:    %d\n", len(report.SocialMedia))
	fmt.Printf("   Team:       %d\n", len(report.TeamMembers))
	fmt.Printf("   Output:     %s\n", cfg.Storage.OutputPath)

	for _, s := range report.SocialMedia {
		fmt.Printf("   🔗 %-10s %s\n", s.Platform, s.URL)
	}
	for _, m := range report.TeamMembers {
		fmt.Printf("   👤 %s, %s\n", m.Name, m.Title)
	}

	if len(report.Emails) == 0 && len(report.TeamMembers) == 0 {
		fmt.Println("\n💡 Nothing found. Sites that render with JavaScript need --browser rod.")
	}
	if ctx.Err() != nil {
		fmt.Println("\n⚠️  Interrupted: the report above is partial.")
	}
	return nil
}

// navigateIdleOrLoad waits for network idle and, when the page never goes
// idle, loads it again waiting only for the load event.
func navigateIdleOrLoad(ctx context.Context, page driver.Page, pageURL string, cfg *config.BrowserConfig, logger *slog.Logger) error {
	err := page.Navigate(ctx, pageURL, driver.NavigateOptions{
		Wait:    driver.WaitNetworkIdle,
		Timeout: cfg.IdleTimeout,
	})
	if !errors.Is(err, types.ErrWaitTimeout) {
		return err
	}
	logger.Debug("page never went idle, retrying with load", "url", pageURL)
	return page.Navigate(ctx, pageURL, driver.NavigateOptions{
		Wait:    driver.WaitLoad,
		Timeout: cfg.PageTimeout,
	})
}

// contactSeeds returns the base URL followed by base/<keyword> paths.
func contactSeeds(base string, cfg config.ContactsConfig) []string {
	seeds := []string{base}
	if !cfg.SeedKeywordPaths {
		return seeds
	}
	for _, kw := range cfg.PriorityKeywords {
		if kw = strings.Trim(strings.TrimSpace(kw), "/"); kw != "" {
			seeds = append(seeds, base+"/"+kw)
		}
	}
	return seeds
}
