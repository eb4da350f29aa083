// Package extract turns loaded pages into structured records: listing
// details for the search flow and contact data for the website crawl.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/driver"
	"github.com/IshaanNene/LeadGoat/internal/observability"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

// Selector groups for listing fields, tried in order.
const (
	titleXPath    = "//h1"
	titleSelector = `[role="main"] h1, [role="main"] [aria-level="1"]`

	addressSelector  = `button[data-item-id^="address"], [data-item-id^="address"], a[href^="https://www.google.com/maps/dir"]`
	phoneSelector    = `button[data-tooltip="Copy phone number"], [data-item-id^="phone:"], a[href^="tel:"]`
	ratingSelector   = `div[role="img"][aria-label*="stars"], span[aria-label*="stars"]`
	ratingFallback   = `.fontBodyMedium span`
	categorySelector = `button[jsaction="pane.rating.category"], [jsaction="pane.rating.category"]`
	websiteSelector  = `a[data-tooltip="Open website"], a[data-tooltip="Open menu link"]`
	externalSelector = `a[href^="http"]`
)

// platformHosts are never a business's own website.
var platformHosts = []string{
	"google.com",
	"google.",
	"gstatic.com",
	"googleusercontent.com",
	"goo.gl",
}

// DetailExtractor reads listing fields from a place page. Field misses
// degrade to zero values; only navigation failures are errors.
type DetailExtractor struct {
	cfg     *config.BrowserConfig
	sleep   types.SleepFunc
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures the DetailExtractor.
type Option func(*DetailExtractor)

// WithSleep replaces the post-load settle sleeper.
func WithSleep(fn types.SleepFunc) Option {
	return func(e *DetailExtractor) { e.sleep = fn }
}

// WithMetrics records extracted records.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *DetailExtractor) { e.metrics = m }
}

// NewDetailExtractor creates a DetailExtractor.
func NewDetailExtractor(cfg *config.BrowserConfig, logger *slog.Logger, opts ...Option) *DetailExtractor {
	e := &DetailExtractor{
		cfg:    cfg,
		sleep:  types.Sleep,
		logger: logger.With("component", "detail_extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = observability.NewMetrics(logger)
	}
	return e
}

// Extract loads a listing URL into page and reads its fields.
func (e *DetailExtractor) Extract(ctx context.Context, page driver.Page, listingURL string) (*types.Record, error) {
	err := page.Navigate(ctx, listingURL, driver.NavigateOptions{
		Wait:    driver.WaitDOMContentLoaded,
		Timeout: e.cfg.PageTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("navigate listing: %w", err)
	}
	if err := e.sleep(ctx, e.cfg.SettleDelay); err != nil {
		return nil, err
	}
	return e.ExtractLoaded(ctx, page, listingURL), nil
}

// ExtractLoaded reads fields from a page that is already loaded.
func (e *DetailExtractor) ExtractLoaded(ctx context.Context, page driver.Page, listingURL string) *types.Record {
	rec := types.NewRecord(listingURL)

	rec.Title = e.title(ctx, page)
	rec.Address = e.firstText(ctx, page, addressSelector)
	rec.Phone = e.firstText(ctx, page, phoneSelector)
	rec.Rating, rec.ReviewCount = e.rating(ctx, page)
	rec.Category = e.firstText(ctx, page, categorySelector)
	rec.Website = e.website(ctx, page, rec.Title)

	e.metrics.RecordsExtracted.Add(1)
	e.logger.Debug("extracted listing",
		"url", listingURL,
		"title", rec.Title,
		"rating", rec.Rating,
		"reviews", rec.ReviewCount,
		"website", rec.Website,
	)
	return rec
}

// title tries an XPath query over the rendered HTML, then the main pane heading.
func (e *DetailExtractor) title(ctx context.Context, page driver.Page) string {
	content, err := page.Content(ctx)
	if err == nil {
		if doc, err := html.Parse(strings.NewReader(content)); err == nil {
			if node := htmlquery.FindOne(doc, titleXPath); node != nil {
				if t := collapse(htmlquery.InnerText(node)); t != "" {
					return t
				}
			}
		}
	}
	return e.firstText(ctx, page, titleSelector)
}

func (e *DetailExtractor) rating(ctx context.Context, page driver.Page) (float64, int) {
	var rating float64
	var reviews int

	if els := e.query(ctx, page, ratingSelector); len(els) > 0 {
		rating, reviews = ParseRatingLabel(els[0].Label())
	}
	if rating == 0 {
		if text := e.firstText(ctx, page, ratingFallback); text != "" {
			rating, reviews = ParseRatingText(text)
		}
	}
	return rating, reviews
}

func (e *DetailExtractor) website(ctx context.Context, page driver.Page, title string) string {
	if els := e.query(ctx, page, websiteSelector); len(els) > 0 {
		if href := els[0].Href(); href != "" {
			return href
		}
	}

	for _, el := range e.query(ctx, page, externalSelector) {
		href := el.Href()
		if href == "" || isPlatformLink(href) {
			continue
		}
		if strings.Contains(strings.ToLower(el.Label()), "website") || matchesTitle(href, title) {
			return href
		}
	}
	return ""
}

func (e *DetailExtractor) firstText(ctx context.Context, page driver.Page, selector string) string {
	for _, el := range e.query(ctx, page, selector) {
		if t := collapse(el.Text); t != "" {
			return t
		}
	}
	return ""
}

func (e *DetailExtractor) query(ctx context.Context, page driver.Page, selector string) []driver.Element {
	els, err := page.QueryAll(ctx, selector)
	if err != nil {
		e.logger.Debug("query failed", "selector", selector, "error", err)
		return nil
	}
	return els
}

func isPlatformLink(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range platformHosts {
		if strings.Contains(host, p) {
			return true
		}
	}
	return false
}

// matchesTitle reports whether a link plausibly belongs to the business:
// the lowercased href contains the title, or the hostname contains the
// title with non-alphanumerics removed.
func matchesTitle(href, title string) bool {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return false
	}
	if strings.Contains(strings.ToLower(href), title) {
		return true
	}

	compact := alnum(title)
	if len(compact) < 3 {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return strings.Contains(alnum(strings.ToLower(u.Hostname())), compact)
}

func alnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
