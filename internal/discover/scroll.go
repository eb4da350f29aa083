// Package discover materialises lazily-loaded result lists by scrolling
// them and harvests the listing URLs they contain.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/driver"
	"github.com/IshaanNene/LeadGoat/internal/observability"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

// Stop reasons reported in Discovery.
const (
	StopEndMarker     = "end_marker"
	StopStalled       = "stalled"
	StopMaxIterations = "max_iterations"
	StopCancelled     = "cancelled"
)

const (
	existsJS = `(sel) => !!document.querySelector(sel)`

	extentJS = `(sel) => {
	const el = document.querySelector(sel);
	return el ? el.scrollHeight : -1;
}`

	scrollJS = `(sel, dy) => {
	const el = document.querySelector(sel);
	if (!el) return -1;
	el.scrollBy(0, dy);
	return el.scrollTop;
}`

	endMarkerJS = `(markers) => {
	const text = document.body ? document.body.innerText : '';
	return markers.some((m) => text.includes(m));
}`
)

// Nudge distances for the direction-change lazy-load trigger.
const (
	nudgeBack    = -200
	nudgeForward = 300
)

// Discovery is the outcome of one scroll-and-harvest pass.
type Discovery struct {
	URLs       []string
	Container  string
	Iterations int
	StopReason string
}

// ScrollDiscoverer drives a scrollable results container until it stops
// growing. The stall counter is the primary stop signal; end-of-list text
// only ends the loop early.
type ScrollDiscoverer struct {
	cfg     *config.ScrollConfig
	sleep   types.SleepFunc
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures the ScrollDiscoverer.
type Option func(*ScrollDiscoverer)

// WithSleep replaces the settle-delay sleeper.
func WithSleep(fn types.SleepFunc) Option {
	return func(d *ScrollDiscoverer) { d.sleep = fn }
}

// WithMetrics records iterations and harvested listings.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *ScrollDiscoverer) { d.metrics = m }
}

// NewScrollDiscoverer creates a ScrollDiscoverer.
func NewScrollDiscoverer(cfg *config.ScrollConfig, logger *slog.Logger, opts ...Option) *ScrollDiscoverer {
	d := &ScrollDiscoverer{
		cfg:    cfg,
		sleep:  types.Sleep,
		logger: logger.With("component", "scroll_discoverer"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = observability.NewMetrics(logger)
	}
	return d
}

// Discover scrolls the loaded results page and returns the listing URLs.
// It returns types.ErrNoResultsContainer when no container selector matches.
func (d *ScrollDiscoverer) Discover(ctx context.Context, page driver.Page) (*Discovery, error) {
	container, err := d.locateContainer(ctx, page)
	if err != nil {
		return nil, err
	}
	disc := &Discovery{Container: container}
	logger := d.logger.With("container", container)

	prev := d.extent(ctx, page, container)
	stall := 0

	for i := 1; i <= d.cfg.MaxIterations; i++ {
		disc.Iterations = i
		d.metrics.ScrollIterations.Add(1)

		d.scroll(ctx, page, container, d.cfg.Step)
		if err := d.sleep(ctx, d.cfg.SettleDelay); err != nil {
			disc.StopReason = StopCancelled
			break
		}

		if d.cfg.NudgeEvery > 0 && i%d.cfg.NudgeEvery == 0 {
			if err := d.nudge(ctx, page, container); err != nil {
				disc.StopReason = StopCancelled
				break
			}
		}

		cur := d.extent(ctx, page, container)
		if cur > prev {
			stall = 0
			prev = cur
		} else {
			stall++
		}
		logger.Debug("scrolled", "iteration", i, "extent", cur, "stall", stall)

		if stall >= d.cfg.StallThreshold {
			disc.StopReason = StopStalled
			break
		}
		if d.atEnd(ctx, page) {
			disc.StopReason = StopEndMarker
			break
		}
	}
	if disc.StopReason == "" {
		disc.StopReason = StopMaxIterations
	}

	urls, err := d.Harvest(ctx, page)
	if err != nil {
		return nil, err
	}
	disc.URLs = urls
	d.metrics.ListingsDiscovered.Add(int64(len(urls)))

	logger.Info("discovery finished",
		"iterations", disc.Iterations,
		"reason", disc.StopReason,
		"listings", len(urls),
	)
	return disc, nil
}

// Harvest collects deduplicated listing URLs currently in the page.
func (d *ScrollDiscoverer) Harvest(ctx context.Context, page driver.Page) ([]string, error) {
	els, err := page.QueryAll(ctx, d.cfg.ListingSelector)
	if err != nil {
		return nil, fmt.Errorf("harvest listings: %w", err)
	}

	seen := make(map[string]struct{}, len(els))
	urls := make([]string, 0, len(els))
	for _, el := range els {
		href := strings.TrimSpace(el.Href())
		if !d.isListing(href) {
			continue
		}
		if _, ok := seen[href]; ok {
			continue
		}
		seen[href] = struct{}{}
		urls = append(urls, href)
	}
	return urls, nil
}

func (d *ScrollDiscoverer) isListing(href string) bool {
	if href == "" {
		return false
	}
	if d.cfg.ListingPrefix != "" && !strings.HasPrefix(href, d.cfg.ListingPrefix) {
		return false
	}
	for _, pattern := range d.cfg.ExcludePatterns {
		if strings.Contains(href, pattern) {
			return false
		}
	}
	return true
}

func (d *ScrollDiscoverer) locateContainer(ctx context.Context, page driver.Page) (string, error) {
	for _, sel := range d.cfg.ContainerSelectors {
		v, err := page.Evaluate(ctx, existsJS, sel)
		if err != nil {
			d.logger.Debug("container probe failed", "selector", sel, "error", err)
			continue
		}
		if v.Bool() {
			return sel, nil
		}
	}
	return "", types.ErrNoResultsContainer
}

// extent returns the container's scroll height, -1 if it cannot be read.
func (d *ScrollDiscoverer) extent(ctx context.Context, page driver.Page, container string) int {
	v, err := page.Evaluate(ctx, extentJS, container)
	if err != nil {
		d.logger.Debug("extent read failed", "error", err)
		return -1
	}
	return v.Int()
}

func (d *ScrollDiscoverer) scroll(ctx context.Context, page driver.Page, container string, dy int) {
	if _, err := page.Evaluate(ctx, scrollJS, container, dy); err != nil {
		d.logger.Debug("scroll failed", "dy", dy, "error", err)
	}
}

// nudge scrolls back then forward; some lists only load on direction change.
func (d *ScrollDiscoverer) nudge(ctx context.Context, page driver.Page, container string) error {
	half := d.cfg.SettleDelay / 2
	d.scroll(ctx, page, container, nudgeBack)
	if err := d.sleep(ctx, half); err != nil {
		return err
	}
	d.scroll(ctx, page, container, nudgeForward)
	return d.sleep(ctx, half)
}

func (d *ScrollDiscoverer) atEnd(ctx context.Context, page driver.Page) bool {
	if len(d.cfg.EndMarkers) == 0 {
		return false
	}
	v, err := page.Evaluate(ctx, endMarkerJS, d.cfg.EndMarkers)
	if err != nil {
		return false
	}
	return v.Bool()
}
