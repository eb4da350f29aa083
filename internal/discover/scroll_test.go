package discover

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/driver"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// listPage simulates a results container that grows on the first growFor
// forward scrolls and then stops.
type listPage struct {
	container string
	growFor   int
	endAfter  int // end marker shows after this many forward scrolls; 0 = never
	height    int
	forward   int
	nudges    int
	links     []driver.Element
}

func (p *listPage) Navigate(ctx context.Context, url string, opts driver.NavigateOptions) error {
	return nil
}

func (p *listPage) Evaluate(ctx context.Context, script string, args ...any) (driver.Value, error) {
	switch script {
	case existsJS:
		return driver.ValueOf(args[0] == p.container), nil
	case extentJS:
		return driver.ValueOf(p.height), nil
	case scrollJS:
		dy := args[1].(int)
		if dy < 0 {
			p.nudges++
			return driver.ValueOf(0), nil
		}
		if dy == nudgeForward {
			return driver.ValueOf(0), nil
		}
		p.forward++
		if p.forward <= p.growFor {
			p.height += 1000
		}
		return driver.ValueOf(p.forward * dy), nil
	case endMarkerJS:
		return driver.ValueOf(p.endAfter > 0 && p.forward >= p.endAfter), nil
	}
	return driver.Value{}, errors.New("unexpected script")
}

func (p *listPage) QueryAll(ctx context.Context, selector string) ([]driver.Element, error) {
	return p.links, nil
}
func (p *listPage) Content(ctx context.Context) (string, error) { return "", nil }
func (p *listPage) Click(ctx context.Context, selector string) error { return nil }
func (p *listPage) URL() string                                     { return "" }
func (p *listPage) Close() error                                    { return nil }

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func testConfig() *config.ScrollConfig {
	cfg := config.DefaultConfig().Scroll
	cfg.EndMarkers = []string{"You've reached the end of the list."}
	return &cfg
}

func TestDiscoverStopsAfterStall(t *testing.T) {
	cfg := testConfig()
	for _, k := range []int{0, 1, 3, 12} {
		page := &listPage{container: `div[role="feed"]`, growFor: k, height: 500}
		d := NewScrollDiscoverer(cfg, testLogger, WithSleep(noSleep))

		disc, err := d.Discover(context.Background(), page)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if disc.StopReason != StopStalled {
			t.Errorf("k=%d: expected stalled, got %s", k, disc.StopReason)
		}
		if want := k + cfg.StallThreshold; disc.Iterations != want {
			t.Errorf("k=%d: expected %d iterations, got %d", k, want, disc.Iterations)
		}
	}
}

func TestDiscoverNeverExceedsIterationCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxIterations = 20
	page := &listPage{container: `div[role="feed"]`, growFor: 1000}

	disc, err := NewScrollDiscoverer(cfg, testLogger, WithSleep(noSleep)).Discover(context.Background(), page)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if disc.Iterations != 20 || disc.StopReason != StopMaxIterations {
		t.Errorf("expected cap at 20, got %d (%s)", disc.Iterations, disc.StopReason)
	}
}

func TestDiscoverEndMarker(t *testing.T) {
	cfg := testConfig()
	page := &listPage{container: `div[role="feed"]`, growFor: 50, endAfter: 2}

	disc, err := NewScrollDiscoverer(cfg, testLogger, WithSleep(noSleep)).Discover(context.Background(), page)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if disc.Iterations != 2 || disc.StopReason != StopEndMarker {
		t.Errorf("expected end marker at 2, got %d (%s)", disc.Iterations, disc.StopReason)
	}
}

func TestDiscoverFallbackContainer(t *testing.T) {
	cfg := testConfig()
	page := &listPage{container: `.section-scrollbox`}

	disc, err := NewScrollDiscoverer(cfg, testLogger, WithSleep(noSleep)).Discover(context.Background(), page)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if disc.Container != `.section-scrollbox` {
		t.Errorf("expected legacy container, got %q", disc.Container)
	}
}

func TestDiscoverNoContainer(t *testing.T) {
	page := &listPage{container: "nothing-matches"}
	_, err := NewScrollDiscoverer(testConfig(), testLogger, WithSleep(noSleep)).Discover(context.Background(), page)
	if !errors.Is(err, types.ErrNoResultsContainer) {
		t.Errorf("expected ErrNoResultsContainer, got %v", err)
	}
}

func TestDiscoverNudges(t *testing.T) {
	cfg := testConfig()
	cfg.NudgeEvery = 4
	page := &listPage{container: `div[role="feed"]`, growFor: 7, height: 1}

	var waits []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	disc, _ := NewScrollDiscoverer(cfg, testLogger, WithSleep(sleep)).Discover(context.Background(), page)

	if want := disc.Iterations / 4; page.nudges != want {
		t.Errorf("expected %d nudges over %d iterations, got %d", want, disc.Iterations, page.nudges)
	}
	if len(waits) != disc.Iterations+2*page.nudges {
		t.Errorf("expected one settle per iteration and two per nudge, got %d waits", len(waits))
	}
}

func TestDiscoverCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := &listPage{container: `div[role="feed"]`, growFor: 10}

	disc, err := NewScrollDiscoverer(testConfig(), testLogger, WithSleep(noSleep)).Discover(ctx, page)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if disc.StopReason != StopCancelled || disc.Iterations != 1 {
		t.Errorf("expected cancel after first iteration, got %d (%s)", disc.Iterations, disc.StopReason)
	}
}

func TestHarvestFiltersAndDedupes(t *testing.T) {
	link := func(href string) driver.Element {
		return driver.Element{Attrs: map[string]string{"href": href}}
	}
	page := &listPage{
		container: `div[role="feed"]`,
		links: []driver.Element{
			link("https://www.google.com/maps/place/Joe's+Liquor/data=1"),
			link("https://www.google.com/maps/place/Corner+Shop/data=2"),
			link("https://www.google.com/maps/place/Joe's+Liquor/data=1"),
			link("https://www.google.com/maps/place/@40.7,-73.9,15z"),
			link("https://www.google.com/search?q=x"),
			link(""),
		},
	}

	urls, err := NewScrollDiscoverer(testConfig(), testLogger).Harvest(context.Background(), page)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 listing URLs, got %v", urls)
	}
	if urls[0] != "https://www.google.com/maps/place/Joe's+Liquor/data=1" {
		t.Errorf("expected discovery order preserved, got %v", urls)
	}
}
