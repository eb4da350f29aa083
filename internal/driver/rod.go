package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

// ErrElementNotFound is returned by Click when nothing matches the selector.
var ErrElementNotFound = errors.New("element not found")

// queryAllJS snapshots every element matching a selector in one round trip.
// Anchors report their resolved href property rather than the raw attribute.
const queryAllJS = `(sel) => Array.from(document.querySelectorAll(sel), (el) => {
	const attrs = {};
	for (const a of el.attributes) attrs[a.name] = a.value;
	if (typeof el.href === 'string' && el.href) attrs.href = el.href;
	return { text: (el.innerText || el.textContent || '').trim(), attrs };
})`

// RodBrowser implements Browser with a Chromium instance driven by Rod.
type RodBrowser struct {
	browser *rod.Browser
	cfg     *config.BrowserConfig
	profile *StealthProfile
	logger  *slog.Logger
	uaIndex atomic.Int64
}

// NewRodBrowser launches Chromium and connects to it.
func NewRodBrowser(cfg *config.BrowserConfig, logger *slog.Logger) (*RodBrowser, error) {
	rb := &RodBrowser{
		cfg:    cfg,
		logger: logger.With("component", "rod_browser"),
	}
	if cfg.Stealth {
		rb.profile = DefaultStealthProfile()
	}

	launchURL, err := rb.launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	rb.browser = browser

	rb.logger.Info("browser ready",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
	)
	return rb, nil
}

// launch starts a Chromium instance with automation-hiding flags.
func (rb *RodBrowser) launch() (string, error) {
	l := launcher.New().
		Headless(rb.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")

	if rb.cfg.NoSandbox {
		l = l.NoSandbox(true)
	}
	if rb.cfg.BinPath != "" {
		l = l.Bin(rb.cfg.BinPath)
	}
	if rb.profile != nil {
		l = l.Set("window-size", rb.profile.WindowSize())
	}

	return l.Launch()
}

// NewIsolatedPage opens a page inside a new incognito browser context.
func (rb *RodBrowser) NewIsolatedPage(ctx context.Context) (Page, error) {
	incognito, err := rb.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("create incognito context: %w", err)
	}

	var page *rod.Page
	if rb.cfg.Stealth {
		page, err = stealth.Page(incognito)
	} else {
		page, err = incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if rb.profile != nil {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             rb.profile.ViewportWidth,
			Height:            rb.profile.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			rb.logger.Warn("failed to set viewport", "error", err)
		}
		if _, err := page.EvalOnNewDocument(rb.profile.Script()); err != nil {
			rb.logger.Warn("failed to inject stealth script", "error", err)
		}
	}

	if ua := rb.nextUserAgent(); ua != "" {
		override := &proto.NetworkSetUserAgentOverride{UserAgent: ua}
		if rb.profile != nil {
			override.AcceptLanguage = rb.profile.Language
		}
		if err := page.SetUserAgent(override); err != nil {
			rb.logger.Warn("failed to set user agent", "error", err)
		}
	}

	return &rodPage{
		page:      page,
		incognito: incognito,
		logger:    rb.logger,
	}, nil
}

// Type returns the driver identifier.
func (rb *RodBrowser) Type() string { return "rod" }

// Close shuts down the browser.
func (rb *RodBrowser) Close() error {
	if rb.browser != nil {
		return rb.browser.Close()
	}
	return nil
}

func (rb *RodBrowser) nextUserAgent() string {
	if len(rb.cfg.UserAgents) == 0 {
		return ""
	}
	idx := rb.uaIndex.Add(1) % int64(len(rb.cfg.UserAgents))
	return rb.cfg.UserAgents[idx]
}

// rodPage implements Page over a *rod.Page in its own incognito context.
type rodPage struct {
	page      *rod.Page
	incognito *rod.Browser
	logger    *slog.Logger
}

func (p *rodPage) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := p.page.Context(navCtx)

	var wait func()
	switch opts.Wait {
	case WaitNetworkIdle:
		wait = page.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	case WaitDOMContentLoaded:
		wait = page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	}

	if err := page.Navigate(url); err != nil {
		return &types.FetchError{URL: url, Err: err, Retryable: true}
	}

	cond := opts.Wait
	var waitErr error
	if wait != nil {
		wait()
	} else {
		cond = WaitLoad
		waitErr = page.WaitLoad()
	}
	err := waitResult(ctx, navCtx, url, cond, waitErr)
	if errors.Is(err, types.ErrWaitTimeout) {
		p.logger.Debug("wait condition not reached", "url", url, "wait", cond, "timeout", timeout)
	}
	return err
}

// waitResult turns the end of a navigation wait into Navigate's error.
// Lifecycle waits return silently when navCtx expires; that case becomes a
// retryable types.ErrWaitTimeout.
func waitResult(ctx, navCtx context.Context, url string, cond WaitCondition, waitErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return &types.FetchError{URL: url, Err: fmt.Errorf("%w: %s", types.ErrWaitTimeout, cond), Retryable: true}
	}
	if waitErr != nil {
		return &types.FetchError{URL: url, Err: fmt.Errorf("wait %s: %w", cond, waitErr), Retryable: true}
	}
	return nil
}

func (p *rodPage) Evaluate(ctx context.Context, script string, args ...any) (Value, error) {
	res, err := p.page.Context(ctx).Eval(script, args...)
	if err != nil {
		return Value{}, fmt.Errorf("evaluate: %w", err)
	}
	if res == nil {
		return Value{}, nil
	}
	raw, err := json.Marshal(res.Value.Val())
	if err != nil {
		return Value{}, fmt.Errorf("encode eval result: %w", err)
	}
	return NewValue(raw), nil
}

func (p *rodPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	v, err := p.Evaluate(ctx, queryAllJS, selector)
	if err != nil {
		return nil, err
	}
	var els []Element
	if err := v.Decode(&els); err != nil {
		return nil, fmt.Errorf("decode elements for %q: %w", selector, err)
	}
	return els, nil
}

func (p *rodPage) Content(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	has, el, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return err
	}
	if !has {
		return ErrElementNotFound
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Close() error {
	err := p.page.Close()
	if cerr := p.incognito.Close(); err == nil {
		err = cerr
	}
	return err
}
