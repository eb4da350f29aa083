package driver

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testPage = `<html><body>
<h1>  Joe's   Liquor Store </h1>
<a href="/about" aria-label="About us">About</a>
<a href="https://example.org/x">Out</a>
<button data-item-id="address">12 Main St</button>
</body></html>`

func newTestBrowser() *StaticBrowser {
	cfg := config.DefaultConfig().Browser
	cfg.PageTimeout = 5 * time.Second
	return NewStaticBrowser(&cfg, testLogger)
}

func TestStaticPageQueryAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	b := newTestBrowser()
	defer b.Close()

	page, err := b.NewIsolatedPage(context.Background())
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	defer page.Close()

	if err := page.Navigate(context.Background(), srv.URL+"/listing", NavigateOptions{Wait: WaitLoad}); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	h1, err := page.QueryAll(context.Background(), "h1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(h1) != 1 || h1[0].Text != "Joe's Liquor Store" {
		t.Errorf("expected collapsed heading text, got %+v", h1)
	}

	links, _ := page.QueryAll(context.Background(), "a[href]")
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].Href() != srv.URL+"/about" {
		t.Errorf("expected resolved href, got %q", links[0].Href())
	}
	if links[0].Label() != "About us" {
		t.Errorf("expected aria-label, got %q", links[0].Label())
	}

	addr, _ := page.QueryAll(context.Background(), `[data-item-id^="address"]`)
	if len(addr) != 1 || addr[0].Attr("data-item-id") != "address" {
		t.Errorf("unexpected address match: %+v", addr)
	}

	if page.URL() != srv.URL+"/listing" {
		t.Errorf("unexpected page URL %q", page.URL())
	}
}

func TestStaticPageBrotli(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	bw.Write([]byte(testPage))
	bw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
			t.Errorf("expected br in Accept-Encoding, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	page, _ := newTestBrowser().NewIsolatedPage(context.Background())
	if err := page.Navigate(context.Background(), srv.URL, NavigateOptions{}); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	html, err := page.Content(context.Background())
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if !strings.Contains(html, "12 Main St") {
		t.Errorf("expected decoded body, got %q", html)
	}
}

func TestStaticPageServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	page, _ := newTestBrowser().NewIsolatedPage(context.Background())
	err := page.Navigate(context.Background(), srv.URL, NavigateOptions{})

	var fetchErr *types.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !fetchErr.IsRetryable() || fetchErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected retryable 503, got %+v", fetchErr)
	}
}

func TestStaticPageUnsupported(t *testing.T) {
	page, _ := newTestBrowser().NewIsolatedPage(context.Background())
	if _, err := page.Evaluate(context.Background(), "() => 1"); !errors.Is(err, types.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported from Evaluate, got %v", err)
	}
	if err := page.Click(context.Background(), "button"); !errors.Is(err, types.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported from Click, got %v", err)
	}
	if _, err := page.QueryAll(context.Background(), "a"); err == nil {
		t.Error("expected error querying before navigation")
	}
}

func TestValueConversions(t *testing.T) {
	if got := ValueOf(1234.0).Int(); got != 1234 {
		t.Errorf("Int: expected 1234, got %d", got)
	}
	if got := ValueOf(true).Bool(); !got {
		t.Error("Bool: expected true")
	}
	if got := ValueOf("x").String(); got != "x" {
		t.Errorf("String: expected x, got %q", got)
	}
	if got := (Value{}).Float(); got != 0 {
		t.Errorf("empty Value should be 0, got %v", got)
	}

	var els []Element
	raw := `[{"text":"a","attrs":{"href":"https://x"}}]`
	if err := NewValue([]byte(raw)).Decode(&els); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(els) != 1 || els[0].Href() != "https://x" {
		t.Errorf("unexpected elements %+v", els)
	}
}

func TestStealthScriptIsSelfInvoking(t *testing.T) {
	p := DefaultStealthProfile()
	js := p.Script()
	if !strings.HasPrefix(js, "(() => {") || !strings.HasSuffix(js, "})();") {
		t.Errorf("stealth script must run on its own when injected, got %q", js[:20])
	}
	if !strings.Contains(js, p.Platform) {
		t.Error("expected platform in stealth script")
	}
}

func TestWaitResult(t *testing.T) {
	live := context.Background()
	expired, cancelExpired := context.WithTimeout(live, -time.Second)
	defer cancelExpired()
	cancelled, cancel := context.WithCancel(live)
	cancel()

	loadErr := errors.New("target closed")

	tests := []struct {
		name      string
		ctx       context.Context
		navCtx    context.Context
		waitErr   error
		wantErr   error
		retryable bool
	}{
		{"reached", live, live, nil, nil, false},
		{"deadline hit", live, expired, nil, types.ErrWaitTimeout, true},
		{"deadline hit with load error", live, expired, loadErr, types.ErrWaitTimeout, true},
		{"load error", live, live, loadErr, loadErr, true},
		{"run cancelled", cancelled, cancelled, nil, context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := waitResult(tt.ctx, tt.navCtx, "https://acme.test", WaitDOMContentLoaded, tt.waitErr)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var fe *types.FetchError
			if got := errors.As(err, &fe) && fe.IsRetryable(); got != tt.retryable {
				t.Errorf("retryable = %v, want %v (%v)", got, tt.retryable, err)
			}
		})
	}
}

func TestStaticPageBodyLimitAppliesToDecodedBytes(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	bw.Write([]byte("<html><body>" + strings.Repeat("<p>lead</p>", 1000) + "</body></html>"))
	bw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().Browser
	cfg.PageTimeout = 5 * time.Second
	cfg.MaxBodySize = 4096
	if int64(buf.Len()) >= cfg.MaxBodySize {
		t.Fatalf("compressed body should fit under the limit, got %d bytes", buf.Len())
	}

	page, _ := NewStaticBrowser(&cfg, testLogger).NewIsolatedPage(context.Background())
	err := page.Navigate(context.Background(), srv.URL, NavigateOptions{})
	if !errors.Is(err, types.ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	if !types.IsPermanent(err) {
		t.Errorf("oversized body should not be retried: %v", err)
	}
}

func TestReadLimited(t *testing.T) {
	body, err := readLimited(strings.NewReader("12345"), 5)
	if err != nil || string(body) != "12345" {
		t.Fatalf("body at the limit should be read whole, got %q %v", body, err)
	}
	if _, err := readLimited(strings.NewReader("123456"), 5); !errors.Is(err, types.ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
	if body, _ := readLimited(strings.NewReader("123456"), 0); len(body) != 6 {
		t.Errorf("zero limit should read everything, got %d bytes", len(body))
	}
}
