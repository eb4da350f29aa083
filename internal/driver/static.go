package driver

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

// StaticBrowser implements Browser with plain HTTP requests. Pages have no
// script engine, so Evaluate and Click return types.ErrUnsupported.
type StaticBrowser struct {
	transport  *http.Transport
	cfg        *config.BrowserConfig
	profile    *StealthProfile
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64
}

// NewStaticBrowser creates an HTTP-backed browser.
func NewStaticBrowser(cfg *config.BrowserConfig, logger *slog.Logger) *StaticBrowser {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSInsecure,
		},
		DisableCompression: true, // decompressed by hand, including brotli
	}

	return &StaticBrowser{
		transport:  transport,
		cfg:        cfg,
		profile:    DefaultStealthProfile(),
		logger:     logger.With("component", "static_browser"),
		userAgents: cfg.UserAgents,
	}
}

// NewIsolatedPage returns a page with its own cookie jar.
func (b *StaticBrowser) NewIsolatedPage(ctx context.Context) (Page, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &staticPage{
		client: &http.Client{
			Transport: b.transport,
			Jar:       jar,
		},
		browser:   b,
		userAgent: b.nextUserAgent(),
	}, nil
}

// Type returns the driver identifier.
func (b *StaticBrowser) Type() string { return "http" }

// Close releases idle connections.
func (b *StaticBrowser) Close() error {
	b.transport.CloseIdleConnections()
	return nil
}

func (b *StaticBrowser) nextUserAgent() string {
	if len(b.userAgents) == 0 {
		return "LeadGoat/" + config.Version
	}
	idx := b.uaIndex.Add(1) % int64(len(b.userAgents))
	return b.userAgents[idx]
}

// staticPage holds the last fetched document.
type staticPage struct {
	client    *http.Client
	browser   *StaticBrowser
	userAgent string

	url  *url.URL
	body []byte
	doc  *goquery.Document
}

func (p *staticPage) Navigate(ctx context.Context, rawURL string, opts NavigateOptions) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.browser.cfg.PageTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &types.FetchError{URL: rawURL, Err: err, Retryable: false}
	}
	req.Header.Set("User-Agent", p.userAgent)
	p.browser.profile.ApplyHeaders(req.Header)

	resp, err := p.client.Do(req)
	if err != nil {
		return &types.FetchError{URL: rawURL, Err: err, Retryable: isRetryableError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &types.FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode), Retryable: true}
	}
	if resp.StatusCode >= 400 {
		return &types.FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	reader, err := decompressReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return &types.FetchError{URL: rawURL, Err: fmt.Errorf("decode %s body: %w", resp.Header.Get("Content-Encoding"), err)}
	}

	body, err := readLimited(reader, p.browser.cfg.MaxBodySize)
	if errors.Is(err, types.ErrBodyTooLarge) {
		return &types.FetchError{URL: rawURL, Err: err}
	}
	if err != nil {
		return &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return &types.FetchError{URL: rawURL, Err: fmt.Errorf("parse HTML: %w", err)}
	}

	p.url = resp.Request.URL
	p.body = body
	p.doc = doc

	p.browser.logger.Debug("fetched",
		"url", rawURL,
		"final_url", p.url.String(),
		"status", resp.StatusCode,
		"size", len(body),
	)
	return nil
}

func (p *staticPage) Evaluate(ctx context.Context, script string, args ...any) (Value, error) {
	return Value{}, types.ErrUnsupported
}

func (p *staticPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("query %q: no document loaded", selector)
	}

	var els []Element
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		el := Element{
			Text:  strings.Join(strings.Fields(s.Text()), " "),
			Attrs: make(map[string]string),
		}
		for _, attr := range s.Nodes[0].Attr {
			el.Attrs[attr.Key] = attr.Val
		}
		if href, ok := el.Attrs["href"]; ok {
			el.Attrs["href"] = p.resolve(href)
		}
		els = append(els, el)
	})
	return els, nil
}

func (p *staticPage) Content(ctx context.Context) (string, error) {
	if p.body == nil {
		return "", fmt.Errorf("no document loaded")
	}
	return string(p.body), nil
}

func (p *staticPage) Click(ctx context.Context, selector string) error {
	return types.ErrUnsupported
}

func (p *staticPage) URL() string {
	if p.url == nil {
		return ""
	}
	return p.url.String()
}

func (p *staticPage) Close() error {
	p.doc = nil
	p.body = nil
	return nil
}

// resolve turns a relative href into an absolute URL against the page.
func (p *staticPage) resolve(href string) string {
	if p.url == nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return p.url.ResolveReference(ref).String()
}

// decompressReader wraps a reader with the decoder for a Content-Encoding.
func decompressReader(encoding string, reader io.Reader) (io.Reader, error) {
	switch encoding {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// readLimited reads the decoded body, failing once it exceeds limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: decoded size over %d bytes", types.ErrBodyTooLarge, limit)
	}
	return body, nil
}

// isRetryableError checks if a network error warrants a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}
