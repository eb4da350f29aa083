package engine

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/IshaanNene/LeadGoat/internal/types"
)

// Priority decides where an enqueued URL lands in the queue.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// DefaultVisitCap bounds a crawl when no cap is configured.
const DefaultVisitCap = 100

// Frontier is the ordered queue of URLs to visit plus the visited set.
// URLs are deduplicated by exact string equality; a URL that is queued or
// was already handed out is never queued again.
type Frontier struct {
	mu        sync.Mutex
	queue     []string
	queued    map[string]struct{}
	visited   *VisitedSet
	keywords  []string
	scopeHost string
	autoScope bool
	visitCap  int
	handedOut int
	logger    *slog.Logger
}

// FrontierOption configures the Frontier.
type FrontierOption func(*Frontier)

// WithSeedScope restricts the frontier to the hostname of the first seed.
func WithSeedScope() FrontierOption {
	return func(f *Frontier) { f.autoScope = true }
}

// WithPriorityKeywords promotes URLs whose path contains any keyword.
func WithPriorityKeywords(keywords []string) FrontierOption {
	return func(f *Frontier) {
		f.keywords = make([]string, 0, len(keywords))
		for _, kw := range keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				f.keywords = append(f.keywords, kw)
			}
		}
	}
}

// WithVisitCap sets the maximum number of URLs DequeueBatch will hand out.
// A cap <= 0 means unlimited.
func WithVisitCap(n int) FrontierOption {
	return func(f *Frontier) { f.visitCap = n }
}

// NewFrontier creates a new Frontier.
func NewFrontier(logger *slog.Logger, opts ...FrontierOption) *Frontier {
	f := &Frontier{
		queued:   make(map[string]struct{}, 256),
		visited:  NewVisitedSet(256),
		visitCap: DefaultVisitCap,
		logger:   logger.With("component", "frontier"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Seed appends URLs in order without priority promotion and returns how
// many were accepted. With WithSeedScope the first valid seed fixes the scope.
func (f *Frontier) Seed(urls []string) int {
	added := 0
	for _, raw := range urls {
		f.mu.Lock()
		if f.autoScope && f.scopeHost == "" {
			if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
				f.scopeHost = strings.ToLower(u.Hostname())
				f.logger.Debug("scope fixed from seed", "host", f.scopeHost)
			}
		}
		err := f.add(raw, PriorityNormal, false)
		f.mu.Unlock()

		if err != nil {
			f.logger.Debug("seed rejected", "url", raw, "reason", err)
			continue
		}
		added++
	}
	return added
}

// Enqueue adds a URL. High priority, or a path matching a priority keyword,
// puts it at the front of the queue.
func (f *Frontier) Enqueue(rawURL string, priority Priority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.add(rawURL, priority, true)
}

// add must be called with f.mu held.
func (f *Frontier) add(rawURL string, priority Priority, promote bool) error {
	if f.visitCap > 0 && f.handedOut >= f.visitCap {
		return types.ErrVisitCap
	}
	if _, ok := f.queued[rawURL]; ok {
		return types.ErrDuplicate
	}
	if f.visited.Contains(rawURL) {
		return types.ErrDuplicate
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", types.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", types.ErrInvalidURL)
	}
	if f.scopeHost != "" && strings.ToLower(u.Hostname()) != f.scopeHost {
		return types.ErrOffDomain
	}

	if promote && (priority == PriorityHigh || f.matchesKeyword(u.Path)) {
		f.queue = append([]string{rawURL}, f.queue...)
	} else {
		f.queue = append(f.queue, rawURL)
	}
	f.queued[rawURL] = struct{}{}
	return nil
}

func (f *Frontier) matchesKeyword(path string) bool {
	path = strings.ToLower(path)
	for _, kw := range f.keywords {
		if strings.Contains(path, kw) {
			return true
		}
	}
	return false
}

// DequeueBatch removes up to n URLs from the front of the queue and marks
// them visited. Once the visit cap is reached it returns nothing.
func (f *Frontier) DequeueBatch(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visitCap > 0 {
		if remaining := f.visitCap - f.handedOut; remaining < n {
			n = remaining
		}
	}
	if n > len(f.queue) {
		n = len(f.queue)
	}
	if n <= 0 {
		return nil
	}

	batch := make([]string, n)
	copy(batch, f.queue[:n])
	f.queue = f.queue[n:]

	for _, u := range batch {
		delete(f.queued, u)
		f.visited.Add(u)
	}
	f.handedOut += n
	return batch
}

// IsVisited reports whether the URL has been handed out or marked visited.
func (f *Frontier) IsVisited(rawURL string) bool {
	return f.visited.Contains(rawURL)
}

// MarkVisited records a URL as visited, e.g. the final URL after a redirect.
// A queued copy of the URL is dropped.
func (f *Frontier) MarkVisited(rawURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.visited.Add(rawURL)
	if _, ok := f.queued[rawURL]; !ok {
		return
	}
	delete(f.queued, rawURL)
	for i, u := range f.queue {
		if u == rawURL {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			break
		}
	}
}

// Len returns the number of queued URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// HasNext reports whether DequeueBatch would return anything.
func (f *Frontier) HasNext() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visitCap > 0 && f.handedOut >= f.visitCap {
		return false
	}
	return len(f.queue) > 0
}

// Visited returns how many distinct URLs have been visited.
func (f *Frontier) Visited() int {
	return f.visited.Len()
}

// ScopeHost returns the hostname the frontier is restricted to, if any.
func (f *Frontier) ScopeHost() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scopeHost
}
