package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters for a run.
type Metrics struct {
	// Discovery
	ListingsDiscovered atomic.Int64
	ScrollIterations   atomic.Int64

	// Frontier
	URLsEnqueued atomic.Int64
	URLsRejected atomic.Int64
	QueueDepth   atomic.Int64

	// Visits
	PagesVisited      atomic.Int64
	AttemptsTotal     atomic.Int64
	AttemptsFailed    atomic.Int64
	Retries           atomic.Int64
	PermanentFailures atomic.Int64
	BatchesProcessed  atomic.Int64

	// Records
	RecordsExtracted atomic.Int64
	RecordsDropped   atomic.Int64
	RecordsExported  atomic.Int64
	CacheHits        atomic.Int64

	// Contact crawl
	EmailsFound      atomic.Int64
	SocialLinksFound atomic.Int64
	TeamMembersFound atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type metric struct {
	name  string
	help  string
	kind  string
	value int64
}

func (m *Metrics) collect() []metric {
	return []metric{
		{"leadgoat_listings_discovered_total", "Listing URLs harvested from result pages", "counter", m.ListingsDiscovered.Load()},
		{"leadgoat_scroll_iterations_total", "Scroll iterations performed", "counter", m.ScrollIterations.Load()},
		{"leadgoat_urls_enqueued_total", "URLs accepted into the frontier", "counter", m.URLsEnqueued.Load()},
		{"leadgoat_urls_rejected_total", "URLs rejected by the frontier", "counter", m.URLsRejected.Load()},
		{"leadgoat_queue_depth", "URLs waiting in the frontier", "gauge", m.QueueDepth.Load()},
		{"leadgoat_pages_visited_total", "URLs handed to the retry coordinator", "counter", m.PagesVisited.Load()},
		{"leadgoat_attempts_total", "Extraction attempts", "counter", m.AttemptsTotal.Load()},
		{"leadgoat_attempts_failed_total", "Failed extraction attempts", "counter", m.AttemptsFailed.Load()},
		{"leadgoat_retries_total", "Backoff waits before a retry", "counter", m.Retries.Load()},
		{"leadgoat_permanent_failures_total", "URLs abandoned after the last attempt", "counter", m.PermanentFailures.Load()},
		{"leadgoat_batches_processed_total", "Batches processed", "counter", m.BatchesProcessed.Load()},
		{"leadgoat_records_extracted_total", "Records extracted", "counter", m.RecordsExtracted.Load()},
		{"leadgoat_records_dropped_total", "Records dropped by the pipeline", "counter", m.RecordsDropped.Load()},
		{"leadgoat_records_exported_total", "Records written by exporters", "counter", m.RecordsExported.Load()},
		{"leadgoat_cache_hits_total", "Listings served from the record cache", "counter", m.CacheHits.Load()},
		{"leadgoat_emails_found_total", "Unique emails found", "counter", m.EmailsFound.Load()},
		{"leadgoat_social_links_found_total", "Social profiles found", "counter", m.SocialLinksFound.Load()},
		{"leadgoat_team_members_found_total", "Team members found", "counter", m.TeamMembersFound.Load()},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.collect() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
}

// Snapshot returns all metrics keyed by their short name.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	for _, metric := range m.collect() {
		name := strings.TrimSuffix(strings.TrimPrefix(metric.name, "leadgoat_"), "_total")
		out[name] = metric.value
	}
	return out
}
