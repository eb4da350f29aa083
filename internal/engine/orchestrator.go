package engine

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/observability"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

// Stop reasons reported in Result.
const (
	StopExhausted = "frontier_exhausted"
	StopOverFetch = "over_fetch"
	StopCancelled = "cancelled"
)

// Result is what one orchestrated run produced.
type Result[T any] struct {
	Items      []T
	BatchSizes []int
	Visited    int
	Failed     int
	StopReason string
}

// Orchestrator pulls fixed-size batches from a Frontier and visits their
// URLs one at a time through the RetryCoordinator.
type Orchestrator[T any] struct {
	cfg      *config.EngineConfig
	retry    *RetryCoordinator
	visit    Visitor[T]
	limit    int
	sleep    types.SleepFunc
	jitter   func(max time.Duration) time.Duration
	onResult func(url string, item T)
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. The result limit defaults to
// ceil(MaxRecords × OverFetch); MaxRecords 0 means no limit.
func NewOrchestrator[T any](cfg *config.EngineConfig, retry *RetryCoordinator, visit Visitor[T], logger *slog.Logger) *Orchestrator[T] {
	o := &Orchestrator[T]{
		cfg:    cfg,
		retry:  retry,
		visit:  visit,
		sleep:  types.Sleep,
		jitter: randomJitter,
		logger: logger.With("component", "orchestrator"),
	}
	if cfg.MaxRecords > 0 {
		overFetch := cfg.OverFetch
		if overFetch < 1 {
			overFetch = 1
		}
		o.limit = int(math.Ceil(float64(cfg.MaxRecords) * overFetch))
	}
	o.metrics = observability.NewMetrics(logger)
	return o
}

// SetLimit overrides the result limit; 0 disables it.
func (o *Orchestrator[T]) SetLimit(n int) { o.limit = n }

// Limit returns the result count at which the run stops.
func (o *Orchestrator[T]) Limit() int { return o.limit }

// SetSleep replaces the delay sleeper.
func (o *Orchestrator[T]) SetSleep(fn types.SleepFunc) { o.sleep = fn }

// SetJitter replaces the random jitter source.
func (o *Orchestrator[T]) SetJitter(fn func(max time.Duration) time.Duration) { o.jitter = fn }

// SetMetrics sets the metrics sink.
func (o *Orchestrator[T]) SetMetrics(m *observability.Metrics) { o.metrics = m }

// OnResult registers a callback invoked after every successful visit.
func (o *Orchestrator[T]) OnResult(fn func(url string, item T)) { o.onResult = fn }

// Run drains the frontier batch by batch until it is exhausted, the result
// limit is reached, or ctx is cancelled.
func (o *Orchestrator[T]) Run(ctx context.Context, f *Frontier) *Result[T] {
	res := &Result[T]{}
	batchSize := o.cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for {
		if o.limitReached(res) {
			res.StopReason = StopOverFetch
			break
		}

		batch := f.DequeueBatch(batchSize)
		if len(batch) == 0 {
			res.StopReason = StopExhausted
			break
		}
		res.BatchSizes = append(res.BatchSizes, len(batch))
		o.metrics.QueueDepth.Store(int64(f.Len()))

		o.logger.Info("processing batch",
			"batch", len(res.BatchSizes),
			"size", len(batch),
			"results", len(res.Items),
			"queued", f.Len(),
		)

		if !o.runBatch(ctx, batch, res) {
			res.StopReason = StopCancelled
			break
		}
		o.metrics.BatchesProcessed.Add(1)

		if o.limitReached(res) || !f.HasNext() {
			continue
		}
		if err := o.sleep(ctx, o.cfg.BatchDelay+o.jitter(o.cfg.BatchJitter)); err != nil {
			res.StopReason = StopCancelled
			break
		}
	}

	o.logger.Info("run finished",
		"reason", res.StopReason,
		"batches", len(res.BatchSizes),
		"visited", res.Visited,
		"results", len(res.Items),
		"failed", res.Failed,
	)
	return res
}

// runBatch visits a batch sequentially. It returns false if ctx was cancelled.
func (o *Orchestrator[T]) runBatch(ctx context.Context, batch []string, res *Result[T]) bool {
	for i, url := range batch {
		if i > 0 {
			if err := o.sleep(ctx, o.cfg.VisitDelay+o.jitter(o.cfg.VisitJitter)); err != nil {
				return false
			}
		}

		o.metrics.PagesVisited.Add(1)
		item, ok := RunWithRetry(ctx, o.retry, url, o.visit)
		res.Visited++
		switch {
		case ok:
			// Kept even when the run was cancelled during the visit.
			res.Items = append(res.Items, item)
			if o.onResult != nil {
				o.onResult(url, item)
			}
		case ctx.Err() == nil:
			res.Failed++
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return true
}

func (o *Orchestrator[T]) limitReached(res *Result[T]) bool {
	return o.limit > 0 && len(res.Items) >= o.limit
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
