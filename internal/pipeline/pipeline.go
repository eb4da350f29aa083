package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/observability"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(rec *types.Record) (*types.Record, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		metrics: observability.NewMetrics(logger),
		logger:  logger.With("component", "pipeline"),
	}
}

// FromConfig builds the normalisation chain: sanitize, trim, required
// fields, website validation, then dedup.
func FromConfig(cfg *config.PipelineConfig, logger *slog.Logger) *Pipeline {
	p := New(logger)
	if cfg.Sanitize {
		p.Use(NewHTMLSanitizeMiddleware())
	}
	p.Use(&TrimMiddleware{})
	if len(cfg.RequiredFields) > 0 {
		p.Use(&RequiredFieldsMiddleware{Fields: cfg.RequiredFields})
	}
	p.Use(NewWebsiteValidateMiddleware())
	if cfg.Dedup {
		p.Use(NewDedupMiddleware())
	}
	return p
}

// SetMetrics sets the metrics sink for dropped records.
func (p *Pipeline) SetMetrics(m *observability.Metrics) { p.metrics = m }

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec *types.Record) (*types.Record, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:  mw.Name(),
				Record: current,
				Err:    err,
			}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "url", rec.SourceURL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// ProcessAll runs every non-nil record through the chain and keeps the
// survivors in order. Stage errors drop the record and are logged.
func (p *Pipeline) ProcessAll(records []*types.Record) []*types.Record {
	out := make([]*types.Record, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		result, err := p.Process(rec)
		if err != nil {
			p.logger.Warn("record rejected", "url", rec.SourceURL, "error", err)
		}
		if result == nil {
			p.metrics.RecordsDropped.Add(1)
			continue
		}
		out = append(out, result)
	}
	p.logger.Info("records normalised", "in", len(records), "out", len(out))
	return out
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
