// Package storage writes ranked leads and contact reports to their sinks.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

// Exporter is the interface for all ranked-lead sinks.
type Exporter interface {
	// Export persists the final ranked results.
	Export(ctx context.Context, results []types.RankedResult) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// New builds the exporters named in cfg.Backends. A single backend is
// returned as is; several are wrapped in a MultiExporter.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Exporter, error) {
	var exporters []Exporter
	closeAll := func() {
		for _, e := range exporters {
			e.Close()
		}
	}

	for _, backend := range cfg.Backends {
		var (
			e   Exporter
			err error
		)
		switch backend {
		case "file":
			e, err = NewFileExporter(cfg.OutputPath, logger)
		case "mongodb":
			e, err = NewMongoExporter(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, logger)
		case "sqlite":
			e, err = NewSQLiteExporter(cfg.SQLite.Path, logger)
		default:
			err = fmt.Errorf("unsupported storage backend: %s", backend)
		}
		if err != nil {
			closeAll()
			return nil, &types.StorageError{Backend: backend, Err: err}
		}
		exporters = append(exporters, e)
	}

	switch len(exporters) {
	case 0:
		return nil, &types.StorageError{Backend: "none", Err: fmt.Errorf("no storage backends configured")}
	case 1:
		return exporters[0], nil
	default:
		return NewMultiExporter(exporters, logger), nil
	}
}
