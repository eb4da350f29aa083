package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/LeadGoat/internal/types"
)

// MongoExporter upserts ranked leads into a MongoDB collection keyed by
// source URL, so re-running a search refreshes existing documents.
type MongoExporter struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoExporter connects to MongoDB and pings it.
func NewMongoExporter(uri, database, collection string, logger *slog.Logger) (*MongoExporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoExporter{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_exporter"),
	}, nil
}

func (s *MongoExporter) Name() string { return "mongodb" }

func (s *MongoExporter) Export(ctx context.Context, results []types.RankedResult) error {
	if len(results) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	exportedAt := time.Now()
	models := make([]mongo.WriteModel, len(results))
	for i, r := range results {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"source_url": r.SourceURL}).
			SetReplacement(leadDocument(r, exportedAt)).
			SetUpsert(true)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("mongodb bulk write: %w", err)}
	}

	s.count += len(results)
	s.logger.Info("leads stored in mongodb",
		"upserted", res.UpsertedCount,
		"modified", res.ModifiedCount,
		"total", s.count,
	)
	return nil
}

func leadDocument(r types.RankedResult, exportedAt time.Time) bson.M {
	return bson.M{
		"rank":         r.Rank,
		"title":        r.Title,
		"address":      r.Address,
		"website":      r.Website,
		"phone":        r.Phone,
		"rating":       r.Rating,
		"review_count": r.ReviewCount,
		"category":     r.Category,
		"source_url":   r.SourceURL,
		"scraped_at":   r.ScrapedAt,
		"exported_at":  exportedAt,
	}
}

func (s *MongoExporter) Close() error {
	s.logger.Info("mongodb exporter closing", "total_leads", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Exporter Fan-Out ---

// MultiExporter writes results to several backends. Every backend is tried;
// the first error is returned.
type MultiExporter struct {
	backends []Exporter
	logger   *slog.Logger
}

// NewMultiExporter creates an exporter that fans out to multiple backends.
func NewMultiExporter(backends []Exporter, logger *slog.Logger) *MultiExporter {
	return &MultiExporter{
		backends: backends,
		logger:   logger.With("component", "multi_exporter"),
	}
}

func (s *MultiExporter) Name() string { return "multi" }

func (s *MultiExporter) Export(ctx context.Context, results []types.RankedResult) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Export(ctx, results); err != nil {
			s.logger.Error("backend export failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiExporter) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
