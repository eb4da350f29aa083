package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/IshaanNene/LeadGoat/internal/types"
)

// SQLiteExporter keeps ranked leads in a local SQLite database, one row per
// listing URL.
type SQLiteExporter struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteExporter opens or creates the database and its schema.
func NewSQLiteExporter(dbPath string, logger *slog.Logger) (*SQLiteExporter, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &SQLiteExporter{
		db:     db,
		path:   dbPath,
		logger: logger.With("component", "sqlite_exporter"),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteExporter) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leads (
		lead_id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_url TEXT UNIQUE NOT NULL,
		rank INTEGER NOT NULL,
		title TEXT,
		address TEXT,
		website TEXT,
		phone TEXT,
		rating REAL DEFAULT 0,
		review_count INTEGER DEFAULT 0,
		category TEXT,
		scraped_at TIMESTAMP,
		exported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_leads_rank ON leads(rank);
	CREATE INDEX IF NOT EXISTS idx_leads_rating ON leads(rating DESC, review_count DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteExporter) Name() string { return "sqlite" }

// Export upserts all results in one transaction.
func (s *SQLiteExporter) Export(ctx context.Context, results []types.RankedResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO leads (source_url, rank, title, address, website, phone, rating, review_count, category, scraped_at, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url) DO UPDATE SET
			rank = EXCLUDED.rank,
			title = EXCLUDED.title,
			address = EXCLUDED.address,
			website = EXCLUDED.website,
			phone = EXCLUDED.phone,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			category = EXCLUDED.category,
			scraped_at = EXCLUDED.scraped_at,
			exported_at = EXCLUDED.exported_at
	`)
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("prepare upsert: %w", err)}
	}
	defer stmt.Close()

	now := time.Now()
	for _, r := range results {
		_, err := stmt.ExecContext(ctx,
			r.SourceURL, r.Rank, r.Title, r.Address, r.Website, r.Phone,
			r.Rating, r.ReviewCount, r.Category, r.ScrapedAt, now,
		)
		if err != nil {
			return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("upsert lead %s: %w", r.SourceURL, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("commit: %w", err)}
	}
	s.logger.Info("leads stored in sqlite", "path", s.path, "rows", len(results))
	return nil
}

// Count returns the number of stored leads.
func (s *SQLiteExporter) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

// TopLeads returns the stored leads ordered by rank.
func (s *SQLiteExporter) TopLeads(ctx context.Context, limit int) ([]types.RankedResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rank, title, address, website, phone, rating, review_count, category, source_url
		FROM leads
		ORDER BY rank ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var out []types.RankedResult
	for rows.Next() {
		r := types.RankedResult{Record: &types.Record{}}
		if err := rows.Scan(&r.Rank, &r.Title, &r.Address, &r.Website, &r.Phone,
			&r.Rating, &r.ReviewCount, &r.Category, &r.SourceURL); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteExporter) Close() error {
	return s.db.Close()
}
