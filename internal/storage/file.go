package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IshaanNene/LeadGoat/internal/types"
)

// Output file names inside the output directory.
const (
	RankedCSVFile  = "ranked_leads.csv"
	RankedJSONFile = "ranked_leads.json"
)

// FileExporter writes the ranked leads once, as CSV and as a JSON array.
type FileExporter struct {
	dir    string
	logger *slog.Logger
}

// NewFileExporter creates a file exporter rooted at outputDir.
func NewFileExporter(outputDir string, logger *slog.Logger) (*FileExporter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileExporter{
		dir:    outputDir,
		logger: logger.With("component", "file_exporter"),
	}, nil
}

func (s *FileExporter) Name() string { return "file" }

// CSVPath returns the ranked CSV location.
func (s *FileExporter) CSVPath() string { return filepath.Join(s.dir, RankedCSVFile) }

// JSONPath returns the ranked JSON location.
func (s *FileExporter) JSONPath() string { return filepath.Join(s.dir, RankedJSONFile) }

func (s *FileExporter) Export(ctx context.Context, results []types.RankedResult) error {
	if err := s.writeCSV(results); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	if err := writeJSON(s.JSONPath(), results); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	s.logger.Info("ranked leads written", "csv", s.CSVPath(), "json", s.JSONPath(), "rows", len(results))
	return nil
}

func (s *FileExporter) writeCSV(results []types.RankedResult) error {
	f, err := os.Create(s.CSVPath())
	if err != nil {
		return fmt.Errorf("create CSV file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(types.CSVHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, r := range results {
		if err := w.Write(r.CSVRow()); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func (s *FileExporter) Close() error { return nil }

// writeJSON writes v as indented JSON, replacing any existing file.
func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create JSON file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
