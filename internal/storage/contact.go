package storage

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/LeadGoat/internal/types"
)

// Contact crawl output files.
const (
	EmailsCSVFile   = "emails.csv"
	ContactJSONFile = "contact_info.json"
)

// ContactWriter appends email hits as they are found and writes the final
// contact report.
type ContactWriter struct {
	dir    string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewContactWriter creates emails.csv in outputDir with its header row,
// truncating any previous run.
func NewContactWriter(outputDir string, logger *slog.Logger) (*ContactWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(filepath.Join(outputDir, EmailsCSVFile))
	if err != nil {
		return nil, fmt.Errorf("create emails file: %w", err)
	}

	w := &ContactWriter{
		dir:    outputDir,
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger.With("component", "contact_writer"),
	}
	w.writer.Write([]string{"URL", "Email"})
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	return w, nil
}

// AppendEmails writes one row per email found on pageURL and flushes, so
// the file is usable even if the crawl is interrupted.
func (w *ContactWriter) AppendEmails(pageURL string, emails []string) error {
	if len(emails) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, email := range emails {
		if err := w.writer.Write([]string{pageURL, email}); err != nil {
			return &types.StorageError{Backend: "csv", Err: err}
		}
		w.count++
	}
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return &types.StorageError{Backend: "csv", Err: err}
	}
	return nil
}

// WriteReport writes contact_info.json.
func (w *ContactWriter) WriteReport(report *types.ContactReport) error {
	path := filepath.Join(w.dir, ContactJSONFile)
	if err := writeJSON(path, report); err != nil {
		return &types.StorageError{Backend: "json", Err: err}
	}
	w.logger.Info("contact report written", "path", path)
	return nil
}

// Close flushes and closes emails.csv.
func (w *ContactWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Info("emails written", "path", filepath.Join(w.dir, EmailsCSVFile), "rows", w.count)
	w.writer.Flush()
	return w.file.Close()
}
