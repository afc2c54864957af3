package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LogFileName is the name of the processing log written in the output root.
const LogFileName = "watermark_processing_log.csv"

var csvHeader = []string{"timestamp", "source_file", "output_file", "status", "error"}

// WriteCSV writes the per-file records as CSV.
func (r *Reporter) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write log header: %w", err)
	}
	for _, rec := range r.Records() {
		row := []string{
			rec.Timestamp.Format(time.RFC3339),
			rec.SourceFile,
			rec.OutputFile,
			string(rec.Status),
			rec.Error,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write log record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the processing log into dir and returns its path.
func (r *Reporter) SaveCSV(dir string) (string, error) {
	path := filepath.Join(dir, LogFileName)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create log: %w", err)
	}
	defer f.Close()

	if err := r.WriteCSV(f); err != nil {
		return "", err
	}

	return path, f.Close()
}
