package workbook

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"upixl/internal/records"
)

// CSVWriter exports a single sheet as a CSV file. It is a CLI convenience
// for the single-sheet modes; multi-sheet workbooks go through ExcelWriter.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteFile writes sheet to a CSV file at path. The header row is the
// column union across all rows; missing cells render empty. A UTF-8 BOM is
// written first so Excel recognizes the encoding.
func (w *CSVWriter) WriteFile(path string, sheet Sheet) error {
	columns := UnionColumns(sheet.Rows)

	w.logger.Info("writing CSV file",
		slog.String("path", path),
		slog.Int("record_count", len(sheet.Rows)),
		slog.Int("column_count", len(columns)))

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// UTF-8 BOM for Excel compatibility
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(columns) > 0 {
		if err := writer.Write(columns); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, row := range sheet.Rows {
		cells := make([]string, len(columns))
		for c, col := range columns {
			if v, ok := row.Get(col); ok {
				cells[c] = records.Stringify(v)
			}
		}
		if err := writer.Write(cells); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return writer.Error()
}
