package workbook

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"upixl/internal/records"
)

// ExcelWriter serializes ordered sheets into a single xlsx workbook.
//
// Column policy: rows within one sheet may carry different key sets (CFI
// rows with uneven attribute counts, flattened rows with divergent nesting).
// The writer makes two passes per sheet: the first collects the column
// superset in first-seen order, the second emits rows padded with empty
// cells for columns a row does not have.
type ExcelWriter struct {
	logger *slog.Logger
}

// NewExcelWriter creates an Excel writer.
func NewExcelWriter(logger *slog.Logger) *ExcelWriter {
	return &ExcelWriter{logger: logger.With(slog.String("component", "excel_writer"))}
}

// Write serializes sheets to w as an xlsx workbook, preserving sheet order.
func (e *ExcelWriter) Write(w io.Writer, sheets []Sheet) error {
	f, err := e.build(sheets)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteBytes serializes sheets to an in-memory xlsx workbook.
func (e *ExcelWriter) WriteBytes(sheets []Sheet) ([]byte, error) {
	f, err := e.build(sheets)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile serializes sheets to an xlsx file at path.
func (e *ExcelWriter) WriteFile(path string, sheets []Sheet) error {
	f, err := e.build(sheets)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("workbook written",
		slog.String("path", path),
		slog.Int("sheet_count", len(sheets)))
	return nil
}

func (e *ExcelWriter) build(sheets []Sheet) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DCE6F1"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to name sheet %q: %w", sheet.Name, err)
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to create sheet %q: %w", sheet.Name, err)
			}
		}

		if err := e.writeSheet(f, sheet, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func (e *ExcelWriter) writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	columns := UnionColumns(sheet.Rows)
	if len(columns) == 0 {
		return nil
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet.Name, err)
	}

	endCell, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet.Name, "A1", endCell, headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %q: %w", sheet.Name, err)
	}

	for rowIdx, row := range sheet.Rows {
		cells := make([]any, len(columns))
		for colIdx, col := range columns {
			v, ok := row.Get(col)
			if !ok {
				cells[colIdx] = ""
				continue
			}
			cells[colIdx] = cellValue(v)
		}

		anchor, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, anchor, &cells); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", rowIdx+2, sheet.Name, err)
		}
	}

	return nil
}

// UnionColumns collects the column superset of rows in first-seen order.
func UnionColumns(rows []*records.Record) []string {
	seen := make(map[string]struct{})
	columns := make([]string, 0)
	for _, row := range rows {
		for _, key := range row.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	return columns
}

// cellValue converts a decoded JSON value into a spreadsheet cell value.
// Numbers stay numeric, nil renders empty, anything non-scalar falls back
// to its string rendering.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case string, bool, int, int64, float64:
		return t
	default:
		return records.Stringify(t)
	}
}
