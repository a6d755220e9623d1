// Package workbook routes parsed records into named sheets and serializes
// them to tabular output (xlsx via excelize, csv for single sheets).
package workbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"unicode"

	"upixl/internal/records"
)

// Mode selects the sheet layout of a generated workbook.
type Mode string

const (
	// ModeSmartByType emits a Summary sheet, one sheet per instrument type
	// with type-specific columns, and a combined CFI Details sheet.
	ModeSmartByType Mode = "smart_by_type"
	// ModeSmart emits Main Data (all possible columns), CFI Details, and a
	// fully flattened sheet.
	ModeSmart Mode = "smart"
	// ModeFull emits a single sheet of fully flattened records.
	ModeFull Mode = "full"
	// ModeMinimal emits a single sheet keeping nested values as compact
	// JSON strings.
	ModeMinimal Mode = "minimal"
)

// Modes lists every supported mode in presentation order.
var Modes = []Mode{ModeSmartByType, ModeSmart, ModeFull, ModeMinimal}

// Valid reports whether m is a supported output mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSmartByType, ModeSmart, ModeFull, ModeMinimal:
		return true
	}
	return false
}

// ErrNoRecords is returned when a parse produced zero records. It is a
// caller-visible condition, not a system fault.
var ErrNoRecords = errors.New("no records to convert")

// Sheet is a named, ordered set of rows destined for one output sheet.
type Sheet struct {
	Name string
	Rows []*records.Record
}

// Builder assembles per-sheet row sets from a record sequence. All four
// modes are total over any well-formed record sequence: missing fields
// resolve to defaults, never errors.
type Builder struct {
	catalog *records.Catalog
	logger  *slog.Logger
}

// NewBuilder creates a builder over the given field catalog.
func NewBuilder(catalog *records.Catalog, logger *slog.Logger) *Builder {
	return &Builder{
		catalog: catalog,
		logger:  logger.With(slog.String("component", "workbook_builder")),
	}
}

// Build routes recs into the ordered sheet list for mode. An empty record
// sequence is rejected with ErrNoRecords before any sheet is constructed;
// an unsupported mode is a caller error.
func (b *Builder) Build(recs []*records.Record, mode Mode) ([]Sheet, error) {
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}

	var sheets []Sheet
	switch mode {
	case ModeSmartByType:
		sheets = b.buildSmartByType(recs)
	case ModeSmart:
		sheets = b.buildSmart(recs)
	case ModeFull:
		sheets = []Sheet{{Name: "Data", Rows: b.flattenAll(recs)}}
	case ModeMinimal:
		sheets = []Sheet{{Name: "Data", Rows: buildMinimal(recs)}}
	default:
		return nil, fmt.Errorf("unsupported output mode %q", mode)
	}

	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Name
	}
	b.logger.Debug("workbook assembled",
		slog.String("mode", string(mode)),
		slog.Int("records", len(recs)),
		slog.Any("sheets", names))

	return sheets, nil
}

func (b *Builder) buildSmartByType(recs []*records.Record) []Sheet {
	groups := records.GroupByInstrumentType(recs)

	summary := make([]*records.Record, 0, len(groups)+1)
	for _, group := range groups {
		row := records.NewRecord()
		row.Set("Instrument Type", group.Type)
		row.Set("Record Count", len(group.Records))
		summary = append(summary, row)
	}
	total := records.NewRecord()
	total.Set("Instrument Type", "TOTAL")
	total.Set("Record Count", len(recs))
	summary = append(summary, total)

	sheets := []Sheet{{Name: "Summary", Rows: summary}}

	for _, group := range groups {
		rows := make([]*records.Record, 0, len(group.Records))
		for _, rec := range group.Records {
			rows = append(rows, b.catalog.ExtractKeyFieldsForInstrument(rec, group.Type))
		}

		name := SanitizeSheetName(group.Type)
		if name == "" {
			// A type made entirely of filtered characters would produce an
			// empty name, which xlsx forbids.
			name = fmt.Sprintf("Sheet_%d", len(sheets))
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}

	if cfi := records.ExtractCFIData(recs); len(cfi) > 0 {
		sheets = append(sheets, Sheet{Name: "CFI Details", Rows: cfi})
	}
	return sheets
}

func (b *Builder) buildSmart(recs []*records.Record) []Sheet {
	main := make([]*records.Record, 0, len(recs))
	for _, rec := range recs {
		main = append(main, b.catalog.ExtractKeyFields(rec, true))
	}
	sheets := []Sheet{{Name: "Main Data", Rows: main}}

	if cfi := records.ExtractCFIData(recs); len(cfi) > 0 {
		sheets = append(sheets, Sheet{Name: "CFI Details", Rows: cfi})
	}

	sheets = append(sheets, Sheet{Name: "Full Data (Flattened)", Rows: b.flattenAll(recs)})
	return sheets
}

func (b *Builder) flattenAll(recs []*records.Record) []*records.Record {
	rows := make([]*records.Record, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, records.FlattenRecord(rec))
	}
	return rows
}

// buildMinimal passes scalar top-level fields through unchanged and
// serializes nested values to compact JSON strings. Nothing is expanded.
func buildMinimal(recs []*records.Record) []*records.Record {
	rows := make([]*records.Record, 0, len(recs))
	for _, rec := range recs {
		row := records.NewRecord()
		for _, key := range rec.Keys() {
			v, _ := rec.Get(key)
			switch v.(type) {
			case *records.Record, []any:
				data, err := json.Marshal(v)
				if err != nil {
					row.Set(key, records.Stringify(v))
					continue
				}
				row.Set(key, string(data))
			default:
				row.Set(key, v)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// maxSheetNameLen is the xlsx limit on sheet name length.
const maxSheetNameLen = 31

// rawNamePrefixLen is how much of the raw type name is kept before
// sanitizing. The truncate-then-filter order matters for names with
// special characters near the boundary; do not reorder.
const rawNamePrefixLen = 28

// SanitizeSheetName derives a legal sheet name from an instrument type:
// first 28 raw characters, then only letters, digits, spaces, underscores
// and hyphens, capped at 31.
func SanitizeSheetName(name string) string {
	runes := []rune(name)
	if len(runes) > rawNamePrefixLen {
		runes = runes[:rawNamePrefixLen]
	}

	kept := make([]rune, 0, len(runes))
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			kept = append(kept, r)
		}
	}
	if len(kept) > maxSheetNameLen {
		kept = kept[:maxSheetNameLen]
	}
	return string(kept)
}
