// Package services orchestrates conversion requests: parse the upload,
// route records into sheets, and serialize the workbook.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"upixl/internal/infrastructure"
	"upixl/internal/records"
	"upixl/internal/workbook"
)

// statisticsSampleSize caps how many records the field census in Inspect
// walks, so inspection stays cheap on large uploads.
const statisticsSampleSize = 100

// ConvertService converts raw JSON/NDJSON text into workbook bytes. One
// call is one synchronous conversion; the service holds no per-request
// state and is safe for concurrent use.
type ConvertService struct {
	catalog *records.Catalog
	builder *workbook.Builder
	excel   *workbook.ExcelWriter
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.ConversionMetrics
}

// NewConvertService creates a conversion service. tracer and metrics may be
// nil when observability is disabled.
func NewConvertService(logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.ConversionMetrics) *ConvertService {
	catalog := records.DefaultCatalog()
	return &ConvertService{
		catalog: catalog,
		builder: workbook.NewBuilder(catalog, logger),
		excel:   workbook.NewExcelWriter(logger),
		logger:  logger.With(slog.String("component", "convert_service")),
		tracer:  tracer,
		metrics: metrics,
	}
}

// TypeCount is the per-instrument-type record distribution of an upload.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ConvertResult is the outcome of one conversion.
type ConvertResult struct {
	Data        []byte      `json:"-"`
	Filename    string      `json:"filename"`
	Format      string      `json:"format"`
	Mode        string      `json:"mode"`
	RecordCount int         `json:"record_count"`
	SheetNames  []string    `json:"sheet_names"`
	TypeCounts  []TypeCount `json:"type_counts"`
}

// InspectResult summarizes an upload without generating a workbook.
type InspectResult struct {
	Format       string      `json:"format"`
	RecordCount  int         `json:"record_count"`
	UniqueFields int         `json:"unique_fields"`
	TypeCounts   []TypeCount `json:"type_counts"`
}

// Convert parses content, builds the sheet set for mode and serializes it
// to xlsx bytes. filename is the original upload name, used only to derive
// the output filename.
func (s *ConvertService) Convert(ctx context.Context, content, filename string, mode workbook.Mode) (result *ConvertResult, err error) {
	start := time.Now()
	recordCount := 0
	sheetCount := 0

	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "convert",
			trace.WithAttributes(attribute.String("mode", string(mode))))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.SetAttributes(
				attribute.Int("record_count", recordCount),
				attribute.Int("sheet_count", sheetCount),
			)
			span.End()
		}()
	}
	defer func() {
		infrastructure.RecordConversion(ctx, s.metrics, string(mode), recordCount, sheetCount, time.Since(start), err)
	}()

	recs, format, err := records.Parse(content)
	if err != nil {
		s.logger.WarnContext(ctx, "parse failed", slog.String("error", err.Error()))
		return nil, err
	}
	recordCount = len(recs)

	sheets, err := s.builder.Build(recs, mode)
	if err != nil {
		return nil, err
	}
	sheetCount = len(sheets)

	data, err := s.excel.WriteBytes(sheets)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	names := make([]string, len(sheets))
	for i, sheet := range sheets {
		names[i] = sheet.Name
	}

	result = &ConvertResult{
		Data:        data,
		Filename:    OutputFilename(filename, time.Now()),
		Format:      string(format),
		Mode:        string(mode),
		RecordCount: recordCount,
		SheetNames:  names,
		TypeCounts:  typeCounts(recs),
	}

	s.logger.InfoContext(ctx, "conversion complete",
		slog.String("format", string(format)),
		slog.String("mode", string(mode)),
		slog.Int("record_count", recordCount),
		slog.Int("sheet_count", sheetCount),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

// Inspect parses content and reports its shape: detected format, record
// count, type distribution, and a sampled census of flattened field names.
func (s *ConvertService) Inspect(ctx context.Context, content string) (*InspectResult, error) {
	recs, format, err := records.Parse(content)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, workbook.ErrNoRecords
	}

	fields := make(map[string]struct{})
	for i, rec := range recs {
		if i >= statisticsSampleSize {
			break
		}
		for _, key := range records.FlattenRecord(rec).Keys() {
			fields[key] = struct{}{}
		}
	}

	return &InspectResult{
		Format:       string(format),
		RecordCount:  len(recs),
		UniqueFields: len(fields),
		TypeCounts:   typeCounts(recs),
	}, nil
}

func typeCounts(recs []*records.Record) []TypeCount {
	groups := records.GroupByInstrumentType(recs)
	counts := make([]TypeCount, len(groups))
	for i, group := range groups {
		counts[i] = TypeCount{Type: group.Type, Count: len(group.Records)}
	}
	return counts
}

// OutputFilename derives the workbook filename from the upload's name:
// original stem + conversion timestamp + xlsx extension.
func OutputFilename(uploadName string, now time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(uploadName), filepath.Ext(uploadName))
	if stem == "" || stem == "." {
		stem = "records"
	}
	return fmt.Sprintf("%s_converted_%s.xlsx", stem, now.Format("20060102_150405"))
}
