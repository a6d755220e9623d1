// Command converter is the one-shot CLI: it converts a single JSON/NDJSON
// file into an xlsx workbook (or CSV files, one per sheet).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"upixl/internal/config"
	"upixl/internal/infrastructure"
	"upixl/internal/records"
	"upixl/internal/services"
	"upixl/internal/validation"
	"upixl/internal/workbook"
)

func main() {
	inPath := flag.String("in", "", "input file (.json, .ndjson, .jsonl, .records, .txt)")
	outPath := flag.String("out", "", "output path (defaults to <input stem>_converted_<timestamp>.xlsx)")
	modeFlag := flag.String("mode", string(workbook.ModeSmart), "output mode: smart_by_type, smart, full, or minimal")
	asCSV := flag.Bool("csv", false, "write CSV files (one per sheet) instead of a workbook")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *inPath == "" {
		logger.Error("no input file given, use -in")
		os.Exit(1)
	}

	mode := workbook.Mode(*modeFlag)
	if !mode.Valid() {
		logger.Error("invalid output mode", slog.String("mode", *modeFlag))
		os.Exit(1)
	}

	if err := run(logger, *inPath, *outPath, mode, *asCSV); err != nil {
		logger.Error("conversion failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, inPath, outPath string, mode workbook.Mode, asCSV bool) error {
	validator := validation.NewInputValidator(logger)
	if err := validator.ValidateInputFile(inPath); err != nil {
		return err
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if err := validator.ValidateContent(data); err != nil {
		return err
	}

	if outPath != "" {
		dir := outPath
		if !asCSV {
			dir = filepath.Dir(outPath)
		}
		if err := validator.ValidateOutputDir(dir); err != nil {
			return err
		}
	}

	recs, format, err := records.Parse(string(data))
	if err != nil {
		return err
	}

	logger.Info("input parsed",
		slog.String("file", inPath),
		slog.String("format", string(format)),
		slog.Int("record_count", len(recs)))

	catalog := records.DefaultCatalog()
	sheets, err := workbook.NewBuilder(catalog, logger).Build(recs, mode)
	if err != nil {
		return err
	}

	if asCSV {
		return writeCSVs(logger, sheets, inPath, outPath)
	}

	if outPath == "" {
		outPath = services.OutputFilename(inPath, time.Now())
	}
	if err := workbook.NewExcelWriter(logger).WriteFile(outPath, sheets); err != nil {
		return err
	}

	logger.Info("conversion complete",
		slog.String("output", outPath),
		slog.Int("sheet_count", len(sheets)))
	return nil
}

// writeCSVs writes one CSV file per sheet next to the input (or under the
// -out directory when given), named <stem>_<sheet>.csv.
func writeCSVs(logger *slog.Logger, sheets []workbook.Sheet, inPath, outDir string) error {
	stem := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	if outDir == "" {
		outDir = filepath.Dir(inPath)
	}

	writer := workbook.NewCSVWriter(logger)
	for _, sheet := range sheets {
		name := fmt.Sprintf("%s_%s.csv", stem, strings.ReplaceAll(sheet.Name, " ", "_"))
		if err := writer.WriteFile(filepath.Join(outDir, name), sheet); err != nil {
			return err
		}
	}

	logger.Info("CSV export complete",
		slog.String("output_dir", outDir),
		slog.Int("file_count", len(sheets)))
	return nil
}
