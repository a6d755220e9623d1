// Package validation checks CLI input and output paths before a conversion
// starts, so path problems surface as clear errors instead of mid-run
// failures.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// allowedExtensions are the input file extensions the converter accepts.
// The content is still format-sniffed; the extension check only catches
// obviously wrong inputs (xlsx, zip, binaries) early.
var allowedExtensions = map[string]bool{
	".json":    true,
	".ndjson":  true,
	".jsonl":   true,
	".records": true,
	".txt":     true,
}

// InputValidator validates conversion inputs and output destinations.
type InputValidator struct {
	logger *slog.Logger
}

// NewInputValidator creates an input validator.
func NewInputValidator(logger *slog.Logger) *InputValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &InputValidator{logger: logger}
}

// ValidateInputFile checks that path names a readable, non-empty regular
// file with a recognized extension.
func (v *InputValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("input file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat input file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("input file %s is empty", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		v.logger.Warn("unrecognized input extension",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("unsupported input extension %q (expected .json, .ndjson, .jsonl, .records or .txt)", ext)
	}

	return nil
}

// ValidateContent rejects inputs the parser cannot possibly handle: binary
// data and invalid UTF-8.
func (v *InputValidator) ValidateContent(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input is empty")
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("input is not valid UTF-8 text")
	}
	return nil
}

// ValidateOutputDir ensures dir exists (creating it if needed) and is
// writable.
func (v *InputValidator) ValidateOutputDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".write_test")
	file, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(probe)

	return nil
}
