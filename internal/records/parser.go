package records

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format describes the detected encoding of an input document.
type Format string

const (
	// FormatNDJSON is one JSON value per line.
	FormatNDJSON Format = "JSON Lines (NDJSON)"
	// FormatArray is a single JSON array of records.
	FormatArray Format = "JSON Array"
	// FormatSingle is a single top-level JSON object.
	FormatSingle Format = "Single JSON Object"
	// FormatUnknown is a parseable document that yields no records, such as
	// a bare top-level scalar.
	FormatUnknown Format = "Unknown"
)

// ParseError reports input text that is not valid under any supported
// encoding. It wraps the syntax error from the final whole-document attempt.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse sniffs content and decodes it into a record sequence. Detection is
// ordered and the order is load-bearing:
//
//  1. If the trimmed content has more than one line, or exactly one line
//     starting with "{", every non-blank line is parsed as a standalone JSON
//     value. Success of all lines wins with FormatNDJSON; any failure
//     abandons the attempt entirely (no partial result).
//  2. The whole content is parsed as one JSON value: an array yields its
//     elements, an object yields a single record, any other value yields no
//     records with FormatUnknown.
//  3. If step 2 fails too, a *ParseError carrying the syntax error is
//     returned. This is the only fatal parse condition.
//
// File extensions are advisory only and play no part here.
func Parse(content string) ([]*Record, Format, error) {
	trimmed := strings.TrimSpace(content)

	lines := strings.Split(trimmed, "\n")
	if len(lines) > 1 || (len(lines) == 1 && strings.HasPrefix(lines[0], "{")) {
		recs := make([]*Record, 0, len(lines))
		allParsed := true
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			v, err := parseValue(line)
			if err != nil {
				allParsed = false
				break
			}
			recs = append(recs, asRecord(v))
		}
		if allParsed {
			return recs, FormatNDJSON, nil
		}
	}

	v, err := parseValue(trimmed)
	if err != nil {
		return nil, FormatUnknown, &ParseError{Err: err}
	}

	switch t := v.(type) {
	case []any:
		recs := make([]*Record, 0, len(t))
		for _, el := range t {
			recs = append(recs, asRecord(el))
		}
		return recs, FormatArray, nil
	case *Record:
		return []*Record{t}, FormatSingle, nil
	default:
		// Top-level scalar: accepted, but there is nothing tabular in it.
		return nil, FormatUnknown, nil
	}
}

// parseValue decodes s as exactly one JSON value, rejecting trailing data.
func parseValue(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if tok, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected trailing data: %v", tok)
	}
	return v, nil
}

// asRecord coerces a decoded value into a record. Non-object values become
// degenerate empty records so that downstream transforms stay total.
func asRecord(v any) *Record {
	if rec, ok := v.(*Record); ok {
		return rec
	}
	return NewRecord()
}
