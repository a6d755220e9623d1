package workbook

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upixl/internal/records"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustParse(t *testing.T, content string) []*records.Record {
	t.Helper()
	recs, _, err := records.Parse(content)
	require.NoError(t, err)
	return recs
}

func newTestBuilder() *Builder {
	return NewBuilder(records.DefaultCatalog(), testLogger())
}

func sheetNames(sheets []Sheet) []string {
	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Name
	}
	return names
}

func findSheet(t *testing.T, sheets []Sheet, name string) Sheet {
	t.Helper()
	for _, s := range sheets {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no sheet named %q in %v", name, sheetNames(sheets))
	return Sheet{}
}

func TestBuildRejectsEmptyInput(t *testing.T) {
	for _, mode := range Modes {
		_, err := newTestBuilder().Build(nil, mode)
		assert.ErrorIs(t, err, ErrNoRecords, "mode %s", mode)
	}
}

func TestBuildRejectsUnsupportedMode(t *testing.T) {
	recs := mustParse(t, `[{"a":1}]`)
	_, err := newTestBuilder().Build(recs, Mode("fancy"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output mode")
}

func TestModeValid(t *testing.T) {
	for _, mode := range Modes {
		assert.True(t, mode.Valid(), "mode %s", mode)
	}
	assert.False(t, Mode("fancy").Valid())
	assert.False(t, Mode("").Valid())
}

func TestBuildSmartByType(t *testing.T) {
	recs := mustParse(t, `[
		{"Header":{"InstrumentType":"Option"},
		 "Identifier":{"UPI":"U1"},
		 "Derived":{"CFIOptionStyleandType":"AC",
		            "CFI":[{"Value":"X","Attributes":[{"Name":"n","Code":"c","Value":"v"}]}]}},
		{"Header":{"InstrumentType":"Swap"},"Identifier":{"UPI":"U2"}},
		{"Header":{"InstrumentType":"Option"},"Identifier":{"UPI":"U3"}}
	]`)

	sheets, err := newTestBuilder().Build(recs, ModeSmartByType)
	require.NoError(t, err)

	assert.Equal(t, []string{"Summary", "Option", "Swap", "CFI Details"}, sheetNames(sheets))

	summary := sheets[0]
	require.Len(t, summary.Rows, 3, "two types plus the TOTAL row")
	assert.Equal(t, "Option", summary.Rows[0].Field("Instrument Type"))
	assert.Equal(t, 2, summary.Rows[0].Field("Record Count"))
	assert.Equal(t, "TOTAL", summary.Rows[2].Field("Instrument Type"))
	assert.Equal(t, 3, summary.Rows[2].Field("Record Count"))

	option := findSheet(t, sheets, "Option")
	require.Len(t, option.Rows, 2)
	assert.Equal(t, "AC", option.Rows[0].Field("CFIOptionStyleandType"))
	assert.Equal(t, "U1", option.Rows[0].Field("UPI"))
	_, hasSwapCol := option.Rows[0].Get("OtherReferenceRate")
	assert.False(t, hasSwapCol, "option sheets carry no swap columns")

	cfi := findSheet(t, sheets, "CFI Details")
	require.Len(t, cfi.Rows, 1)
	assert.Equal(t, "U1", cfi.Rows[0].Field("UPI"))
	assert.Equal(t, "n", cfi.Rows[0].Field("Attr1_Name"))
}

func TestBuildSmartByTypeWithoutCFI(t *testing.T) {
	recs := mustParse(t, `[{"Header":{"InstrumentType":"Swap"}}]`)

	sheets, err := newTestBuilder().Build(recs, ModeSmartByType)
	require.NoError(t, err)

	assert.Equal(t, []string{"Summary", "Swap"}, sheetNames(sheets),
		"CFI Details is omitted when no record carries CFI entries")
}

func TestBuildSmartByTypeFallsBackOnUnnameableType(t *testing.T) {
	recs := mustParse(t, `[
		{"Header":{"InstrumentType":"////"},"Identifier":{"UPI":"U1"}},
		{"Header":{"InstrumentType":"Swap"},"Identifier":{"UPI":"U2"}}
	]`)

	sheets, err := newTestBuilder().Build(recs, ModeSmartByType)
	require.NoError(t, err)

	assert.Equal(t, []string{"Summary", "Sheet_1", "Swap"}, sheetNames(sheets),
		"a type that sanitizes to nothing still gets a legal sheet name")
	assert.Equal(t, "U1", findSheet(t, sheets, "Sheet_1").Rows[0].Field("UPI"))
}

func TestBuildSmart(t *testing.T) {
	recs := mustParse(t, `[
		{"Header":{"InstrumentType":"Option"},
		 "Identifier":{"UPI":"U1"},
		 "Derived":{"CFI":[{"Value":"X"}]}},
		{"Header":{"InstrumentType":"Swap"},"Identifier":{"UPI":"U2"}}
	]`)

	sheets, err := newTestBuilder().Build(recs, ModeSmart)
	require.NoError(t, err)

	assert.Equal(t, []string{"Main Data", "CFI Details", "Full Data (Flattened)"}, sheetNames(sheets))

	main := sheets[0]
	require.Len(t, main.Rows, 2)
	assert.Equal(t, main.Rows[0].Keys(), main.Rows[1].Keys(),
		"every main row carries the same all-type column set")

	flat := findSheet(t, sheets, "Full Data (Flattened)")
	assert.Equal(t, "U1", flat.Rows[0].Field("Identifier_UPI"))
}

func TestBuildSmartWithoutCFI(t *testing.T) {
	recs := mustParse(t, `[{"Header":{"InstrumentType":"Swap"}}]`)

	sheets, err := newTestBuilder().Build(recs, ModeSmart)
	require.NoError(t, err)

	assert.Equal(t, []string{"Main Data", "Full Data (Flattened)"}, sheetNames(sheets))
}

func TestBuildFull(t *testing.T) {
	recs := mustParse(t, `[{"a":{"b":1},"tags":["x","y"]}]`)

	sheets, err := newTestBuilder().Build(recs, ModeFull)
	require.NoError(t, err)

	require.Len(t, sheets, 1)
	assert.Equal(t, "Data", sheets[0].Name)

	row := sheets[0].Rows[0]
	assert.Equal(t, json.Number("1"), row.Field("a_b"))
	assert.Equal(t, "x, y", row.Field("tags"))
}

func TestBuildMinimal(t *testing.T) {
	recs := mustParse(t, `[{"id":"A1","n":2,"nested":{"k":1},"list":[1,2]}]`)

	sheets, err := newTestBuilder().Build(recs, ModeMinimal)
	require.NoError(t, err)

	require.Len(t, sheets, 1)
	row := sheets[0].Rows[0]

	assert.Equal(t, "A1", row.Field("id"))
	assert.Equal(t, json.Number("2"), row.Field("n"), "scalars pass through untouched")
	assert.Equal(t, `{"k":1}`, row.Field("nested"))
	assert.Equal(t, `[1,2]`, row.Field("list"))
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Swap", "Swap"},
		{"spaces and hyphens kept", "Non-Standard Type", "Non-Standard Type"},
		{"illegal characters dropped", "Swap/Forward:Rate*", "SwapForwardRate"},
		{"raw truncation before filter", "Equity Total Return Swap Basket X", "Equity Total Return Swap Bas"},
		{"truncation can eat illegal chars", "////////////////////////////Swap", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeSheetName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), maxSheetNameLen)
		})
	}
}
