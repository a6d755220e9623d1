package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentTypeOf(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"known type", `{"Header":{"InstrumentType":"Swap"}}`, "Swap"},
		{"unknown type kept", `{"Header":{"InstrumentType":"Swaption"}}`, "Swaption"},
		{"missing header", `{"Identifier":{"UPI":"U1"}}`, DefaultInstrumentType},
		{"missing field", `{"Header":{"AssetClass":"Commodities"}}`, DefaultInstrumentType},
		{"header not an object", `{"Header":"bogus"}`, DefaultInstrumentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InstrumentTypeOf(mustRecord(t, tt.src)))
		})
	}
}

func TestCatalogSpecificFor(t *testing.T) {
	catalog := DefaultCatalog()

	option := catalog.SpecificFor("Option")
	assert.Equal(t, []string{"CFIOptionStyleandType"}, option.Derived)
	assert.Contains(t, option.Attributes, "OptionExerciseStyle")

	unknown := catalog.SpecificFor("Swaption")
	assert.Equal(t, catalog.Specific[DefaultInstrumentType], unknown)
}

func TestDefaultGroupCoversSwapForwardOption(t *testing.T) {
	catalog := DefaultCatalog()
	def := catalog.Specific[DefaultInstrumentType]

	// The Default group carries the Swap, Forward and Option extras. Future's
	// delivery fields are not part of it.
	for _, name := range []string{"Swap", "Forward", "Option"} {
		group := catalog.Specific[name]
		for _, field := range group.Derived {
			assert.Contains(t, def.Derived, field, "type %s derived field %s", name, field)
		}
		for _, field := range group.Attributes {
			assert.Contains(t, def.Attributes, field, "type %s attribute %s", name, field)
		}
	}
	assert.NotContains(t, def.Attributes, "ExpiryDate")
	assert.NotContains(t, def.Attributes, "SettlementMethod")
}

func TestExtractKeyFieldsIncludeAllHeaderIsStable(t *testing.T) {
	catalog := DefaultCatalog()

	option := mustRecord(t, `{"Header":{"InstrumentType":"Option"},"Attributes":{"OptionType":"Call"}}`)
	swap := mustRecord(t, `{"Header":{"InstrumentType":"Swap"}}`)
	bare := mustRecord(t, `{}`)

	optRow := catalog.ExtractKeyFields(option, true)
	swapRow := catalog.ExtractKeyFields(swap, true)
	bareRow := catalog.ExtractKeyFields(bare, true)

	assert.Equal(t, optRow.Keys(), swapRow.Keys())
	assert.Equal(t, optRow.Keys(), bareRow.Keys())
	assert.Equal(t, "Call", optRow.Field("OptionType"))
	assert.Equal(t, "", swapRow.Field("OptionType"), "missing fields default to empty string")
}

func TestExtractKeyFieldsByRecordType(t *testing.T) {
	catalog := DefaultCatalog()

	swap := mustRecord(t, `{
		"TemplateVersion":2,
		"Header":{"InstrumentType":"Swap","AssetClass":"Commodities"},
		"Attributes":{"OtherReferenceRate":"WTI"}
	}`)

	row := catalog.ExtractKeyFields(swap, false)

	assert.Equal(t, "WTI", row.Field("OtherReferenceRate"))
	_, hasOptionField := row.Get("OptionType")
	assert.False(t, hasOptionField, "swap rows carry no option columns without includeAll")

	keys := row.Keys()
	assert.Equal(t, "TemplateVersion", keys[0])
}

func TestExtractKeyFieldsForInstrumentOrdering(t *testing.T) {
	catalog := DefaultCatalog()
	row := catalog.ExtractKeyFieldsForInstrument(mustRecord(t, `{}`), "Option")

	want := []string{
		"TemplateVersion",
		"AssetClass", "InstrumentType", "UseCase", "Level",
		"UPI", "Status", "StatusReason", "LastUpdateDateTime",
		"ClassificationType", "ShortName", "UnderlierName", "UnderlyingAssetType", "CFIDeliveryType",
		"CFIOptionStyleandType",
		"ReferenceRate", "BaseProduct", "SubProduct", "AdditionalSubProduct", "DeliveryType",
		"OptionType", "OptionExerciseStyle", "ValuationMethodorTrigger",
	}
	assert.Equal(t, want, row.Keys(),
		"type-specific derived fields sit between common derived and common attributes")
}

func TestExtractKeyFieldsForInstrumentUsesSuppliedType(t *testing.T) {
	catalog := DefaultCatalog()

	// The record claims Swap, but the bucket is Option: the bucket wins.
	rec := mustRecord(t, `{
		"Header":{"InstrumentType":"Swap"},
		"Attributes":{"OptionType":"Put","OtherReferenceRate":"WTI"}
	}`)

	row := catalog.ExtractKeyFieldsForInstrument(rec, "Option")

	assert.Equal(t, "Put", row.Field("OptionType"))
	_, hasSwapField := row.Get("OtherReferenceRate")
	assert.False(t, hasSwapField)
}

func TestExtractKeyFieldsDefaultsEveryGroup(t *testing.T) {
	catalog := DefaultCatalog()
	row := catalog.ExtractKeyFields(mustRecord(t, `{}`), false)

	require.NotZero(t, row.Len())
	for _, key := range row.Keys() {
		assert.Equal(t, "", row.Field(key), "field %s should default to empty string", key)
	}
}
