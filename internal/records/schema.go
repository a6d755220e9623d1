package records

// DefaultInstrumentType is the catalog key used for records whose
// Header.InstrumentType is absent or not in the catalog. Its specific field
// set covers the Swap, Forward and Option extras so unknown types still
// surface those columns; Future's delivery fields are excluded on purpose.
const DefaultInstrumentType = "Default"

// FieldGroup lists the extra Derived and Attributes fields projected for one
// instrument type, on top of the common fields.
type FieldGroup struct {
	Derived    []string
	Attributes []string
}

// Catalog is the static field schema: the common groups present for every
// instrument type plus the per-type extras. It is configuration, not logic:
// adding an instrument type means adding a map entry, nothing else in the
// system special-cases type names.
//
// A catalog is immutable after construction and safe for concurrent readers.
type Catalog struct {
	Header           []string
	Identifier       []string
	DerivedCommon    []string
	AttributesCommon []string
	Specific         map[string]FieldGroup
}

// DefaultCatalog returns the field schema for the regulatory commodities
// data model (Swap, Forward, Option, Future).
func DefaultCatalog() *Catalog {
	return &Catalog{
		Header:           []string{"AssetClass", "InstrumentType", "UseCase", "Level"},
		Identifier:       []string{"UPI", "Status", "StatusReason", "LastUpdateDateTime"},
		DerivedCommon:    []string{"ClassificationType", "ShortName", "UnderlierName", "UnderlyingAssetType", "CFIDeliveryType"},
		AttributesCommon: []string{"ReferenceRate", "BaseProduct", "SubProduct", "AdditionalSubProduct", "DeliveryType"},
		Specific: map[string]FieldGroup{
			"Swap": {
				Derived: []string{},
				Attributes: []string{
					"OtherReferenceRate", "OtherBaseProduct", "OtherSubProduct",
					"OtherAdditionalSubProduct", "ReturnorPayoutTrigger",
				},
			},
			"Forward": {
				Derived:    []string{},
				Attributes: []string{"ReturnorPayoutTrigger"},
			},
			"Option": {
				Derived:    []string{"CFIOptionStyleandType"},
				Attributes: []string{"OptionType", "OptionExerciseStyle", "ValuationMethodorTrigger"},
			},
			"Future": {
				Derived:    []string{},
				Attributes: []string{"ExpiryDate", "SettlementMethod"},
			},
			DefaultInstrumentType: {
				Derived: []string{"CFIOptionStyleandType"},
				Attributes: []string{
					"OtherReferenceRate", "OtherBaseProduct", "OtherSubProduct",
					"OtherAdditionalSubProduct", "ReturnorPayoutTrigger",
					"OptionType", "OptionExerciseStyle", "ValuationMethodorTrigger",
				},
			},
		},
	}
}

// SpecificFor returns the extra field group for instrumentType, falling back
// to the Default superset for unrecognized types.
func (c *Catalog) SpecificFor(instrumentType string) FieldGroup {
	if group, ok := c.Specific[instrumentType]; ok {
		return group
	}
	return c.Specific[DefaultInstrumentType]
}

// InstrumentTypeOf classifies a record by its Header.InstrumentType,
// defaulting when absent or empty.
func InstrumentTypeOf(r *Record) string {
	if t := r.Object("Header").StringField("InstrumentType"); t != "" {
		return t
	}
	return DefaultInstrumentType
}
