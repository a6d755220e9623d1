package records

// ExtractKeyFields projects a record into the fixed schema row used by the
// combined "all records" sheets: TemplateVersion, then the common Header,
// Identifier, Derived and Attributes groups, then the instrument-specific
// extras. With includeAll set, the Default field group is projected instead
// of the record's own type so every row shares one header.
//
// Missing fields resolve to the empty string, never an omission: each output
// row within one includeAll mode carries an identical ordered column set.
func (c *Catalog) ExtractKeyFields(r *Record, includeAll bool) *Record {
	out := NewRecord()
	out.Set("TemplateVersion", r.Field("TemplateVersion"))

	header := r.Object("Header")
	for _, field := range c.Header {
		out.Set(field, header.Field(field))
	}

	identifier := r.Object("Identifier")
	for _, field := range c.Identifier {
		out.Set(field, identifier.Field(field))
	}

	derived := r.Object("Derived")
	for _, field := range c.DerivedCommon {
		out.Set(field, derived.Field(field))
	}

	attributes := r.Object("Attributes")
	for _, field := range c.AttributesCommon {
		out.Set(field, attributes.Field(field))
	}

	specific := c.SpecificFor(InstrumentTypeOf(r))
	if includeAll {
		specific = c.Specific[DefaultInstrumentType]
	}
	for _, field := range specific.Derived {
		out.Set(field, derived.Field(field))
	}
	for _, field := range specific.Attributes {
		out.Set(field, attributes.Field(field))
	}

	return out
}

// ExtractKeyFieldsForInstrument is the per-type-sheet projection: the same
// common fields, but the specific fields come from the caller-supplied
// instrumentType rather than the record itself, so every row in one type
// bucket shares the bucket's header. Type-specific Derived fields sit next
// to the common Derived group here, ahead of the Attributes groups.
func (c *Catalog) ExtractKeyFieldsForInstrument(r *Record, instrumentType string) *Record {
	out := NewRecord()
	out.Set("TemplateVersion", r.Field("TemplateVersion"))

	header := r.Object("Header")
	for _, field := range c.Header {
		out.Set(field, header.Field(field))
	}

	identifier := r.Object("Identifier")
	for _, field := range c.Identifier {
		out.Set(field, identifier.Field(field))
	}

	derived := r.Object("Derived")
	for _, field := range c.DerivedCommon {
		out.Set(field, derived.Field(field))
	}

	specific := c.SpecificFor(instrumentType)
	for _, field := range specific.Derived {
		out.Set(field, derived.Field(field))
	}

	attributes := r.Object("Attributes")
	for _, field := range c.AttributesCommon {
		out.Set(field, attributes.Field(field))
	}
	for _, field := range specific.Attributes {
		out.Set(field, attributes.Field(field))
	}

	return out
}
