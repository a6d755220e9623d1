package records

import "fmt"

// TypeGroup is one instrument-type bucket of records.
type TypeGroup struct {
	Type    string
	Records []*Record
}

// GroupByInstrumentType partitions records by Header.InstrumentType. Groups
// appear in first-seen order and keep the original record order within each
// bucket; every record lands in exactly one group.
func GroupByInstrumentType(recs []*Record) []TypeGroup {
	index := make(map[string]int)
	groups := make([]TypeGroup, 0)

	for _, rec := range recs {
		instrumentType := InstrumentTypeOf(rec)
		i, ok := index[instrumentType]
		if !ok {
			i = len(groups)
			index[instrumentType] = i
			groups = append(groups, TypeGroup{Type: instrumentType})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups
}

// ExtractCFIData pulls the CFI classification entries out of every record
// into one row per CFI entry. Each row carries the record's UPI (or a
// positional "Record_<i>" stand-in), its instrument type, the CFI code
// fields, and three columns per CFI attribute numbered from 1. Rows from
// entries with more attributes than others simply carry extra columns; the
// sheet writer unions headers and pads the rest.
func ExtractCFIData(recs []*Record) []*Record {
	rows := make([]*Record, 0)

	for i, rec := range recs {
		upi := fmt.Sprintf("Record_%d", i)
		if v, ok := rec.Object("Identifier").Get("UPI"); ok {
			upi = Stringify(v)
		}
		instrumentType := InstrumentTypeOf(rec)

		for _, entry := range rec.Object("Derived").List("CFI") {
			cfi, ok := entry.(*Record)
			if !ok {
				continue
			}

			row := NewRecord()
			row.Set("UPI", upi)
			row.Set("InstrumentType", instrumentType)
			row.Set("CFI_Version", cfi.Field("Version"))
			row.Set("CFI_VersionStatus", cfi.Field("VersionStatus"))
			row.Set("CFI_Value", cfi.Field("Value"))
			row.Set("CFI_Category_Code", cfi.Object("Category").Field("Code"))
			row.Set("CFI_Category_Value", cfi.Object("Category").Field("Value"))
			row.Set("CFI_Group_Code", cfi.Object("Group").Field("Code"))
			row.Set("CFI_Group_Value", cfi.Object("Group").Field("Value"))

			for j, attrEntry := range cfi.List("Attributes") {
				attr, ok := attrEntry.(*Record)
				if !ok {
					continue
				}
				n := fmt.Sprintf("%d", j+1)
				row.Set("Attr"+n+"_Name", attr.Field("Name"))
				row.Set("Attr"+n+"_Code", attr.Field("Code"))
				row.Set("Attr"+n+"_Value", attr.Field("Value"))
			}

			rows = append(rows, row)
		}
	}
	return rows
}
