package structure

import (
	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
)

// Description is a static, ordered list of field descriptors. Every
// top-level block description begins with a Magic field, followed by a
// StructureVersion field, and ends with an End sentinel; nested
// (array-element, sub-structure) descriptions omit the Magic/
// StructureVersion header and the End sentinel is still required.
type Description []FieldDesc

// Validate checks the shape invariants described on Description. top
// selects whether the Magic/StructureVersion header is required (true for
// a block's own description, false for an array element or nested
// structure).
func (d Description) Validate(top bool) error {
	if len(d) == 0 {
		return errtype.Programming("empty structure description")
	}
	if top {
		if len(d) < 3 || d[0].Type != dbtype.Magic || d[1].Type != dbtype.StructureVersion {
			return errtype.Programming("top-level description must begin with MAGIC then STRUCTURE_VERSION")
		}
	}
	if d[len(d)-1].Type != dbtype.End {
		return errtype.Programming("structure description must end with an END sentinel")
	}
	seen := make(map[string]bool, len(d))
	for _, f := range d {
		if f.Type == dbtype.End {
			continue
		}
		if f.Name == "" {
			return errtype.Programming("field has an empty name")
		}
		if seen[f.Name] {
			return errtype.Programming("duplicate field name %q in description", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Find returns the descriptor for name, or ok=false if no field with that
// name exists in d (End sentinels are never matched).
func (d Description) Find(name string) (FieldDesc, bool) {
	for _, f := range d {
		if f.Type != dbtype.End && f.Name == name {
			return f, true
		}
	}
	return FieldDesc{}, false
}

// StaticSize returns the byte distance from offset 0 to the first dynamic
// field (a field whose StaticSize is -1), or to the END sentinel if every
// field is static. Fields outside [0, atVersion] are skipped as absent,
// matching the record's own view of its header.
func (d Description) StaticSize(atVersion dbtype.SchemaVersion) int {
	var size int
	for _, f := range d {
		if f.Type == dbtype.End {
			break
		}
		if !f.PresentAt(atVersion) {
			continue
		}
		w := dbtype.StaticSize(f.Type)
		if w < 0 {
			break
		}
		size += w
	}
	return size
}
