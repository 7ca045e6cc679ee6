// Package structure implements the structure description engine: a
// declarative list of field descriptors drives typed serialization and
// deserialization of a byte range (a block's page, or a virtual buffer).
//
// A Description is static and shared across every record of a given kind;
// a Record is the runtime binding of a Description to a particular byte
// range. Field names may be plain ("column_id"), bit-packed groups
// ("flags=limited/required/blob:2" declares three sub-fields inside one
// BITSn word), array elements ("sort_columns[2]"), or dotted paths into
// nested structures ("sort_columns[2].column_id").
package structure

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
)

// BitField is one named sub-field of a bit-packed group.
type BitField struct {
	Name string
	Bits uint8
}

// FieldDesc is one entry in a Description. SubDescription is non-nil for
// Array8/16/32 (the element layout) and Structure (the nested layout).
type FieldDesc struct {
	// RawName is exactly what was written in the description: either a
	// plain field name or a bit-group spec ("flags=a/b:2/c").
	RawName string
	// Name is RawName with any "=..." bit-group spec stripped; this is
	// the name used to address the field from a path.
	Name string
	Type dbtype.StructType

	// MinVersion/MaxVersion bound the schema versions in which this
	// field is present. A zero MaxVersion means "no upper bound".
	MinVersion dbtype.SchemaVersion
	MaxVersion dbtype.SchemaVersion

	// BitFields is populated for Bits8/16/32/64 fields parsed from a
	// "name=sub/sub:n" spec.
	BitFields []BitField

	// SubDescription lays out one array element (Array8/16/32) or the
	// nested record (Structure).
	SubDescription Description
}

// PresentAt reports whether the field exists in a record stored at the
// given structure version.
func (f FieldDesc) PresentAt(v dbtype.SchemaVersion) bool {
	if v < f.MinVersion {
		return false
	}
	if f.MaxVersion != 0 && v > f.MaxVersion {
		return false
	}
	return true
}

// parseFieldName splits a raw description name into its addressable name
// and, for bit-packed groups, its ordered sub-fields. The grammar is
// "<name>=<sub>[:<bits>](/<sub>[:<bits>])*"; a sub-field with no ":<bits>"
// suffix occupies exactly one bit.
func parseFieldName(raw string) (name string, fields []BitField, err error) {
	eq := strings.IndexByte(raw, '=')
	if eq < 0 {
		return raw, nil, nil
	}
	name = raw[:eq]
	spec := raw[eq+1:]
	if name == "" || spec == "" {
		return "", nil, errtype.Validation("malformed bit-group field name %q", raw)
	}
	for _, part := range strings.Split(spec, "/") {
		bits := uint8(1)
		fname := part
		if colon := strings.IndexByte(part, ':'); colon >= 0 {
			fname = part[:colon]
			n, convErr := strconv.Atoi(part[colon+1:])
			if convErr != nil || n <= 0 || n > 64 {
				return "", nil, errors.Wrapf(convErr, "malformed bit width in field %q", raw)
			}
			bits = uint8(n)
		}
		if fname == "" {
			return "", nil, errtype.Validation("empty bit-field name in %q", raw)
		}
		fields = append(fields, BitField{Name: fname, Bits: bits})
	}
	return name, fields, nil
}

// NewField builds a FieldDesc, parsing any bit-group spec out of rawName.
// minVersion/maxVersion of 0 means "present in every version since the
// beginning" / "present in every version so far".
func NewField(rawName string, typ dbtype.StructType, minVersion, maxVersion dbtype.SchemaVersion, sub Description) (FieldDesc, error) {
	name, bits, err := parseFieldName(rawName)
	if err != nil {
		return FieldDesc{}, err
	}
	if len(bits) > 0 {
		switch typ {
		case dbtype.Bits8, dbtype.Bits16, dbtype.Bits32, dbtype.Bits64:
		default:
			return FieldDesc{}, errtype.Validation("field %q declares bit sub-fields but type %s is not a BITSn type", rawName, typ)
		}
		var total uint8
		for _, b := range bits {
			total += b.Bits
		}
		if int(total) > dbtype.StaticSize(typ)*8 {
			return FieldDesc{}, errtype.Validation("field %q declares %d bits but %s only holds %d", rawName, total, typ, dbtype.StaticSize(typ)*8)
		}
	}
	return FieldDesc{
		RawName:        rawName,
		Name:           name,
		Type:           typ,
		MinVersion:     minVersion,
		MaxVersion:     maxVersion,
		BitFields:      bits,
		SubDescription: sub,
	}, nil
}
