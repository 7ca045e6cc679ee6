package schema

import (
	"bytes"
	"strings"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
)

// Column describes one field of a table row.
type Column struct {
	ID          dbtype.ColumnID
	Name        string
	Description string

	Type        dbtype.StructType // Invalid when Complex is set
	Complex     *ComplexType

	Flags dbtype.ColumnFlag

	EncryptionKey string

	DefaultValue       []byte
	DefaultValueScript []byte
	ValidationScript   []byte

	MinimumValue []byte
	MaximumValue []byte

	MinimumSize int64 // -1 means unbounded
	MaximumSize int64 // -1 means unbounded

	// InternalSizeLimit is -1 for unlimited, otherwise must be >= 128.
	InternalSizeLimit int64
}

// IsSystem reports whether this column was injected automatically rather
// than declared in the table's text definition.
func (c *Column) IsSystem() bool { return c.Flags&dbtype.ColumnFlagSystem != 0 }

// Validate checks the per-column invariants schema.cpp enforces while
// parsing a [column::<id>] section.
func (c *Column) Validate() error {
	if c.ID == dbtype.ColumnNull {
		return errtype.Validation("column id 0 is reserved for NULL")
	}
	if !ValidateName(c.Name) {
		return errtype.Validation("invalid_name: column name %q is not a valid identifier", c.Name)
	}
	if !c.IsSystem() && strings.HasPrefix(c.Name, "_") {
		return errtype.Validation("invalid_name: user-defined column %q must not start with '_'", c.Name)
	}
	if c.Name == "expiration_date" && !dbtype.IsTimeType(c.Type) {
		return errtype.Validation("column %q (expiration_date) must have a time type, got %s", c.Name, c.Type)
	}
	if c.InternalSizeLimit != -1 && c.InternalSizeLimit < 128 {
		return errtype.Validation("column %q internal_size_limit must be -1 or >= 128, got %d", c.Name, c.InternalSizeLimit)
	}
	return nil
}

// CompareColumn classifies the difference between an existing column a and
// its candidate replacement b, following schema.cpp's compare() rules: a
// type change, a non-LIMITED flag change, a size-bound change or a
// validation-script change all require a new schema version (Differ); the
// LIMITED flag and the default value may change without migration
// (Update); everything else is Equal.
func CompareColumn(a, b *Column) dbtype.CompareResult {
	result := dbtype.Equal

	if a.Type != b.Type || !complexTypeNameEqual(a.Complex, b.Complex) {
		return dbtype.Differ
	}
	if (a.Flags &^ dbtype.ColumnFlagLimited) != (b.Flags &^ dbtype.ColumnFlagLimited) {
		return dbtype.Differ
	}
	if a.MinimumSize != b.MinimumSize || a.MaximumSize != b.MaximumSize {
		return dbtype.Differ
	}
	if !bytes.Equal(a.MinimumValue, b.MinimumValue) || !bytes.Equal(a.MaximumValue, b.MaximumValue) {
		return dbtype.Differ
	}
	if !bytes.Equal(a.ValidationScript, b.ValidationScript) {
		return dbtype.Differ
	}

	if (a.Flags & dbtype.ColumnFlagLimited) != (b.Flags & dbtype.ColumnFlagLimited) {
		result = dbtype.Combine(result, dbtype.Update)
	}
	if !bytes.Equal(a.DefaultValue, b.DefaultValue) {
		result = dbtype.Combine(result, dbtype.Update)
	}
	return result
}

func complexTypeNameEqual(a, b *ComplexType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name == b.Name
}

// systemColumnNames returns the fixed set of columns injected into every
// table unconditionally, after every user-declared column has already
// been parsed. IDs are assigned by the caller (Table.addSystemColumns)
// from whatever ids user columns left free, so a table's own columns
// keep first claim on the low end of the id space.
func systemColumnNames() []string {
	return []string{
		"_schema_version",
		"_oid",
		"_version",
		"_language",
		"_created_on",
		"_last_updated",
		"_deleted_on",
		"_created_by",
		"_last_updated_by",
		"_deleted_by",
	}
}

func systemColumnType(name string) dbtype.StructType {
	switch name {
	case "_schema_version":
		return dbtype.VersionType
	case "_oid":
		return dbtype.OIDType
	case "_version":
		return dbtype.Uint32
	case "_language":
		return dbtype.Uint16
	case "_created_on", "_last_updated", "_deleted_on":
		return dbtype.NSTime
	case "_created_by", "_last_updated_by", "_deleted_by":
		return dbtype.OIDType
	default:
		return dbtype.Invalid
	}
}
