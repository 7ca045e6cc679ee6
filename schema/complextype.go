package schema

import (
	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
)

// ComplexTypeKind distinguishes the two shapes a complex type file can
// declare.
type ComplexTypeKind uint8

const (
	ComplexTypeRecord ComplexTypeKind = iota
	ComplexTypeEnum
)

// RecordField is one (name, type name) pair of a ComplexTypeRecord.
type RecordField struct {
	Name     string
	TypeName string
}

// EnumValue is one (name, value) pair of a ComplexTypeEnum.
type EnumValue struct {
	Name  string
	Value int64
}

// ComplexType is a user-defined record or enum type, referenced by name
// from a column's type= field. Complex types live in their own file and
// are shared across every table in a context, so a Registry of them must
// be supplied before a table definition that references one is parsed.
type ComplexType struct {
	Name             string
	Description      string
	CompareScript    []byte
	ValidationScript []byte
	Kind             ComplexTypeKind

	// Record fields, non-empty and name-unique only when Kind == ComplexTypeRecord.
	Fields []RecordField

	// Enum fields, non-empty and name/value-unique only when Kind == ComplexTypeEnum.
	EnumType dbtype.StructType
	Values   []EnumValue
}

// Validate checks the structural invariants schema.cpp enforces when
// parsing a [type::<name>] section: a complex type name must not collide
// with a basic type name, record types must have at least one
// name-unique field, and enum types must have an integer underlying type
// and at least one name/value-unique entry.
func (c *ComplexType) Validate() error {
	if !ValidateName(c.Name) {
		return errtype.Validation("invalid_name: complex type name %q is not a valid identifier", c.Name)
	}
	if dbtype.NameToStructType(c.Name) != dbtype.Invalid {
		return errtype.Validation("invalid_name: complex type %q collides with a basic type name", c.Name)
	}
	switch c.Kind {
	case ComplexTypeRecord:
		if len(c.Fields) == 0 {
			return errtype.Validation("complex type %q declares no fields", c.Name)
		}
		seen := make(map[string]bool, len(c.Fields))
		for _, f := range c.Fields {
			if !ValidateName(f.Name) {
				return errtype.Validation("invalid_name: field %q of complex type %q is not a valid identifier", f.Name, c.Name)
			}
			if seen[f.Name] {
				return errtype.Validation("complex type %q declares field %q more than once", c.Name, f.Name)
			}
			seen[f.Name] = true
		}
	case ComplexTypeEnum:
		if !dbtype.IsIntegerType(c.EnumType) {
			return errtype.Validation("complex type %q has a non-integer enum underlying type (%s)", c.Name, c.EnumType)
		}
		if len(c.Values) == 0 {
			return errtype.Validation("complex type %q declares no enum values", c.Name)
		}
		names := make(map[string]bool, len(c.Values))
		values := make(map[int64]bool, len(c.Values))
		for _, v := range c.Values {
			if !ValidateName(v.Name) {
				return errtype.Validation("invalid_name: enum value %q of complex type %q is not a valid identifier", v.Name, c.Name)
			}
			if names[v.Name] {
				return errtype.Validation("complex type %q declares enum value name %q more than once", c.Name, v.Name)
			}
			if values[v.Value] {
				return errtype.Validation("complex type %q declares enum value %d more than once", c.Name, v.Value)
			}
			names[v.Name] = true
			values[v.Value] = true
		}
	}
	return nil
}

// Registry maps complex type names to their definitions, shared across
// every table definition parsed against it.
type Registry map[string]*ComplexType

// Resolve looks up typeName as either a basic struct type or a registered
// complex type, returning the resolved basic type (Invalid for a complex
// type, since complex types have no single struct_type_t) and the complex
// type definition when applicable. It fails with errtype.ErrValidation
// ("invalid_type") if typeName is neither.
func (r Registry) Resolve(typeName string) (dbtype.StructType, *ComplexType, error) {
	if t := dbtype.NameToStructType(typeName); t != dbtype.Invalid {
		return t, nil, nil
	}
	if ct, ok := r[typeName]; ok {
		return dbtype.Invalid, ct, nil
	}
	return dbtype.Invalid, nil, errtype.Validation("invalid_type: %q is neither a basic type nor a known complex type", typeName)
}
