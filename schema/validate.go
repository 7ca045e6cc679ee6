// Package schema parses a table's text definition (one ".ini" file per
// schema version) into a typed model: columns, the primary key, secondary
// indexes, and the complex types they may reference. It mirrors
// schema.cpp's "name must validate" and compare-for-migration logic.
package schema

import (
	"strings"

	"github.com/prinbee/prinbee-core/errtype"
)

// ValidateName reports whether name is a legal identifier: starts with a
// letter or underscore, followed by letters, digits or underscores, and
// is non-empty. It does not reject a leading underscore by itself --
// system and reserved names use one -- callers that forbid user-defined
// leading underscores check that separately.
func ValidateName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ValidateUserName checks a user-authored column or index name: it must
// validate as an identifier and must not begin with an underscore, since
// that prefix is reserved for system-generated and reserved names.
func ValidateUserName(name string) error {
	if !ValidateName(name) {
		return errtype.Validation("invalid_name: %q is not a valid identifier", name)
	}
	if strings.HasPrefix(name, "_") {
		return errtype.Validation("invalid_name: user-defined name %q must not start with '_'", name)
	}
	return nil
}
