package dbtype

import (
	"sort"
	"strings"

	"github.com/prinbee/prinbee-core/errtype"
)

// Model is the storage-policy tag attached to a table schema.
type Model uint8

const (
	ModelContent Model = iota
	ModelData
	ModelDefault
	ModelLog
	ModelQueue
	// ModelSequencial keeps the spelling found in the original design; it
	// is the token actually persisted to disk and must not be "corrected"
	// to "Sequential" or old schemas stop round-tripping.
	ModelSequencial
	ModelSession
	ModelTree
)

var modelNames = map[Model]string{
	ModelContent:    "CONTENT",
	ModelData:       "DATA",
	ModelDefault:    "DEFAULT",
	ModelLog:        "LOG",
	ModelQueue:      "QUEUE",
	ModelSequencial: "SEQUENCIAL",
	ModelSession:    "SESSION",
	ModelTree:       "TREE",
}

func (m Model) String() string {
	if n, ok := modelNames[m]; ok {
		return n
	}
	return "UNKNOWN"
}

// NameToModel resolves a case-insensitive model keyword to a Model. An
// empty name yields ModelDefault; any other unrecognized name is a
// validation error.
func NameToModel(name string) (Model, error) {
	if name == "" {
		return ModelDefault, nil
	}
	uc := strings.ToUpper(name)
	for m, n := range modelNames {
		if n == uc {
			return m, nil
		}
	}
	names := make([]string, 0, len(modelNames))
	for _, n := range modelNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return 0, errtype.Validation("unrecognized model %q (expected one of %s)", name, strings.Join(names, ", "))
}

// TableFlag is a bit in the table-level flag word.
type TableFlag uint64

const (
	TableFlagSecure TableFlag = 1 << iota
	TableFlagTranslatable
	TableFlagUnlogged
	TableFlagDrop
)

var tableFlagNames = map[string]TableFlag{
	"secure":       TableFlagSecure,
	"translatable": TableFlagTranslatable,
	"unlogged":     TableFlagUnlogged,
}

// ParseTableFlags parses a comma-separated list of table flag keywords.
// "drop" is deliberately not accepted here: it is set internally, never by
// a user-authored .ini file.
func ParseTableFlags(list string) (TableFlag, error) {
	var flags TableFlag
	for _, f := range splitNonEmpty(list) {
		bit, ok := tableFlagNames[f]
		if !ok {
			return 0, errtype.Validation("unknown table flag %q", f)
		}
		flags |= bit
	}
	return flags, nil
}

// ColumnFlag is a bit in a column's flag word.
type ColumnFlag uint32

const (
	ColumnFlagBlob ColumnFlag = 1 << iota
	ColumnFlagHidden
	ColumnFlagLimited
	ColumnFlagRequired
	ColumnFlagSystem
	ColumnFlagVersioned
)

var columnFlagNames = map[string]ColumnFlag{
	"blob":      ColumnFlagBlob,
	"hidden":    ColumnFlagHidden,
	"limited":   ColumnFlagLimited,
	"required":  ColumnFlagRequired,
	"versioned": ColumnFlagVersioned,
}

// ParseColumnFlags parses a comma-separated list of column flag keywords.
// "system" is not accepted from user input; it is only ever set by the
// system-column constructors.
func ParseColumnFlags(list string) (ColumnFlag, error) {
	var flags ColumnFlag
	for _, f := range splitNonEmpty(list) {
		bit, ok := columnFlagNames[f]
		if !ok {
			return 0, errtype.Validation("unknown column flag %q", f)
		}
		flags |= bit
	}
	return flags, nil
}

// SortColumnFlag is a bit in a sort column's flag word.
type SortColumnFlag uint32

const (
	SortColumnDescending SortColumnFlag = 1 << iota
	SortColumnPlaceNullsLast
	SortColumnWithoutNulls
)

// SecondaryIndexFlag is a bit in a secondary index's flag word.
type SecondaryIndexFlag uint32

const (
	SecondaryIndexWithoutNulls SecondaryIndexFlag = 1 << iota
	SecondaryIndexNullsNotDistinct
	SecondaryIndexDistributed
)

var secondaryIndexFlagNames = map[string]SecondaryIndexFlag{
	"without_nulls":      SecondaryIndexWithoutNulls,
	"nulls_not_distinct": SecondaryIndexNullsNotDistinct,
	"distributed":        SecondaryIndexDistributed,
}

// ParseSecondaryIndexFlags parses a comma-separated list of secondary-index
// flag keywords.
func ParseSecondaryIndexFlags(list string) (SecondaryIndexFlag, error) {
	var flags SecondaryIndexFlag
	for _, f := range splitNonEmpty(list) {
		bit, ok := secondaryIndexFlagNames[f]
		if !ok {
			return 0, errtype.Validation("unknown index flag %q", f)
		}
		flags |= bit
	}
	return flags, nil
}

// IndexType classifies a secondary index by name. The four reserved,
// underscore-prefixed names denote system indexes; anything else that
// validates as an identifier is a user SECONDARY index.
type IndexType uint8

const (
	IndexTypeInvalid IndexType = iota
	IndexTypeSecondary
	IndexTypeIndirect
	IndexTypePrimary
	IndexTypeExpiration
	IndexTypeTree
)

var reservedIndexNames = map[string]IndexType{
	"_indirect":   IndexTypeIndirect,
	"_primary":    IndexTypePrimary,
	"_expiration": IndexTypeExpiration,
	"_tree":       IndexTypeTree,
}

// IndexNameToType classifies name per the reserved-name table, falling back
// to IndexTypeSecondary when name validates as a plain identifier and
// IndexTypeInvalid otherwise.
func IndexNameToType(name string, validateName func(string) bool) IndexType {
	if name == "" {
		return IndexTypeInvalid
	}
	if t, ok := reservedIndexNames[name]; ok {
		return t
	}
	if validateName(name) {
		return IndexTypeSecondary
	}
	return IndexTypeInvalid
}

// IndexTypeToName returns the reserved name for a system index type, or an
// empty string for IndexTypeSecondary (whose name is always user supplied)
// and IndexTypeInvalid.
func IndexTypeToName(t IndexType) string {
	switch t {
	case IndexTypeIndirect:
		return "_indirect"
	case IndexTypePrimary:
		return "_primary"
	case IndexTypeExpiration:
		return "_expiration"
	case IndexTypeTree:
		return "_tree"
	default:
		return ""
	}
}

func splitNonEmpty(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
