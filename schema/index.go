package schema

import (
	"bytes"
	"strings"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
)

// SecondaryIndex describes one non-primary index over a table: an
// ordered, non-empty list of sort columns plus optional compiled key and
// filter scripts.
type SecondaryIndex struct {
	ID          dbtype.IndexID
	Name        string
	Description string
	Flags       dbtype.SecondaryIndexFlag

	SortColumns []SortColumn

	KeyScript    []byte
	FilterScript []byte
}

// Type classifies the index by name using the reserved-name table in
// dbtype (_indirect, _primary, _expiration, _tree) or SECONDARY for any
// other valid identifier.
func (s *SecondaryIndex) Type() dbtype.IndexType {
	return dbtype.IndexNameToType(s.Name, ValidateName)
}

// Validate checks the per-index invariants: a non-zero id, a valid
// non-reserved name, at least one sort column, and each sort column's own
// validity.
func (s *SecondaryIndex) Validate() error {
	if s.ID == 0 {
		return errtype.Validation("secondary index id 0 is reserved")
	}
	switch s.Type() {
	case dbtype.IndexTypeSecondary:
		if err := ValidateUserName(s.Name); err != nil {
			return err
		}
	case dbtype.IndexTypeInvalid:
		return errtype.Validation("invalid_name: index name %q is neither a reserved index name nor a valid identifier", s.Name)
	default:
		return errtype.Validation("invalid_name: index name %q is reserved for a system index", s.Name)
	}
	if len(s.SortColumns) == 0 {
		return errtype.Validation("secondary index %q declares no sort columns", s.Name)
	}
	for _, sc := range s.SortColumns {
		if err := sc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseSecondaryIndexColumns splits an [index::<id>] section's columns=
// value (a comma-separated list of sort-column specs) into SortColumns.
func ParseSecondaryIndexColumns(list string) ([]SortColumn, error) {
	var out []SortColumn
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sc, err := ParseSortColumnSpec(part)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// CompareSecondaryIndex returns Differ for any change in the index flags,
// the sort-column count, order or flags, or the key or filter script; a
// secondary index has no Update-level (soft) differences, so any detected
// change is Differ.
func CompareSecondaryIndex(a, b *SecondaryIndex) dbtype.CompareResult {
	if a.Flags != b.Flags {
		return dbtype.Differ
	}
	if len(a.SortColumns) != len(b.SortColumns) {
		return dbtype.Differ
	}
	for i := range a.SortColumns {
		if CompareSortColumn(a.SortColumns[i], b.SortColumns[i]) != dbtype.Equal {
			return dbtype.Differ
		}
	}
	if !bytes.Equal(a.KeyScript, b.KeyScript) || !bytes.Equal(a.FilterScript, b.FilterScript) {
		return dbtype.Differ
	}
	return dbtype.Equal
}
