package schema

import (
	"strconv"
	"strings"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
)

// DefaultSortColumnLength is the prefix length a sort-column spec gets
// when it does not name one explicitly.
const DefaultSortColumnLength = 256

// SortColumn is one component of a secondary index's ordered key: a
// column reference, a prefix length, and sort flags.
type SortColumn struct {
	ColumnID dbtype.ColumnID
	Length   uint32
	Flags    dbtype.SortColumnFlag
}

// Validate checks the sort column's own invariants: PLACE_NULLS_LAST and
// WITHOUT_NULLS are mutually exclusive, and Length must be positive.
func (s SortColumn) Validate() error {
	if s.Length == 0 {
		return errtype.Validation("sort column length must be a positive 32-bit value")
	}
	const both = dbtype.SortColumnPlaceNullsLast | dbtype.SortColumnWithoutNulls
	if s.Flags&both == both {
		return errtype.Validation("sort column flags PLACE_NULLS_LAST and WITHOUT_NULLS are mutually exclusive")
	}
	return nil
}

// ParseSortColumnSpec parses one comma-list element of an [index::<id>]
// section's columns= value: "<column_id>[(<length>)] [desc]
// [nulls_last|without_nulls]".
func ParseSortColumnSpec(spec string) (SortColumn, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return SortColumn{}, errtype.Validation("empty sort column specification")
	}

	head := fields[0]
	length := uint32(DefaultSortColumnLength)
	idPart := head
	if open := strings.IndexByte(head, '('); open >= 0 {
		if !strings.HasSuffix(head, ")") {
			return SortColumn{}, errtype.Validation("malformed sort column length in %q", head)
		}
		idPart = head[:open]
		lengthStr := head[open+1 : len(head)-1]
		n, err := strconv.ParseUint(lengthStr, 10, 32)
		if err != nil || n == 0 {
			return SortColumn{}, errtype.Validation("sort column length %q must be a positive 32-bit value", lengthStr)
		}
		length = uint32(n)
	}
	id, err := strconv.ParseUint(idPart, 10, 16)
	if err != nil {
		return SortColumn{}, errtype.Validation("sort column %q does not start with a column id", spec)
	}

	var flags dbtype.SortColumnFlag
	for _, kw := range fields[1:] {
		switch strings.ToLower(kw) {
		case "desc":
			flags |= dbtype.SortColumnDescending
		case "nulls_last":
			flags |= dbtype.SortColumnPlaceNullsLast
		case "without_nulls":
			flags |= dbtype.SortColumnWithoutNulls
		default:
			return SortColumn{}, errtype.Validation("unknown sort column keyword %q in %q", kw, spec)
		}
	}

	sc := SortColumn{ColumnID: dbtype.ColumnID(id), Length: length, Flags: flags}
	if err := sc.Validate(); err != nil {
		return SortColumn{}, err
	}
	return sc, nil
}

// IsAscending reports whether this column sorts ascending (the default;
// false only when DESCENDING is set).
func (s SortColumn) IsAscending() bool {
	return s.Flags&dbtype.SortColumnDescending == 0
}

// AcceptsNullColumns reports whether rows with a NULL value in this
// column participate in the index, i.e. WITHOUT_NULLS is not set.
func (s SortColumn) AcceptsNullColumns() bool {
	return s.Flags&dbtype.SortColumnWithoutNulls == 0
}

// CompareSortColumn returns Equal if a and b are identical in every field
// that affects on-disk ordering, Differ otherwise -- a sort column has no
// soft/Update-level changes, any difference forces a new schema version.
func CompareSortColumn(a, b SortColumn) dbtype.CompareResult {
	if a.ColumnID != b.ColumnID || a.Length != b.Length || a.Flags != b.Flags {
		return dbtype.Differ
	}
	return dbtype.Equal
}
