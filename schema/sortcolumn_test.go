package schema_test

import (
	"testing"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/schema"
	"github.com/stretchr/testify/require"
)

func TestParseSortColumnSpecDefaults(t *testing.T) {
	sc, err := schema.ParseSortColumnSpec("5")
	require.NoError(t, err)
	require.EqualValues(t, 5, sc.ColumnID)
	require.EqualValues(t, schema.DefaultSortColumnLength, sc.Length)
	require.True(t, sc.IsAscending())
	require.True(t, sc.AcceptsNullColumns())
}

func TestParseSortColumnSpecWithLengthAndFlags(t *testing.T) {
	sc, err := schema.ParseSortColumnSpec("7(16) desc nulls_last")
	require.NoError(t, err)
	require.EqualValues(t, 7, sc.ColumnID)
	require.EqualValues(t, 16, sc.Length)
	require.False(t, sc.IsAscending())
	require.NotZero(t, sc.Flags&dbtype.SortColumnPlaceNullsLast)
}

func TestParseSortColumnSpecRejectsConflictingNullFlags(t *testing.T) {
	_, err := schema.ParseSortColumnSpec("7 nulls_last without_nulls")
	require.Error(t, err)
}

func TestParseSortColumnSpecRejectsMalformedLength(t *testing.T) {
	_, err := schema.ParseSortColumnSpec("7(abc)")
	require.Error(t, err)
}

func TestParseSortColumnSpecRejectsUnknownKeyword(t *testing.T) {
	_, err := schema.ParseSortColumnSpec("7 sideways")
	require.Error(t, err)
}

func TestCompareSortColumnAnyDifferenceIsDiffer(t *testing.T) {
	a := schema.SortColumn{ColumnID: 1, Length: 256}
	b := schema.SortColumn{ColumnID: 1, Length: 128}
	require.Equal(t, dbtype.Differ, schema.CompareSortColumn(a, b))

	require.Equal(t, dbtype.Equal, schema.CompareSortColumn(a, a))
}

func TestAcceptsNullColumnsTestsWithoutNulls(t *testing.T) {
	sc := schema.SortColumn{ColumnID: 1, Length: 1, Flags: dbtype.SortColumnWithoutNulls}
	require.False(t, sc.AcceptsNullColumns())
}
