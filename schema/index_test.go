package schema_test

import (
	"testing"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/schema"
	"github.com/stretchr/testify/require"
)

func validIndex() *schema.SecondaryIndex {
	return &schema.SecondaryIndex{
		ID:          1,
		Name:        "by_email",
		SortColumns: []schema.SortColumn{{ColumnID: 20, Length: 64}},
	}
}

func TestSecondaryIndexValidateRequiresSortColumns(t *testing.T) {
	idx := validIndex()
	idx.SortColumns = nil
	require.Error(t, idx.Validate())
}

func TestSecondaryIndexValidateRejectsZeroID(t *testing.T) {
	idx := validIndex()
	idx.ID = 0
	require.Error(t, idx.Validate())
}

func TestSecondaryIndexValidateRejectsReservedName(t *testing.T) {
	idx := validIndex()
	idx.Name = "_primary"
	require.Equal(t, dbtype.IndexTypePrimary, idx.Type())
	require.Error(t, idx.Validate())
}

func TestSecondaryIndexValidateAcceptsPlainName(t *testing.T) {
	idx := validIndex()
	require.Equal(t, dbtype.IndexTypeSecondary, idx.Type())
	require.NoError(t, idx.Validate())
}

func TestParseSecondaryIndexColumnsMultiple(t *testing.T) {
	cols, err := schema.ParseSecondaryIndexColumns("20(32), 30 desc")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	require.EqualValues(t, 20, cols[0].ColumnID)
	require.EqualValues(t, 32, cols[0].Length)
	require.EqualValues(t, 30, cols[1].ColumnID)
	require.False(t, cols[1].IsAscending())
}

func TestCompareSecondaryIndexSortColumnOrderIsDiffer(t *testing.T) {
	a := validIndex()
	b := validIndex()
	b.SortColumns = []schema.SortColumn{{ColumnID: 30, Length: 64}}
	require.Equal(t, dbtype.Differ, schema.CompareSecondaryIndex(a, b))
}

func TestCompareSecondaryIndexIdenticalIsEqual(t *testing.T) {
	a := validIndex()
	b := validIndex()
	require.Equal(t, dbtype.Equal, schema.CompareSecondaryIndex(a, b))
}
