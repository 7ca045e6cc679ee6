package schema_test

import (
	"testing"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/schema"
	"github.com/stretchr/testify/require"
)

func TestColumnValidateRejectsReservedID(t *testing.T) {
	c := &schema.Column{ID: dbtype.ColumnNull, Name: "x", Type: dbtype.Uint32, MinimumSize: -1, MaximumSize: -1, InternalSizeLimit: -1}
	require.Error(t, c.Validate())
}

func TestColumnValidateRejectsUnderscoreUserColumn(t *testing.T) {
	c := &schema.Column{ID: 20, Name: "_not_allowed", Type: dbtype.Uint32, MinimumSize: -1, MaximumSize: -1, InternalSizeLimit: -1}
	require.Error(t, c.Validate())
}

func TestColumnValidateAllowsSystemUnderscoreColumn(t *testing.T) {
	c := &schema.Column{ID: 1, Name: "_oid", Type: dbtype.OIDType, Flags: dbtype.ColumnFlagSystem, MinimumSize: -1, MaximumSize: -1, InternalSizeLimit: -1}
	require.NoError(t, c.Validate())
}

func TestColumnValidateExpirationDateMustBeTimeType(t *testing.T) {
	c := &schema.Column{ID: 20, Name: "expiration_date", Type: dbtype.Uint32, MinimumSize: -1, MaximumSize: -1, InternalSizeLimit: -1}
	require.Error(t, c.Validate())

	c.Type = dbtype.NSTime
	require.NoError(t, c.Validate())
}

func TestColumnValidateInternalSizeLimit(t *testing.T) {
	c := &schema.Column{ID: 20, Name: "blob_field", Type: dbtype.P8String, MinimumSize: -1, MaximumSize: -1, InternalSizeLimit: 64}
	require.Error(t, c.Validate())

	c.InternalSizeLimit = 128
	require.NoError(t, c.Validate())

	c.InternalSizeLimit = -1
	require.NoError(t, c.Validate())
}

func TestCompareColumnTypeChangeIsDiffer(t *testing.T) {
	a := &schema.Column{ID: 20, Name: "n", Type: dbtype.Uint32, MinimumSize: -1, MaximumSize: -1}
	b := &schema.Column{ID: 20, Name: "n", Type: dbtype.Uint64, MinimumSize: -1, MaximumSize: -1}
	require.Equal(t, dbtype.Differ, schema.CompareColumn(a, b))
}

func TestCompareColumnLimitedFlagIsUpdate(t *testing.T) {
	a := &schema.Column{ID: 20, Name: "n", Type: dbtype.Uint32, MinimumSize: -1, MaximumSize: -1}
	b := &schema.Column{ID: 20, Name: "n", Type: dbtype.Uint32, Flags: dbtype.ColumnFlagLimited, MinimumSize: -1, MaximumSize: -1}
	require.Equal(t, dbtype.Update, schema.CompareColumn(a, b))
}

func TestCompareColumnDefaultValueIsUpdate(t *testing.T) {
	a := &schema.Column{ID: 20, Name: "n", Type: dbtype.Uint32, MinimumSize: -1, MaximumSize: -1, DefaultValue: []byte{1}}
	b := &schema.Column{ID: 20, Name: "n", Type: dbtype.Uint32, MinimumSize: -1, MaximumSize: -1, DefaultValue: []byte{2}}
	require.Equal(t, dbtype.Update, schema.CompareColumn(a, b))
}

func TestCompareColumnIdenticalIsEqual(t *testing.T) {
	a := &schema.Column{ID: 20, Name: "n", Type: dbtype.Uint32, MinimumSize: -1, MaximumSize: -1}
	b := &schema.Column{ID: 20, Name: "n", Type: dbtype.Uint32, MinimumSize: -1, MaximumSize: -1}
	require.Equal(t, dbtype.Equal, schema.CompareColumn(a, b))
}

func TestCompareColumnSizeBoundChangeIsDiffer(t *testing.T) {
	a := &schema.Column{ID: 20, Name: "n", Type: dbtype.P8String, MinimumSize: -1, MaximumSize: -1}
	b := &schema.Column{ID: 20, Name: "n", Type: dbtype.P8String, MinimumSize: -1, MaximumSize: 32}
	require.Equal(t, dbtype.Differ, schema.CompareColumn(a, b))
}
