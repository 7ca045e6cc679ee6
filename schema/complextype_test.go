package schema_test

import (
	"testing"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/schema"
	"github.com/stretchr/testify/require"
)

func TestComplexTypeValidateRejectsBasicTypeNameCollision(t *testing.T) {
	ct := &schema.ComplexType{
		Name:   "uint32",
		Kind:   schema.ComplexTypeRecord,
		Fields: []schema.RecordField{{Name: "x", TypeName: "UINT32"}},
	}
	require.Error(t, ct.Validate())
}

func TestComplexTypeValidateRecordRequiresUniqueFields(t *testing.T) {
	ct := &schema.ComplexType{
		Name: "address",
		Kind: schema.ComplexTypeRecord,
		Fields: []schema.RecordField{
			{Name: "street", TypeName: "P8STRING"},
			{Name: "street", TypeName: "P8STRING"},
		},
	}
	require.Error(t, ct.Validate())
}

func TestComplexTypeValidateRecordOK(t *testing.T) {
	ct := &schema.ComplexType{
		Name: "address",
		Kind: schema.ComplexTypeRecord,
		Fields: []schema.RecordField{
			{Name: "street", TypeName: "P8STRING"},
			{Name: "city", TypeName: "P8STRING"},
		},
	}
	require.NoError(t, ct.Validate())
}

func TestComplexTypeValidateEnumRequiresIntegerUnderlyingType(t *testing.T) {
	ct := &schema.ComplexType{
		Name:     "color",
		Kind:     schema.ComplexTypeEnum,
		EnumType: dbtype.P8String,
		Values:   []schema.EnumValue{{Name: "red", Value: 0}},
	}
	require.Error(t, ct.Validate())
}

func TestComplexTypeValidateEnumRejectsDuplicateValue(t *testing.T) {
	ct := &schema.ComplexType{
		Name:     "color",
		Kind:     schema.ComplexTypeEnum,
		EnumType: dbtype.Uint8,
		Values: []schema.EnumValue{
			{Name: "red", Value: 0},
			{Name: "crimson", Value: 0},
		},
	}
	require.Error(t, ct.Validate())
}

func TestRegistryResolveBasicType(t *testing.T) {
	r := schema.Registry{}
	st, ct, err := r.Resolve("UINT32")
	require.NoError(t, err)
	require.Equal(t, dbtype.Uint32, st)
	require.Nil(t, ct)
}

func TestRegistryResolveComplexType(t *testing.T) {
	color := &schema.ComplexType{Name: "color", Kind: schema.ComplexTypeEnum, EnumType: dbtype.Uint8, Values: []schema.EnumValue{{Name: "red", Value: 0}}}
	r := schema.Registry{"color": color}
	st, ct, err := r.Resolve("color")
	require.NoError(t, err)
	require.Equal(t, dbtype.Invalid, st)
	require.Same(t, color, ct)
}

func TestRegistryResolveUnknownFails(t *testing.T) {
	r := schema.Registry{}
	_, _, err := r.Resolve("does_not_exist")
	require.Error(t, err)
}
