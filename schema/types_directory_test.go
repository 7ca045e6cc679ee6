package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/schema"
	"github.com/stretchr/testify/require"
)

const addressType = `[type::address]
description = a postal address
fields = street P8STRING, city P8STRING
`

const colorType = `[type::color]
enum = red 0, green 1
enum_type = UINT8
`

const bothFieldsAndEnum = `[type::broken]
fields = street P8STRING
enum = red 0
`

const neitherFieldsNorEnum = `[type::empty]
description = declares nothing
`

func TestLoadComplexTypeDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "address.ini"), []byte(addressType), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "color.ini"), []byte(colorType), 0o644))

	reg, err := schema.LoadComplexTypeDirectory(dir)
	require.NoError(t, err)
	require.Len(t, reg, 2)

	address, ok := reg["address"]
	require.True(t, ok)
	require.Equal(t, schema.ComplexTypeRecord, address.Kind)
	require.Len(t, address.Fields, 2)

	color, ok := reg["color"]
	require.True(t, ok)
	require.Equal(t, schema.ComplexTypeEnum, color.Kind)
	require.Equal(t, dbtype.Uint8, color.EnumType)
	require.Len(t, color.Values, 2)
}

func TestLoadComplexTypeDirectoryRejectsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "address.ini"), []byte(addressType), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "address2.ini"), []byte(addressType), 0o644))

	_, err := schema.LoadComplexTypeDirectory(dir)
	require.Error(t, err)
}

func TestLoadComplexTypeDirectoryRejectsFieldsAndEnumTogether(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.ini"), []byte(bothFieldsAndEnum), 0o644))

	_, err := schema.LoadComplexTypeDirectory(dir)
	require.Error(t, err)
}

func TestLoadComplexTypeDirectoryRejectsNeitherFieldsNorEnum(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.ini"), []byte(neitherFieldsNorEnum), 0o644))

	_, err := schema.LoadComplexTypeDirectory(dir)
	require.Error(t, err)
}

func TestLoadComplexTypeDirectoryMultipleTypesPerFile(t *testing.T) {
	dir := t.TempDir()
	combined := addressType + "\n" + colorType
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared.ini"), []byte(combined), 0o644))

	reg, err := schema.LoadComplexTypeDirectory(dir)
	require.NoError(t, err)
	require.Len(t, reg, 2)
	require.Contains(t, reg, "address")
	require.Contains(t, reg, "color")
}
