package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kr/pretty"
	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/schema"
	"github.com/stretchr/testify/require"
)

const usersV1 = `[table]
name = users
version = 1
model = content
replication = 3

[column::20]
name = email
type = P8STRING
flags = required

[column::21]
name = signup_count
type = UINT32
`

const usersV2 = `[table]
name = users
version = 2
model = content
replication = 3

[column::20]
name = email
type = P8STRING
flags = required, limited

[column::21]
name = signup_count
type = UINT32

[index::1]
name = by_email
columns = 20(64)
`

func TestParseBuildsTableWithSystemColumns(t *testing.T) {
	tbl, err := schema.Parse("users", "users-1.ini", []byte(usersV1), nil)
	require.NoError(t, err)
	require.Equal(t, "users", tbl.Name)
	require.EqualValues(t, 1, tbl.Version)
	require.EqualValues(t, 3, tbl.Replication)

	email, ok := tbl.ColumnByName("email")
	require.True(t, ok)
	require.Equal(t, dbtype.P8String, email.Type)

	oid, ok := tbl.ColumnByName("_oid")
	require.True(t, ok)
	require.True(t, oid.IsSystem())
}

// Regression test for low user-assigned column ids (1, 2) coexisting
// with the injected system columns: system ids must yield to whatever
// the table already claimed rather than rejecting the table outright.
func TestParseAllowsLowUserColumnIDs(t *testing.T) {
	const usersV3 = `[table]
name = users
version = 3
model = content
primary_key = 1

[column::1]
name = name
type = P8STRING
flags = required

[column::2]
name = created
type = MSTIME
`
	tbl, err := schema.Parse("users", "users-3.ini", []byte(usersV3), nil)
	require.NoError(t, err)
	require.Equal(t, "users", tbl.Name)
	require.EqualValues(t, 3, tbl.Version)
	require.Equal(t, []dbtype.ColumnID{1}, tbl.PrimaryKey)

	name, ok := tbl.Column(1)
	require.True(t, ok)
	require.Equal(t, "name", name.Name)
	require.False(t, name.IsSystem())

	created, ok := tbl.Column(2)
	require.True(t, ok)
	require.Equal(t, "created", created.Name)

	oid, ok := tbl.ColumnByName("_oid")
	require.True(t, ok)
	require.True(t, oid.IsSystem())
	require.NotEqual(t, dbtype.ColumnID(1), oid.ID)
	require.NotEqual(t, dbtype.ColumnID(2), oid.ID)
}

func TestParseRejectsFileNameMismatch(t *testing.T) {
	_, err := schema.Parse("users", "other-1.ini", []byte(usersV1), nil)
	require.Error(t, err)
}

func TestParseRejectsVersionMismatch(t *testing.T) {
	_, err := schema.Parse("users", "users-2.ini", []byte(usersV1), nil)
	require.Error(t, err)
}

func TestParseRejectsDuplicateColumnID(t *testing.T) {
	bad := usersV1 + "\n[column::20]\nname = duplicate\ntype = UINT32\n"
	_, err := schema.Parse("users", "users-1.ini", []byte(bad), nil)
	require.Error(t, err)
}

func TestParseRejectsUnknownIndexColumn(t *testing.T) {
	bad := usersV1 + "\n[index::1]\nname = by_missing\ncolumns = 999\n"
	_, err := schema.Parse("users", "users-1.ini", []byte(bad), nil)
	require.Error(t, err)
}

func TestTableShouldInlineBlobDefault(t *testing.T) {
	tbl, err := schema.Parse("users", "users-1.ini", []byte(usersV1), nil)
	require.NoError(t, err)
	require.True(t, tbl.ShouldInlineBlob(1000)) // well under the default threshold
	require.False(t, tbl.ShouldInlineBlob(schema.DefaultBlobInlineThreshold+1))
}

func TestTableShouldInlineBlobUnlimited(t *testing.T) {
	unlimited := `[table]
name = users
version = 1
model = content
replication = 3
blob_limit = 0

[column::20]
name = email
type = P8STRING
`
	tbl, err := schema.Parse("users", "users-1.ini", []byte(unlimited), nil)
	require.NoError(t, err)
	require.True(t, tbl.ShouldInlineBlob(1 << 30))
}

func TestTableCompareIndexAdditionIsDiffer(t *testing.T) {
	v1, err := schema.Parse("users", "users-1.ini", []byte(usersV1), nil)
	require.NoError(t, err)
	v2, err := schema.Parse("users", "users-2.ini", []byte(usersV2), nil)
	require.NoError(t, err)

	cmp, err := v1.Compare(v2)
	require.NoError(t, err)
	require.Equal(t, dbtype.Differ, cmp)
}

func TestTableCompareIdenticalIsEqual(t *testing.T) {
	v1, err := schema.Parse("users", "users-1.ini", []byte(usersV1), nil)
	require.NoError(t, err)
	v1b, err := schema.Parse("users", "users-1.ini", []byte(usersV1), nil)
	require.NoError(t, err)

	cmp, err := v1.Compare(v1b)
	require.NoError(t, err)
	require.Equal(t, dbtype.Equal, cmp)
}

func TestLoadDirectoryReturnsHighestVersion(t *testing.T) {
	dir := t.TempDir()
	usersDir := filepath.Join(dir, "users")
	require.NoError(t, os.MkdirAll(usersDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(usersDir, "users-1.ini"), []byte(usersV1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(usersDir, "users-2.ini"), []byte(usersV2), 0o644))

	tbl, err := schema.LoadDirectory(usersDir, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, tbl.Version)
}

func TestLoadDirectoryRejectsVersionGap(t *testing.T) {
	dir := t.TempDir()
	usersDir := filepath.Join(dir, "users")
	require.NoError(t, os.MkdirAll(usersDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(usersDir, "users-1.ini"), []byte(usersV1), 0o644))

	v3 := `[table]
name = users
version = 3
model = content
replication = 3

[column::20]
name = email
type = P8STRING
`
	require.NoError(t, os.WriteFile(filepath.Join(usersDir, "users-3.ini"), []byte(v3), 0o644))

	_, err := schema.LoadDirectory(usersDir, nil)
	require.Error(t, err)
}

// Uses pretty.Diff to pin down exactly which column fields moved between
// schema versions, rather than just asserting the overall DIFFER verdict.
func TestPrettyDiffHighlightsColumnChange(t *testing.T) {
	v1, err := schema.Parse("users", "users-1.ini", []byte(usersV1), nil)
	require.NoError(t, err)
	v2, err := schema.Parse("users", "users-2.ini", []byte(usersV2), nil)
	require.NoError(t, err)

	email1, ok := v1.ColumnByName("email")
	require.True(t, ok)
	email2, ok := v2.ColumnByName("email")
	require.True(t, ok)

	diff := pretty.Diff(email1, email2)
	require.NotEmpty(t, diff, "email column should differ between schema versions:\n%s", pretty.Sprint(diff))
}
