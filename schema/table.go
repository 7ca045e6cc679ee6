package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
	"gopkg.in/ini.v1"
)

// DefaultBlobInlineThreshold is the blob_limit a table gets when its
// [table] section omits one: values larger than this size are moved to
// an Indirect block chain instead of being stored inline in the row.
const DefaultBlobInlineThreshold = 1 << 16

// Table is a fully parsed and validated table schema: one version of a
// table's column/index/primary-key definition.
type Table struct {
	Name        string
	Version     dbtype.SchemaVersion
	Description string
	AddedOn     time.Time

	Replication uint8
	Model       dbtype.Model
	Flags       dbtype.TableFlag

	VersionedRows       uint32
	BlobInlineThreshold int64

	columnsByID   map[dbtype.ColumnID]*Column
	columnsByName map[string]*Column
	PrimaryKey    []dbtype.ColumnID

	indexesByName map[string]*SecondaryIndex
	indexesByID   map[dbtype.IndexID]*SecondaryIndex

	Types Registry
}

// Column looks up a column by id.
func (t *Table) Column(id dbtype.ColumnID) (*Column, bool) {
	c, ok := t.columnsByID[id]
	return c, ok
}

// ColumnByName looks up a column by name.
func (t *Table) ColumnByName(name string) (*Column, bool) {
	c, ok := t.columnsByName[name]
	return c, ok
}

// Columns returns every column, ordered by id, for deterministic iteration
// (parsing/serializing/comparing).
func (t *Table) Columns() []*Column {
	out := make([]*Column, 0, len(t.columnsByID))
	for _, c := range t.columnsByID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Index looks up a secondary index by name.
func (t *Table) Index(name string) (*SecondaryIndex, bool) {
	idx, ok := t.indexesByName[name]
	return idx, ok
}

// Indexes returns every secondary index, ordered by id.
func (t *Table) Indexes() []*SecondaryIndex {
	out := make([]*SecondaryIndex, 0, len(t.indexesByID))
	for _, idx := range t.indexesByID {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ShouldInlineBlob reports whether a value of size bytes should be
// stored inline in its row rather than spilled to an Indirect block
// chain. blob_limit == 0 means no limit: everything is inlined.
func (t *Table) ShouldInlineBlob(size int64) bool {
	if t.BlobInlineThreshold == 0 {
		return true
	}
	return size <= t.BlobInlineThreshold
}

// HasExpiration reports whether this table declares an expiration_date
// column, which makes it participate in expiration indexing.
func (t *Table) HasExpiration() bool {
	_, ok := t.columnsByName["expiration_date"]
	return ok
}

func fileNameVersion(name, tableName string) (dbtype.SchemaVersion, error) {
	base := strings.TrimSuffix(name, ".ini")
	idx := strings.LastIndexByte(base, '-')
	if idx < 0 {
		return 0, errtype.Validation("schema file name %q does not match <name>-<version>.ini", name)
	}
	prefix, verStr := base[:idx], base[idx+1:]
	if prefix != tableName {
		return 0, errtype.TypeMismatch("schema file name %q does not match table directory name %q", name, tableName)
	}
	n, err := strconv.ParseUint(verStr, 10, 32)
	if err != nil {
		return 0, errtype.Validation("schema file name %q has a non-numeric version suffix", name)
	}
	return dbtype.SchemaVersion(n), nil
}

// Parse reads fileName's contents (expected to follow the
// "<name>-<version>.ini" convention, with dirName the owning directory)
// and builds a fully validated Table. types resolves any complex-typed
// column; it may be nil if the table uses none.
func Parse(dirName, fileName string, data []byte, types Registry) (*Table, error) {
	wantVersion, err := fileNameVersion(fileName, dirName)
	if err != nil {
		return nil, err
	}

	f, err := ini.Load(data)
	if err != nil {
		return nil, errtype.Validation("could not parse %q: %v", fileName, err)
	}

	tableSec := f.Section("table")
	name := tableSec.Key("name").String()
	if name != dirName {
		return nil, errtype.TypeMismatch("table name %q in %q does not match directory name %q", name, fileName, dirName)
	}
	version, err := tableSec.Key("version").Uint()
	if err != nil {
		return nil, errtype.Validation("[table] version in %q is not numeric: %v", fileName, err)
	}
	if dbtype.SchemaVersion(version) != wantVersion {
		return nil, errtype.TypeMismatch("[table] version %d in %q does not match file name version %d", version, fileName, wantVersion)
	}

	model, err := dbtype.NameToModel(tableSec.Key("model").String())
	if err != nil {
		return nil, err
	}
	flags, err := dbtype.ParseTableFlags(tableSec.Key("flags").String())
	if err != nil {
		return nil, err
	}

	replication := uint64(1)
	if tableSec.HasKey("replication") {
		replication, err = tableSec.Key("replication").Uint64()
		if err != nil || replication < 1 || replication > 255 {
			return nil, errtype.Validation("[table] replication must be in [1, 255], got %q", tableSec.Key("replication").String())
		}
	}

	versionedRows := uint64(0)
	if tableSec.HasKey("versioned_rows") {
		versionedRows, err = tableSec.Key("versioned_rows").Uint64()
		if err != nil || versionedRows == 0 {
			return nil, errtype.Validation("[table] versioned_rows must be non-zero, got %q", tableSec.Key("versioned_rows").String())
		}
	}

	blobLimit := int64(DefaultBlobInlineThreshold)
	if tableSec.HasKey("blob_limit") {
		n, err := tableSec.Key("blob_limit").Int64()
		if err != nil || (n != 0 && n < 128) {
			return nil, errtype.Validation("[table] blob_limit must be 0 or >= 128, got %q", tableSec.Key("blob_limit").String())
		}
		blobLimit = n
	}

	t := &Table{
		Name:                name,
		Version:             dbtype.SchemaVersion(version),
		Description:         tableSec.Key("description").String(),
		Replication:         uint8(replication),
		Model:               model,
		Flags:               flags,
		VersionedRows:       uint32(versionedRows),
		BlobInlineThreshold: blobLimit,
		columnsByID:         make(map[dbtype.ColumnID]*Column),
		columnsByName:       make(map[string]*Column),
		indexesByName:       make(map[string]*SecondaryIndex),
		indexesByID:         make(map[dbtype.IndexID]*SecondaryIndex),
		Types:               types,
	}

	// Columns are parsed before system columns are injected (so user ids
	// are free to use the low end of the id space), and indexes are
	// parsed only once every column, user or system, is in place (so an
	// index may reference either).
	for _, sec := range f.Sections() {
		parts := strings.SplitN(sec.Name(), "::", 2)
		if len(parts) != 2 || parts[0] != "column" {
			continue
		}
		if err := t.parseColumnSection(parts[1], sec); err != nil {
			return nil, err
		}
	}

	t.addSystemColumns()

	for _, sec := range f.Sections() {
		parts := strings.SplitN(sec.Name(), "::", 2)
		if len(parts) != 2 || parts[0] != "index" {
			continue
		}
		if err := t.parseIndexSection(parts[1], sec); err != nil {
			return nil, err
		}
	}

	if pk := tableSec.Key("primary_key").String(); pk != "" {
		for _, idStr := range strings.Split(pk, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseUint(idStr, 10, 16)
			if err != nil {
				return nil, errtype.Validation("[table] primary_key entry %q is not a column id", idStr)
			}
			if _, ok := t.columnsByID[dbtype.ColumnID(id)]; !ok {
				return nil, errtype.MissingData("[table] primary_key references unknown column id %d", id)
			}
			t.PrimaryKey = append(t.PrimaryKey, dbtype.ColumnID(id))
		}
	}

	return t, nil
}

// addSystemColumns injects the fixed system columns after every
// user-declared column has already been parsed, so it can hand each one
// the lowest id not already claimed by a user column (schema.cpp assigns
// system column ids from the free pool left over once user ids are
// taken, rather than reserving 1..10 up front). This lets a table freely
// use low ids such as 1 or 2 for its own columns.
func (t *Table) addSystemColumns() {
	id := dbtype.ColumnID(1)
	for _, name := range systemColumnNames() {
		for {
			if _, taken := t.columnsByID[id]; !taken {
				break
			}
			id++
		}
		col := &Column{
			ID:                id,
			Name:              name,
			Type:              systemColumnType(name),
			Flags:             dbtype.ColumnFlagSystem,
			MinimumSize:       -1,
			MaximumSize:       -1,
			InternalSizeLimit: -1,
		}
		t.columnsByID[id] = col
		t.columnsByName[name] = col
		id++
	}
}

func (t *Table) parseColumnSection(idStr string, sec *ini.Section) error {
	id, err := strconv.ParseUint(idStr, 10, 16)
	if err != nil || id == 0 {
		return errtype.Validation("[column::%s] id must be a non-zero 16-bit value", idStr)
	}
	cid := dbtype.ColumnID(id)
	if _, exists := t.columnsByID[cid]; exists {
		return errtype.Validation("column id %d is declared more than once", id)
	}

	name := sec.Key("name").String()
	if _, exists := t.columnsByName[name]; exists {
		return errtype.Validation("column name %q is declared more than once", name)
	}
	if err := ValidateUserName(name); err != nil {
		return err
	}

	typeName := sec.Key("type").String()
	structType, complex, err := t.Types.Resolve(typeName)
	if err != nil {
		return err
	}

	flags, err := dbtype.ParseColumnFlags(sec.Key("flags").String())
	if err != nil {
		return err
	}

	minSize := int64(-1)
	if sec.HasKey("minimum_size") {
		minSize, err = sec.Key("minimum_size").Int64()
		if err != nil {
			return errtype.Validation("[column::%s] minimum_size is not numeric", idStr)
		}
	}
	maxSize := int64(-1)
	if sec.HasKey("maximum_size") {
		maxSize, err = sec.Key("maximum_size").Int64()
		if err != nil {
			return errtype.Validation("[column::%s] maximum_size is not numeric", idStr)
		}
	}
	internalLimit := int64(-1)
	if sec.HasKey("internal_size_limit") {
		internalLimit, err = sec.Key("internal_size_limit").Int64()
		if err != nil || (internalLimit != -1 && internalLimit < 128) {
			return errtype.Validation("[column::%s] internal_size_limit must be -1 or >= 128", idStr)
		}
	}

	col := &Column{
		ID:                 cid,
		Name:               name,
		Description:        sec.Key("description").String(),
		Type:               structType,
		Complex:            complex,
		Flags:              flags,
		EncryptionKey:      sec.Key("encrypt").String(),
		DefaultValue:       []byte(sec.Key("default_value").String()),
		DefaultValueScript: []byte(sec.Key("default_value_script").String()),
		ValidationScript:   []byte(sec.Key("validation_script").String()),
		MinimumValue:       []byte(sec.Key("minimum_value").String()),
		MaximumValue:       []byte(sec.Key("maximum_value").String()),
		MinimumSize:        minSize,
		MaximumSize:        maxSize,
		InternalSizeLimit:  internalLimit,
	}
	if len(col.DefaultValue) == 0 {
		col.DefaultValue = nil
	}
	if len(col.DefaultValueScript) == 0 {
		col.DefaultValueScript = nil
	}
	if len(col.ValidationScript) == 0 {
		col.ValidationScript = nil
	}
	if len(col.MinimumValue) == 0 {
		col.MinimumValue = nil
	}
	if len(col.MaximumValue) == 0 {
		col.MaximumValue = nil
	}
	if err := col.Validate(); err != nil {
		return err
	}

	t.columnsByID[cid] = col
	t.columnsByName[name] = col
	return nil
}

func (t *Table) parseIndexSection(idStr string, sec *ini.Section) error {
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return errtype.Validation("[index::%s] id must be a non-zero 32-bit value", idStr)
	}
	iid := dbtype.IndexID(id)
	if _, exists := t.indexesByID[iid]; exists {
		return errtype.Validation("index id %d is declared more than once", id)
	}

	name := sec.Key("name").String()
	if _, exists := t.indexesByName[name]; exists {
		return errtype.Validation("index name %q is declared more than once", name)
	}

	flags, err := dbtype.ParseSecondaryIndexFlags(sec.Key("flags").String())
	if err != nil {
		return err
	}
	cols, err := ParseSecondaryIndexColumns(sec.Key("columns").String())
	if err != nil {
		return err
	}
	for _, sc := range cols {
		if _, ok := t.columnsByID[sc.ColumnID]; !ok {
			return errtype.MissingData("index %q references unknown column id %d", name, sc.ColumnID)
		}
	}

	idx := &SecondaryIndex{
		ID:           iid,
		Name:         name,
		Description:  sec.Key("description").String(),
		Flags:        flags,
		SortColumns:  cols,
		KeyScript:    []byte(sec.Key("key_script").String()),
		FilterScript: []byte(sec.Key("filter_script").String()),
	}
	if len(idx.KeyScript) == 0 {
		idx.KeyScript = nil
	}
	if len(idx.FilterScript) == 0 {
		idx.FilterScript = nil
	}
	if err := idx.Validate(); err != nil {
		return err
	}

	t.indexesByID[iid] = idx
	t.indexesByName[name] = idx
	return nil
}

// Compare classifies the difference between t (the existing schema) and
// next (a freshly parsed candidate), following schema.cpp's compare():
// name mismatch is a caller bug, not a diff; any column or secondary
// index added, removed or found Differ forces Differ; a primary-key
// change forces Differ; a model change or any column found Update is
// folded in as Update.
func (t *Table) Compare(next *Table) (dbtype.CompareResult, error) {
	if t.Name != next.Name {
		return 0, errtype.Programming("cannot compare schemas for different tables (%q vs %q)", t.Name, next.Name)
	}

	result := dbtype.Equal
	if t.Model != next.Model {
		result = dbtype.Combine(result, dbtype.Update)
	}

	if !equalColumnIDs(t.PrimaryKey, next.PrimaryKey) {
		return dbtype.Differ, nil
	}

	oldCols := t.Columns()
	newCols := next.Columns()
	seen := make(map[dbtype.ColumnID]bool, len(oldCols))
	for _, oc := range oldCols {
		seen[oc.ID] = true
		nc, ok := next.Column(oc.ID)
		if !ok {
			return dbtype.Differ, nil
		}
		cmp := CompareColumn(oc, nc)
		if cmp == dbtype.Differ {
			return dbtype.Differ, nil
		}
		result = dbtype.Combine(result, cmp)
	}
	for _, nc := range newCols {
		if !seen[nc.ID] {
			return dbtype.Differ, nil
		}
	}

	oldIdx := t.Indexes()
	newIdx := next.Indexes()
	if len(oldIdx) != len(newIdx) {
		return dbtype.Differ, nil
	}
	seenIdx := make(map[dbtype.IndexID]bool, len(oldIdx))
	for _, oi := range oldIdx {
		seenIdx[oi.ID] = true
		ni, ok := next.indexesByID[oi.ID]
		if !ok {
			return dbtype.Differ, nil
		}
		if CompareSecondaryIndex(oi, ni) != dbtype.Equal {
			return dbtype.Differ, nil
		}
	}
	for _, ni := range newIdx {
		if !seenIdx[ni.ID] {
			return dbtype.Differ, nil
		}
	}

	return result, nil
}

func equalColumnIDs(a, b []dbtype.ColumnID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// LoadDirectory scans dir for files matching "<name>-<version>.ini" (name
// taken from dir's base name), parses every version found, and returns
// the highest one after checking that the version history is monotonic:
// each version compares against its predecessor as Update or Differ,
// never Equal (an Equal step means a version was bumped for no reason)
// and version numbers increase by exactly one with no gaps.
func LoadDirectory(dir string, types Registry) (*Table, error) {
	name := filepath.Base(dir)
	matches, err := filepath.Glob(filepath.Join(dir, name+"-*.ini"))
	if err != nil {
		return nil, errtype.IO(err, "could not glob schema directory %q", dir)
	}
	if len(matches) == 0 {
		return nil, errtype.MissingData("no schema files found in %q for table %q", dir, name)
	}

	tables := make(map[dbtype.SchemaVersion]*Table, len(matches))
	var versions []dbtype.SchemaVersion
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errtype.IO(err, "could not read %q", path)
		}
		tbl, err := Parse(name, filepath.Base(path), data, types)
		if err != nil {
			return nil, err
		}
		tables[tbl.Version] = tbl
		versions = append(versions, tbl.Version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })

	for i := 1; i < len(versions); i++ {
		if versions[i] != versions[i-1]+1 {
			return nil, errtype.Validation("table %q schema history has a gap between versions %d and %d", name, versions[i-1], versions[i])
		}
		prev, next := tables[versions[i-1]], tables[versions[i]]
		cmp, err := prev.Compare(next)
		if err != nil {
			return nil, err
		}
		if cmp == dbtype.Equal {
			return nil, errtype.Validation("table %q version %d is identical to version %d; a new version must change something", name, versions[i], versions[i-1])
		}
	}

	return tables[versions[len(versions)-1]], nil
}

func (t *Table) String() string {
	return fmt.Sprintf("%s-%d", t.Name, t.Version)
}
