package schema

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
	"golang.org/x/sync/errgroup"
	"gopkg.in/ini.v1"
)

// LoadComplexTypeDirectory parses every "*.ini" file in dir for
// "[type::<name>]" sections and returns the resulting Registry. A single
// file may declare any number of complex types. Files are parsed in
// parallel since complex-type definitions never reference each other
// within the same file, only by name from a later table's column; the
// first error encountered is returned once every file has been attempted.
func LoadComplexTypeDirectory(dir string) (Registry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.ini"))
	if err != nil {
		return nil, errtype.IO(err, "could not glob complex type directory %q", dir)
	}

	reg := make(Registry, len(matches))
	var mu sync.Mutex

	var g errgroup.Group
	for _, path := range matches {
		path := path
		g.Go(func() error {
			types, err := parseComplexTypeFile(path)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, ct := range types {
				if _, exists := reg[ct.Name]; exists {
					return errtype.Validation("complex type %q declared more than once in %q", ct.Name, dir)
				}
				reg[ct.Name] = ct
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reg, nil
}

// parseComplexTypeFile reads every "[type::<name>]" section of path.
func parseComplexTypeFile(path string) ([]*ComplexType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errtype.IO(err, "could not read %q", path)
	}
	f, err := ini.Load(data)
	if err != nil {
		return nil, errtype.Validation("could not parse %q: %v", path, err)
	}

	var types []*ComplexType
	for _, sec := range f.Sections() {
		parts := strings.SplitN(sec.Name(), "::", 2)
		if len(parts) != 2 || parts[0] != "type" {
			continue
		}
		ct, err := parseComplexTypeSection(parts[1], sec)
		if err != nil {
			return nil, err
		}
		types = append(types, ct)
	}
	return types, nil
}

// parseComplexTypeSection builds a ComplexType from a "[type::<name>]"
// section. A type declares either "fields=<name type, …>" (record) or
// "enum=<name value, …>" (enum, with an optional "enum_type="); declaring
// both or neither is rejected.
func parseComplexTypeSection(name string, sec *ini.Section) (*ComplexType, error) {
	ct := &ComplexType{
		Name:             name,
		Description:      sec.Key("description").String(),
		CompareScript:    []byte(sec.Key("compare").String()),
		ValidationScript: []byte(sec.Key("validation_script").String()),
	}
	if len(ct.CompareScript) == 0 {
		ct.CompareScript = nil
	}
	if len(ct.ValidationScript) == 0 {
		ct.ValidationScript = nil
	}

	hasFields := sec.HasKey("fields")
	hasEnum := sec.HasKey("enum")

	switch {
	case hasFields && hasEnum:
		return nil, errtype.Validation("exclusive_fields: complex type %q declares both \"fields\" and \"enum\"", name)

	case hasEnum:
		ct.Kind = ComplexTypeEnum
		if sec.HasKey("enum_type") {
			ct.EnumType = dbtype.NameToStructType(sec.Key("enum_type").String())
		}
		for _, entry := range splitCommaList(sec.Key("enum").String()) {
			nv := strings.Fields(entry)
			if len(nv) != 2 {
				return nil, errtype.Validation("an enum definition must be a name and an integer separated by a space, not %q", entry)
			}
			value, err := strconv.ParseInt(nv[1], 10, 64)
			if err != nil {
				return nil, errtype.Validation("enum value %q of complex type %q is not an integer", nv[1], name)
			}
			ct.Values = append(ct.Values, EnumValue{Name: nv[0], Value: value})
		}

	case hasFields:
		ct.Kind = ComplexTypeRecord
		for _, entry := range splitCommaList(sec.Key("fields").String()) {
			nt := strings.Fields(entry)
			if len(nt) != 2 {
				return nil, errtype.Validation("a field definition must be a name and a type separated by a space, not %q", entry)
			}
			ct.Fields = append(ct.Fields, RecordField{Name: nt[0], TypeName: nt[1]})
		}

	default:
		return nil, errtype.MissingData("missing_parameter: complex type %q must declare \"fields\" or \"enum\"", name)
	}

	if err := ct.Validate(); err != nil {
		return nil, err
	}
	return ct, nil
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
