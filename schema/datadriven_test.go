package schema_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/prinbee/prinbee-core/schema"
)

// Walks schema/testdata, feeding each "parse"/"compare" block through the
// real .ini compiler and three-way comparator. Keeps the suite of hand
// written fixtures small while making it trivial to add a new schema
// evolution case without touching Go code.
func TestDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		versions := map[int]*schema.Table{}
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "parse":
				var name string
				var version int
				d.ScanArgs(t, "name", &name)
				d.ScanArgs(t, "version", &version)

				fileName := fmt.Sprintf("%s-%d.ini", name, version)
				tbl, err := schema.Parse(name, fileName, []byte(d.Input), nil)
				if err != nil {
					return fmt.Sprintf("error: %v\n", err)
				}
				versions[version] = tbl
				return "ok"

			case "compare":
				var a, b int
				d.ScanArgs(t, "a", &a)
				d.ScanArgs(t, "b", &b)

				from, to := versions[a], versions[b]
				if from == nil || to == nil {
					t.Fatalf("compare references an unparsed version (a=%d b=%d)", a, b)
				}
				result, err := from.Compare(to)
				if err != nil {
					return fmt.Sprintf("error: %v\n", err)
				}
				return strings.ToUpper(result.String())

			default:
				t.Fatalf("unknown directive %q", d.Cmd)
				return ""
			}
		})
	})
}
