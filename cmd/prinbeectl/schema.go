package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/prinbee/prinbee-core/schema"
	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect table schema definitions",
	}
	cmd.AddCommand(newSchemaInspectCmd())
	cmd.AddCommand(newSchemaCompareCmd())
	return cmd
}

func newSchemaInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect DIR",
		Short: "Print the columns and indexes of a table's highest schema version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := schema.LoadDirectory(args[0], nil)
			if err != nil {
				return err
			}
			printTableSummary(tbl)
			return nil
		},
	}
}

func printTableSummary(tbl *schema.Table) {
	fmt.Printf("table %s version %d (model %s, replication %d)\n", tbl.Name, tbl.Version, tbl.Model, tbl.Replication)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"id", "name", "type", "system", "flags"})
	for _, c := range tbl.Columns() {
		typeName := c.Type.String()
		if c.Complex != nil {
			typeName = c.Complex.Name
		}
		table.Append([]string{
			strconv.FormatUint(uint64(c.ID), 10),
			c.Name,
			typeName,
			strconv.FormatBool(c.IsSystem()),
			fmt.Sprintf("%#x", uint32(c.Flags)),
		})
	}
	table.Render()

	if len(tbl.Indexes()) == 0 {
		return
	}
	idxTable := tablewriter.NewWriter(os.Stdout)
	idxTable.SetHeader([]string{"id", "name", "type", "sort columns"})
	for _, idx := range tbl.Indexes() {
		idxTable.Append([]string{
			strconv.FormatUint(uint64(idx.ID), 10),
			idx.Name,
			fmt.Sprintf("%d", idx.Type()),
			formatSortColumns(idx.SortColumns),
		})
	}
	idxTable.Render()
}

func formatSortColumns(cols []schema.SortColumn) string {
	s := ""
	for i, c := range cols {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d(%d)", c.ColumnID, c.Length)
		if !c.IsAscending() {
			s += " desc"
		}
	}
	return s
}

func newSchemaCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare DIR VERSION_A VERSION_B",
		Short: "Compare two versions of the same table's schema",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, aVer, bVer := args[0], args[1], args[2]
			a, err := readVersion(dir, aVer)
			if err != nil {
				return err
			}
			b, err := readVersion(dir, bVer)
			if err != nil {
				return err
			}
			cmp, err := a.Compare(b)
			if err != nil {
				return err
			}
			fmt.Printf("%s-%s vs %s-%s: %s\n", a.Name, aVer, b.Name, bVer, cmp)
			return nil
		},
	}
}

func readVersion(dir, version string) (*schema.Table, error) {
	name := filepath.Base(dir)
	fileName := fmt.Sprintf("%s-%s.ini", name, version)
	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		return nil, err
	}
	return schema.Parse(name, fileName, data, nil)
}
