package main

import (
	"fmt"

	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the record count and columns of the remote dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runInfo(cmd)
		},
	}
}

func (a *app) runInfo(cmd *cobra.Command) error {
	ctx := cmd.Context()
	c, closeClient, err := a.newClient(ctx)
	if err != nil {
		return err
	}
	defer closeClient()

	info, err := c.DatasetInfo(ctx, "")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	summary := table.NewWriter()
	summary.SetOutputMirror(out)
	summary.SetStyle(table.StyleLight)
	summary.AppendRows([]table.Row{
		{"Endpoint", info.Endpoint},
		{"Total records", info.TotalRecords.String()},
		{"Columns", len(info.Columns)},
	})
	summary.Render()

	if len(info.Columns) == 0 {
		return nil
	}
	fmt.Fprintln(out)

	columns := table.NewWriter()
	columns.SetOutputMirror(out)
	columns.SetStyle(table.StyleLight)
	columns.AppendHeader(table.Row{"#", "Column", "Sample value"})
	for i, name := range info.Columns {
		v, _ := info.Sample.Get(name)
		columns.AppendRow(table.Row{i + 1, name, truncate(dataset.FormatValue(v), 60)})
	}
	columns.Render()
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
