package main

import (
	"fmt"
	"sort"

	"github.com/Sternrassler/assessment-parcels/pkg/reproducibility"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and its fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			fingerprint, err := a.cfg.Fingerprint()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, string(data))
			fmt.Fprintf(out, "# fingerprint: %s\n", fingerprint)
			return nil
		},
	}
}

func newEnvCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print runtime and dependency versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := reproducibility.Environment()

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Component", "Version"})
			t.AppendRows([]table.Row{
				{"go", env.GoVersion},
				{"platform", env.OS + "/" + env.Arch},
				{"cpus", env.CPUs},
				{"module", env.MainModule + " " + env.Version},
				{"seed", a.cfg.Seed},
			})
			t.AppendSeparator()

			names := make([]string, 0, len(env.Modules))
			for name := range env.Modules {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				t.AppendRow(table.Row{name, env.Modules[name]})
			}
			t.Render()
			return nil
		},
	}
}
