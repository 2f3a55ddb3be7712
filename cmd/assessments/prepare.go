package main

import (
	"fmt"
	"path/filepath"

	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
	"github.com/Sternrassler/assessment-parcels/pkg/persist"
	"github.com/Sternrassler/assessment-parcels/pkg/prep"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type prepareOptions struct {
	in     string
	outDir string
}

func newPrepareCommand(a *app) *cobra.Command {
	opts := prepareOptions{}
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Clean a fetched CSV and split it into train/validation/test sets",
		Long: `Prepare loads a CSV written by fetch, drops columns whose share of missing
values exceeds processing.missing_threshold, removes outliers of the target
column with the IQR rule and splits the rest with the configured seed.

train.csv, validation.csv and test.csv are written to paths.processed_dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPrepare(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.in, "in", "", "CSV file produced by fetch")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "output directory (default paths.processed_dir)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func (a *app) runPrepare(cmd *cobra.Command, opts prepareOptions) error {
	p := a.cfg.Processing
	outDir := opts.outDir
	if outDir == "" {
		outDir = a.cfg.Paths.ProcessedDir
	}

	store := persist.NewStore(a.fs, a.now)
	ds, err := store.Load(opts.in)
	if err != nil {
		return err
	}
	loaded := ds.Len()

	dropped := prep.DropSparseColumns(ds, p.MissingThreshold)

	removed := 0
	if ds.HasColumn(p.Target) {
		ds, removed, err = prep.FilterOutliersIQR(ds, p.Target, p.OutlierIQRMultiplier)
		if err != nil {
			return err
		}
	} else {
		log.Warn().Str("target", p.Target).Msg("Target column missing - outlier filter skipped")
	}

	splits, err := prep.Split(ds, p.TestSize, p.ValidationSize, a.rng)
	if err != nil {
		return err
	}

	parts := []struct {
		name string
		ds   *dataset.Dataset
	}{
		{"train", splits.Train},
		{"validation", splits.Validation},
		{"test", splits.Test},
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Split", "Records", "File"})
	for _, part := range parts {
		path := filepath.Join(outDir, part.name+".csv")
		if err := store.SaveAs(part.ds, path); err != nil {
			return err
		}
		t.AppendRow(table.Row{part.name, part.ds.Len(), path})
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d records: %d outliers removed, %d columns dropped\n",
		loaded, removed, len(dropped))
	return nil
}
