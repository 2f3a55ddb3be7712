package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
	"github.com/Sternrassler/assessment-parcels/pkg/metrics"
	"github.com/Sternrassler/assessment-parcels/pkg/pagination"
	"github.com/Sternrassler/assessment-parcels/pkg/persist"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/thanos-io/objstore/providers/filesystem"
)

// sqliteTable is the table written by --sqlite.
const sqliteTable = "parcels"

type fetchOptions struct {
	limit       int
	outDir      string
	sqlitePath  string
	archiveDir  string
	metricsFile string
	noProgress  bool
}

func newFetchCommand(a *app) *cobra.Command {
	opts := fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the assessment dataset and save it as CSV",
		Long: `Fetch pages through the whole dataset with $limit/$offset and writes
Assessment_Parcels_<timestamp>.csv plus a run manifest into the raw data
directory. With --limit only the first N records are requested.

Any failed page aborts the run; nothing is saved in that case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runFetch(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.limit, "limit", 0, "fetch at most N records in a single request")
	flags.StringVar(&opts.outDir, "out", "", "output directory (default paths.raw_dir)")
	flags.StringVar(&opts.sqlitePath, "sqlite", "", "also export the records to this SQLite database")
	flags.StringVar(&opts.archiveDir, "archive", "", "upload the CSV and manifest to this object-store directory")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func (a *app) runFetch(cmd *cobra.Command, opts fetchOptions) error {
	ctx := cmd.Context()
	if opts.limit < 0 {
		return fmt.Errorf("--limit must be >= 0 (got %d)", opts.limit)
	}
	outDir := opts.outDir
	if outDir == "" {
		outDir = a.cfg.Paths.RawDir
	}

	fingerprint, err := a.cfg.Fingerprint()
	if err != nil {
		return err
	}
	manifest := persist.NewManifest(a.cfg.Endpoint(), fingerprint, a.now())
	logger := log.With().Str("run_id", manifest.RunID).Logger()

	c, closeClient, err := a.newClient(ctx)
	if err != nil {
		return err
	}
	defer closeClient()

	observers := pagination.Observers{pagination.NewLogObserver()}
	if !opts.noProgress {
		total := int64(opts.limit)
		if opts.limit == 0 {
			total = -1
			if count, err := c.Count(ctx, ""); err != nil {
				logger.Warn().Err(err).Msg("Row count probe failed")
			} else if count.Known {
				total = count.Value
			}
		}
		observers = append(observers, newProgressObserver(cmd.ErrOrStderr(), total))
	}

	fetcher := pagination.NewBulkFetcher(c, pagination.Config{Timeout: a.cfg.API.Timeout}, observers)

	var ds *dataset.Dataset
	if opts.limit > 0 {
		manifest.Mode = pagination.ModeLimited
		ds, err = fetcher.FetchLimited(ctx, "", opts.limit)
	} else {
		manifest.Mode = pagination.ModeAll
		ds, err = fetcher.FetchAll(ctx, "", a.cfg.API.PageSize)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Fetch failed")
		return err
	}

	store := persist.NewStore(a.fs, a.now)
	path, err := store.Save(ds, outDir)
	if err != nil {
		return err
	}

	manifest.Records = ds.Len()
	manifest.Columns = ds.Columns()
	manifest.Output = path
	manifest.FinishedAt = a.now().UTC()
	manifestPath, err := persist.WriteManifest(a.fs, manifest)
	if err != nil {
		return err
	}

	if opts.sqlitePath != "" {
		if err := persist.ExportSQLite(ctx, ds, opts.sqlitePath, sqliteTable); err != nil {
			return err
		}
	}

	if opts.archiveDir != "" {
		if err := a.archive(ctx, opts.archiveDir, path, manifestPath); err != nil {
			return err
		}
	}

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d records to %s\n", ds.Len(), path)
	return nil
}

// archive uploads the written files to a filesystem-backed bucket.
func (a *app) archive(ctx context.Context, dir string, paths ...string) error {
	bkt, err := filesystem.NewBucket(dir)
	if err != nil {
		return fmt.Errorf("open archive bucket: %w", err)
	}
	defer bkt.Close()

	for _, p := range paths {
		if _, err := persist.Archive(ctx, bkt, a.fs, p); err != nil {
			return err
		}
	}
	return nil
}
