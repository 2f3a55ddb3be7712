package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	_ "modernc.org/sqlite"
)

// ExportSQLite writes ds into table in the SQLite database at dbPath.
// The table is recreated with one TEXT column per dataset column and all
// rows are inserted in a single transaction.
func ExportSQLite(ctx context.Context, ds *dataset.Dataset, dbPath, table string) (err error) {
	if table == "" {
		return fmt.Errorf("table name is required")
	}
	columns := ds.Columns()
	if len(columns) == 0 {
		return fmt.Errorf("dataset has no columns")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		err = multierr.Append(err, conn.Close())
	}()
	conn.SetMaxOpenConns(1)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	quoted := make([]string, len(columns))
	defs := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		defs[i] = quoted[i] + " TEXT"
		marks[i] = "?"
	}
	name := quoteIdent(table)

	stmts := []string{
		"DROP TABLE IF EXISTS " + name,
		fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", ")),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("prepare table %s: %w", table, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	args := make([]any, len(columns))
	for n, rec := range ds.Records {
		for i, c := range columns {
			v, ok := rec.Get(c)
			if !ok || v == nil {
				args[i] = nil
				continue
			}
			args[i] = dataset.FormatValue(v)
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	recordsSaved.WithLabelValues(FormatSQLite).Add(float64(ds.Len()))
	log.Info().
		Str("component", "persist").
		Str("path", dbPath).
		Str("table", table).
		Int("records", ds.Len()).
		Msg("Dataset exported to SQLite")
	return nil
}

// quoteIdent quotes a SQLite identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
