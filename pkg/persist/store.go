package persist

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// filePrefix and timeLayout form the CSV file name.
const (
	filePrefix = "Assessment_Parcels_"
	timeLayout = "20060102_150405"
)

// Store saves datasets as CSV files on a filesystem.
type Store struct {
	fs     afero.Fs
	now    func() time.Time
	logger zerolog.Logger
}

// NewStore creates a store. A nil clock means time.Now.
func NewStore(fs afero.Fs, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		fs:     fs,
		now:    clock,
		logger: log.With().Str("component", "persist").Logger(),
	}
}

// Fs returns the store's filesystem.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// FileName returns the CSV file name for a run started at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timeLayout) + ".csv"
}

// Save writes ds to a new timestamped CSV in dir, creating dir if needed,
// and returns the file path. A file written in the same second is
// overwritten.
func (s *Store) Save(ds *dataset.Dataset, dir string) (string, error) {
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(s.now()))
	if err := s.writeFile(path, ds); err != nil {
		return "", err
	}

	ev := s.logger.Info().Str("path", path).Int("records", ds.Len())
	if info, err := s.fs.Stat(path); err == nil {
		ev = ev.Str("size", humanize.Bytes(uint64(info.Size())))
	}
	ev.Msg("Dataset saved")

	recordsSaved.WithLabelValues(FormatCSV).Add(float64(ds.Len()))
	return path, nil
}

// SaveAs writes ds to an explicit path, creating parent directories.
func (s *Store) SaveAs(ds *dataset.Dataset, path string) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := s.writeFile(path, ds); err != nil {
		return err
	}
	recordsSaved.WithLabelValues(FormatCSV).Add(float64(ds.Len()))
	return nil
}

func (s *Store) writeFile(path string, ds *dataset.Dataset) (err error) {
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if err := WriteCSV(f, ds); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes a header of ds.Columns() and one row per record.
// Missing keys and nil values become empty cells.
func WriteCSV(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	columns := ds.Columns()
	if err := cw.Write(columns); err != nil {
		return err
	}

	row := make([]string, len(columns))
	for _, rec := range ds.Records {
		for i, col := range columns {
			v, _ := rec.Get(col)
			row[i] = dataset.FormatValue(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Load reads a CSV written by Save. All values come back as strings;
// empty cells are kept as empty strings.
func (s *Store) Load(path string) (*dataset.Dataset, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV decodes a CSV with a header row into a dataset.
func ReadCSV(r io.Reader) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return dataset.New(), nil
	}
	if err != nil {
		return nil, err
	}

	ds := dataset.New()
	ds.SetColumns(header)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var rec dataset.Record
		for i, col := range header {
			rec.Set(col, row[i])
		}
		ds.Append(dataset.Batch{rec})
	}
	return ds, nil
}
