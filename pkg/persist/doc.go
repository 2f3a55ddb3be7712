// Package persist writes fetched datasets to disk and reads them back.
//
// The primary format is a timestamped UTF-8 CSV written through an
// afero.Fs. A run manifest is stored next to each CSV. Datasets can also
// be exported to a SQLite table and archived to an object-store bucket.
package persist
