package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Batch is the ordered set of records returned by a single page request.
type Batch []Record

// DecodeBatch parses a JSON array of objects.
// A JSON null decodes to an empty batch.
func DecodeBatch(r io.Reader) (Batch, error) {
	var batch Batch
	dec := json.NewDecoder(r)
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode batch: trailing data after array")
	}
	return batch, nil
}

// DecodeBatchBytes is DecodeBatch over an in-memory payload.
func DecodeBatchBytes(data []byte) (Batch, error) {
	return DecodeBatch(bytes.NewReader(data))
}

// Dataset is the concatenation of batches in fetch order.
// Records are never deduplicated.
type Dataset struct {
	Records []Record

	columns []string
	seen    map[string]struct{}
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{seen: make(map[string]struct{})}
}

// FromRecords builds a dataset from records in order.
func FromRecords(records ...Record) *Dataset {
	ds := New()
	ds.Append(records)
	return ds
}

// Append adds a batch and extends the column set with any unseen keys.
func (d *Dataset) Append(batch Batch) {
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	for _, rec := range batch {
		for _, key := range rec.keys {
			if _, ok := d.seen[key]; ok {
				continue
			}
			d.seen[key] = struct{}{}
			d.columns = append(d.columns, key)
		}
		d.Records = append(d.Records, rec)
	}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Columns returns the union of record keys in first-seen order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// HasColumn reports whether any record carries the given key.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.seen[name]
	return ok
}

// SetColumns replaces the column order, e.g. with a CSV header.
func (d *Dataset) SetColumns(names []string) {
	d.columns = append([]string(nil), names...)
	d.seen = make(map[string]struct{}, len(names))
	for _, n := range names {
		d.seen[n] = struct{}{}
	}
}

// DropColumns removes the named columns from the dataset and every record.
// Records are modified in place.
func (d *Dataset) DropColumns(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
		delete(d.seen, n)
	}

	kept := d.columns[:0:0]
	for _, c := range d.columns {
		if _, ok := drop[c]; !ok {
			kept = append(kept, c)
		}
	}
	d.columns = kept

	for i := range d.Records {
		for _, n := range names {
			d.Records[i].Delete(n)
		}
	}
}

// Filter returns a dataset holding copies of the records for which keep is
// true. The column order is preserved.
func (d *Dataset) Filter(keep func(Record) bool) *Dataset {
	out := d.emptyLike()
	for _, rec := range d.Records {
		if keep(rec) {
			out.Records = append(out.Records, rec.Clone())
		}
	}
	return out
}

// Select returns a dataset with copies of the records at the given indexes,
// in the order given.
func (d *Dataset) Select(indexes []int) *Dataset {
	out := d.emptyLike()
	out.Records = make([]Record, 0, len(indexes))
	for _, i := range indexes {
		out.Records = append(out.Records, d.Records[i].Clone())
	}
	return out
}

func (d *Dataset) emptyLike() *Dataset {
	out := New()
	out.SetColumns(d.columns)
	return out
}
