// Package prep cleans a fetched dataset and splits it for model training.
package prep

import (
	"fmt"
	"math"
	"slices"

	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
	"github.com/rs/zerolog/log"
)

// Shuffler randomizes the order of n elements.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Splits holds the three partitions of a dataset.
type Splits struct {
	Train      *dataset.Dataset
	Validation *dataset.Dataset
	Test       *dataset.Dataset
}

// missing reports whether rec has no usable value for key.
func missing(rec dataset.Record, key string) bool {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}

// DropSparseColumns removes columns whose share of missing values is
// strictly greater than threshold and returns their names in column order.
func DropSparseColumns(ds *dataset.Dataset, threshold float64) []string {
	n := ds.Len()
	if n == 0 {
		return nil
	}

	var dropped []string
	for _, col := range ds.Columns() {
		gaps := 0
		for _, rec := range ds.Records {
			if missing(rec, col) {
				gaps++
			}
		}
		if float64(gaps)/float64(n) > threshold {
			dropped = append(dropped, col)
		}
	}

	if len(dropped) > 0 {
		ds.DropColumns(dropped...)
		log.Info().
			Str("component", "prep").
			Strs("columns", dropped).
			Float64("threshold", threshold).
			Msg("Dropped sparse columns")
	}
	return dropped
}

// FilterOutliersIQR keeps records whose numeric field lies within
// [Q1 - k*IQR, Q3 + k*IQR]. Records without a numeric value are removed.
// It returns the filtered dataset and the number of removed records.
func FilterOutliersIQR(ds *dataset.Dataset, field string, k float64) (*dataset.Dataset, int, error) {
	if k <= 0 {
		return nil, 0, fmt.Errorf("iqr multiplier must be > 0 (got %v)", k)
	}
	if !ds.HasColumn(field) {
		return nil, 0, fmt.Errorf("column %q not found", field)
	}

	values := make([]float64, 0, ds.Len())
	for _, rec := range ds.Records {
		if v, ok := rec.Float(field); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return ds.Filter(func(dataset.Record) bool { return false }), ds.Len(), nil
	}

	slices.Sort(values)
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr := q3 - q1
	lower, upper := q1-k*iqr, q3+k*iqr

	out := ds.Filter(func(rec dataset.Record) bool {
		v, ok := rec.Float(field)
		return ok && v >= lower && v <= upper
	})
	removed := ds.Len() - out.Len()

	log.Info().
		Str("component", "prep").
		Str("field", field).
		Float64("lower", lower).
		Float64("upper", upper).
		Int("removed", removed).
		Msg("Filtered outliers")
	return out, removed, nil
}

// Quantile returns the q-quantile of sorted values with linear
// interpolation between closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Split shuffles the records with rng and partitions them. The test and
// validation sizes are fractions of the dataset, rounded to whole records;
// the training set receives the rest.
func Split(ds *dataset.Dataset, test, validation float64, rng Shuffler) (Splits, error) {
	if test < 0 || validation < 0 || test+validation >= 1 {
		return Splits{}, fmt.Errorf("invalid split sizes test=%v validation=%v", test, validation)
	}

	n := ds.Len()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nTest := int(math.Round(float64(n) * test))
	nVal := int(math.Round(float64(n) * validation))
	if nTest+nVal > n {
		nVal = n - nTest
	}

	return Splits{
		Test:       ds.Select(idx[:nTest]),
		Validation: ds.Select(idx[nTest : nTest+nVal]),
		Train:      ds.Select(idx[nTest+nVal:]),
	}, nil
}
