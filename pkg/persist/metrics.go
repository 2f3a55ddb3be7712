package persist

import (
	"github.com/Sternrassler/assessment-parcels/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Output formats, used as the format label.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

var recordsSaved = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
	Name: "assessments_records_saved_total",
	Help: "Total records written by output format",
}, []string{"format"})
