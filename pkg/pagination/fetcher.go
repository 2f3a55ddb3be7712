package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
	"github.com/Sternrassler/assessment-parcels/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetch modes, used as the mode label of the duration metric.
const (
	ModeAll     = "all"
	ModeLimited = "limited"
)

var (
	pagesFetched = promauto.With(metrics.Registry).NewCounter(prometheus.CounterOpts{
		Name: "assessments_pages_fetched_total",
		Help: "Total pages fetched by the bulk fetcher",
	})

	recordsFetched = promauto.With(metrics.Registry).NewCounter(prometheus.CounterOpts{
		Name: "assessments_records_fetched_total",
		Help: "Total records fetched by the bulk fetcher",
	})

	fetchDuration = promauto.With(metrics.Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assessments_fetch_duration_seconds",
		Help:    "Duration of complete fetch runs in seconds by mode",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"mode"})
)

// Config holds bulk fetcher configuration.
type Config struct {
	// Timeout bounds each page request.
	Timeout time.Duration
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}

// PageFetcher is implemented by the API client for single-page requests.
type PageFetcher interface {
	// FetchPage requests up to limit records starting at offset.
	// An empty endpoint means the fetcher's configured dataset.
	FetchPage(ctx context.Context, endpoint string, limit, offset int) (dataset.Batch, error)
}

// BulkFetcher accumulates a dataset page by page.
type BulkFetcher struct {
	fetcher  PageFetcher
	config   Config
	observer Observer
	logger   zerolog.Logger
}

// NewBulkFetcher creates a fetcher. A nil observer logs progress.
func NewBulkFetcher(fetcher PageFetcher, config Config, observer Observer) *BulkFetcher {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if observer == nil {
		observer = NewLogObserver()
	}

	return &BulkFetcher{
		fetcher:  fetcher,
		config:   config,
		observer: observer,
		logger:   log.With().Str("component", "bulk-fetcher").Logger(),
	}
}

// FetchAll pages through endpoint until a page comes back empty or short.
// Any page error aborts the run; no records are returned with an error.
func (bf *BulkFetcher) FetchAll(ctx context.Context, endpoint string, pageSize int) (*dataset.Dataset, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be > 0 (got %d)", pageSize)
	}

	start := time.Now()
	ds := dataset.New()
	offset := 0
	pages := 0

	bf.logger.Info().
		Str("endpoint", endpoint).
		Int("limit", pageSize).
		Msg("Starting paged fetch")

	for {
		batch, err := bf.fetchPage(ctx, endpoint, pageSize, offset)
		if err != nil {
			bf.logger.Error().
				Err(err).
				Int("offset", offset).
				Int("discarded", ds.Len()).
				Msg("Page fetch failed - aborting")
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		pages++

		if len(batch) == 0 {
			bf.observer.PageFetched(PageEvent{Page: pages, Offset: offset, Total: ds.Len()})
			break
		}

		ds.Append(batch)
		offset += len(batch)
		bf.observer.PageFetched(PageEvent{Page: pages, Offset: offset - len(batch), Records: len(batch), Total: ds.Len()})

		if len(batch) < pageSize {
			break
		}
	}

	elapsed := time.Since(start)
	fetchDuration.WithLabelValues(ModeAll).Observe(elapsed.Seconds())
	bf.observer.FetchCompleted(Summary{Mode: ModeAll, Pages: pages, Records: ds.Len(), Duration: elapsed})
	return ds, nil
}

// FetchLimited issues a single request for at most limit records.
func (bf *BulkFetcher) FetchLimited(ctx context.Context, endpoint string, limit int) (*dataset.Dataset, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0 (got %d)", limit)
	}

	start := time.Now()
	batch, err := bf.fetchPage(ctx, endpoint, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch limited page: %w", err)
	}

	ds := dataset.New()
	ds.Append(batch)
	bf.observer.PageFetched(PageEvent{Page: 1, Records: len(batch), Total: ds.Len()})

	elapsed := time.Since(start)
	fetchDuration.WithLabelValues(ModeLimited).Observe(elapsed.Seconds())
	bf.observer.FetchCompleted(Summary{Mode: ModeLimited, Pages: 1, Records: ds.Len(), Duration: elapsed})
	return ds, nil
}

// fetchPage runs one request under the per-page timeout.
func (bf *BulkFetcher) fetchPage(ctx context.Context, endpoint string, limit, offset int) (dataset.Batch, error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	batch, err := bf.fetcher.FetchPage(pageCtx, endpoint, limit, offset)
	if err != nil {
		return nil, err
	}

	pagesFetched.Inc()
	recordsFetched.Add(float64(len(batch)))
	return batch, nil
}
