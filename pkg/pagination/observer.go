package pagination

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PageEvent describes one completed page request.
type PageEvent struct {
	Page    int // 1-based request number
	Offset  int
	Records int // records in this page
	Total   int // records accumulated so far
}

// Summary describes a completed fetch run.
type Summary struct {
	Mode     string
	Pages    int
	Records  int
	Duration time.Duration
}

// Observer receives progress notifications from a BulkFetcher.
// Calls happen on the fetching goroutine.
type Observer interface {
	PageFetched(PageEvent)
	FetchCompleted(Summary)
}

// LogObserver logs progress with zerolog.
type LogObserver struct {
	logger zerolog.Logger

	// Every controls how often page progress is logged at info level.
	// Other pages are logged at debug.
	Every int
}

// NewLogObserver creates a LogObserver logging every 10th page at info.
func NewLogObserver() *LogObserver {
	return &LogObserver{
		logger: log.With().Str("component", "bulk-fetcher").Logger(),
		Every:  10,
	}
}

// PageFetched implements Observer.
func (o *LogObserver) PageFetched(e PageEvent) {
	ev := o.logger.Debug()
	if o.Every > 0 && e.Page%o.Every == 0 {
		ev = o.logger.Info()
	}
	ev.Int("page", e.Page).
		Int("offset", e.Offset).
		Int("records", e.Records).
		Int("total", e.Total).
		Msg("Fetch progress")
}

// FetchCompleted implements Observer.
func (o *LogObserver) FetchCompleted(s Summary) {
	o.logger.Info().
		Str("mode", s.Mode).
		Int("pages", s.Pages).
		Int("records", s.Records).
		Dur("duration", s.Duration).
		Msg("Fetch complete")
}

// Observers fans notifications out to several observers in order.
type Observers []Observer

// PageFetched implements Observer.
func (obs Observers) PageFetched(e PageEvent) {
	for _, o := range obs {
		o.PageFetched(e)
	}
}

// FetchCompleted implements Observer.
func (obs Observers) FetchCompleted(s Summary) {
	for _, o := range obs {
		o.FetchCompleted(s)
	}
}
