package main

import (
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/assessment-parcels/pkg/pagination"
	"github.com/schollz/progressbar/v3"
)

// progressObserver renders fetch progress as a terminal progress bar.
// A negative total shows a spinner.
type progressObserver struct {
	bar *progressbar.ProgressBar
}

func newProgressObserver(w io.Writer, total int64) *progressObserver {
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("fetching records"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
	return &progressObserver{bar: bar}
}

func (p *progressObserver) PageFetched(e pagination.PageEvent) {
	_ = p.bar.Add(e.Records)
}

func (p *progressObserver) FetchCompleted(pagination.Summary) {
	_ = p.bar.Finish()
}
