// Package pagination fetches a complete dataset from an offset-paged
// open-data endpoint.
//
// Socrata-style APIs never report how many pages exist. The fetcher walks
// the dataset with $limit/$offset and stops on the first page that comes
// back empty or shorter than the page size:
//
//	fetcher := pagination.NewBulkFetcher(apiClient, pagination.DefaultConfig(), nil)
//	ds, err := fetcher.FetchAll(ctx, "", 50000)
//
// The loop is strictly sequential. A failed page aborts the run and the
// records gathered so far are discarded; there is no retry and no resume.
// A dataset whose size is an exact multiple of the page size costs one
// extra request that returns an empty page.
//
// Progress is reported to an Observer after every page. LogObserver logs
// through zerolog; the CLI plugs in a progress bar.
package pagination
