// Package cache stores raw page responses from the open-data API in Redis
// so that repeated runs against an unchanged dataset can be answered
// locally or revalidated with a conditional request.
//
// A stored entry is fresh until its Expires time. After that it stays in
// Redis for a stale window during which the client revalidates it with
// If-None-Match / If-Modified-Since; a 304 answer refreshes the entry
// without transferring the page again.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, 10*time.Minute)
//
//	key := cache.KeyForRequest(req)
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch and store with manager.Set(ctx, key, cache.ResponseToEntry(resp, manager.TTL()))
//	case entry.IsExpired() && cache.ShouldMakeConditionalRequest(entry):
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - assessments_cache_hits_total{state="fresh|stale"}
//   - assessments_cache_misses_total
//   - assessments_cache_size_bytes
//   - assessments_304_responses_total
//   - assessments_cache_errors_total{operation}
//
// The cache never changes what a fetch returns: a cached page is byte for
// byte the body the server produced for the same query.
package cache
