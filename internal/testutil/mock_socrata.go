// Package testutil provides a mock open-data API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// DatasetPath is the resource path served by MockSocrata.
const DatasetPath = "/resource/test-parcels.json"

// defaultLimit mirrors Socrata's page size when $limit is absent.
const defaultLimit = 1000

// MockResponse is a canned answer for an injected failure.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockSocrata serves a fixed slice of records with $limit/$offset paging
// and $select=COUNT(*) support.
type MockSocrata struct {
	server  *httptest.Server
	mu      sync.RWMutex
	records []map[string]any

	failures  map[int]MockResponse
	countFail *MockResponse
	etag      string

	// Tracking
	RequestCount     int
	ConditionalCount int
	queries          []url.Values
	LastHeader       http.Header
}

// NewMockSocrata starts a server holding the given records.
func NewMockSocrata(records []map[string]any) *MockSocrata {
	mock := &MockSocrata{
		records:  records,
		failures: make(map[int]MockResponse),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the dataset resource URL.
func (m *MockSocrata) URL() string {
	return m.server.URL + DatasetPath
}

// Server returns the underlying test server.
func (m *MockSocrata) Server() *httptest.Server {
	return m.server
}

// Close shuts down the mock server.
func (m *MockSocrata) Close() {
	m.server.Close()
}

// Reset clears the tracking counters. Injected failures are kept.
func (m *MockSocrata) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.queries = nil
	m.LastHeader = nil
}

// FailRequest makes the n-th request (1-based, counting every request)
// answer with resp.
func (m *MockSocrata) FailRequest(n int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[n] = resp
}

// FailCount makes every COUNT(*) probe answer with resp.
func (m *MockSocrata) FailCount(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countFail = &resp
}

// SetETag enables ETag validation: requests carrying a matching
// If-None-Match get 304.
func (m *MockSocrata) SetETag(etag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.etag = etag
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSocrata) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockSocrata) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// Queries returns the query parameters of every request in order.
func (m *MockSocrata) Queries() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.queries))
	copy(out, m.queries)
	return out
}

func (m *MockSocrata) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	n := m.RequestCount
	m.LastHeader = r.Header.Clone()
	m.queries = append(m.queries, r.URL.Query())
	conditional := r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != ""
	if conditional {
		m.ConditionalCount++
	}
	failure, failed := m.failures[n]
	countFail := m.countFail
	etag := m.etag
	records := m.records
	m.mu.Unlock()

	if r.URL.Path != DatasetPath {
		writeJSON(w, http.StatusNotFound, `{"code":"not_found","error":true,"message":"Resource not found"}`, nil)
		return
	}

	if failed {
		writeJSON(w, failure.StatusCode, failure.Body, failure.Headers)
		return
	}

	q := r.URL.Query()
	if sel := q.Get("$select"); strings.Contains(strings.ToUpper(sel), "COUNT(*)") {
		if countFail != nil {
			writeJSON(w, countFail.StatusCode, countFail.Body, countFail.Headers)
			return
		}
		writeJSON(w, http.StatusOK, fmt.Sprintf(`[{"COUNT":"%d"}]`, len(records)), nil)
		return
	}

	limit, err := intParam(q, "$limit", defaultLimit)
	if err != nil || limit < 0 {
		writeJSON(w, http.StatusBadRequest, `{"code":"query.soql.invalid","error":true,"message":"Invalid $limit"}`, nil)
		return
	}
	offset, err := intParam(q, "$offset", 0)
	if err != nil || offset < 0 {
		writeJSON(w, http.StatusBadRequest, `{"code":"query.soql.invalid","error":true,"message":"Invalid $offset"}`, nil)
		return
	}

	if etag != "" {
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	start := min(offset, len(records))
	end := min(start+limit, len(records))
	page := records[start:end]
	if page == nil {
		page = []map[string]any{}
	}

	body, err := json.Marshal(page)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, string(body), nil)
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, body string, headers map[string]string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(status)
	if body != "" {
		w.Write([]byte(body))
	}
}

// GenerateParcels builds n assessment-like records with stable values.
func GenerateParcels(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{
			"roll_number":          fmt.Sprintf("%08d", 10000000+i),
			"full_address":         fmt.Sprintf("%d MAIN ST", 100+i),
			"total_living_area":    strconv.Itoa(800 + (i*37)%1600),
			"assessed_land_area":   strconv.Itoa(3000 + (i*53)%5000),
			"total_assessed_value": strconv.Itoa(150000 + (i*7919)%400000),
		}
	}
	return records
}

// NewServerErrorResponse creates a 500 answer.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"code":"internal","error":true,"message":"Internal error"}`,
	}
}

// NewThrottledResponse creates a 429 answer.
func NewThrottledResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"code":"throttled","error":true,"message":"Too many requests"}`,
		Headers:    map[string]string{"Retry-After": "30"},
	}
}

// NewMalformedResponse creates a 200 answer whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `[{"roll_number": "1"`,
	}
}
