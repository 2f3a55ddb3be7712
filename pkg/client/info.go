package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
)

// countExpr is the SoQL aggregate used by the row-count probe.
const countExpr = "COUNT(*)"

// Count is a row count that may be unknown.
type Count struct {
	Value int64
	Known bool
}

// KnownCount wraps a known row count.
func KnownCount(n int64) Count {
	return Count{Value: n, Known: true}
}

// String returns the count, or "Unknown".
func (c Count) String() string {
	if !c.Known {
		return "Unknown"
	}
	return strconv.FormatInt(c.Value, 10)
}

// MarshalJSON writes a number, or the string "Unknown".
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Known {
		return json.Marshal("Unknown")
	}
	return json.Marshal(c.Value)
}

// Info describes a remote dataset.
type Info struct {
	Endpoint     string         `json:"endpoint"`
	TotalRecords Count          `json:"total_records"`
	Columns      []string       `json:"columns"`
	Sample       dataset.Record `json:"sample"`
}

// DatasetInfo fetches one sample record for the column list and probes the
// row count. A failing sample request is returned as an error; a failing
// count probe is logged and reported as an unknown count.
func (c *Client) DatasetInfo(ctx context.Context, endpoint string) (*Info, error) {
	if endpoint == "" {
		endpoint = c.config.BaseURL
	}
	c.logger.Info().Str("endpoint", endpoint).Msg("Fetching dataset information")

	sample, err := c.Query(ctx, endpoint, url.Values{ParamLimit: {"1"}})
	if err != nil {
		return nil, fmt.Errorf("fetch sample record: %w", err)
	}

	info := &Info{Endpoint: endpoint, Columns: []string{}}
	if len(sample) > 0 {
		info.Sample = sample[0]
		info.Columns = sample[0].Keys()
	}

	total, err := c.Count(ctx, endpoint)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Row count probe failed")
		total = Count{}
	}
	info.TotalRecords = total

	return info, nil
}

// Count runs the COUNT(*) probe. An empty answer is an unknown count, not
// an error.
func (c *Client) Count(ctx context.Context, endpoint string) (Count, error) {
	batch, err := c.Query(ctx, endpoint, url.Values{ParamSelect: {countExpr}})
	if err != nil {
		return Count{}, err
	}
	if len(batch) == 0 {
		return Count{}, nil
	}

	row := batch[0]
	for _, key := range row.Keys() {
		if !isCountField(key) {
			continue
		}
		text := row.Text(key)
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Count{}, fmt.Errorf("parse count %q: %w", text, err)
		}
		return KnownCount(n), nil
	}
	return Count{}, fmt.Errorf("count field missing from %v", row.Keys())
}

// isCountField matches the column names Socrata uses for COUNT(*).
func isCountField(name string) bool {
	name = strings.ToLower(name)
	return name == "count" || strings.HasPrefix(name, "count_")
}
