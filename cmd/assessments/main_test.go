package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/assessment-parcels/internal/testutil"
	"github.com/Sternrassler/assessment-parcels/pkg/persist"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestApp() *app {
	return &app{
		fs:  afero.NewMemMapFs(),
		now: func() time.Time { return fixedTime },
	}
}

// run executes the CLI with args and returns stdout and stderr.
func run(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// useMock points the configuration at mock with the given page size.
func useMock(t *testing.T, mock *testutil.MockSocrata, pageSize string) {
	t.Setenv("ASSESSMENTS_API_BASE_URL", mock.URL())
	t.Setenv("ASSESSMENTS_API_PAGE_SIZE", pageSize)
	t.Setenv("ASSESSMENTS_API_TIMEOUT", "5s")
}

func countLines(t *testing.T, fs afero.Fs, path string) int {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return len(strings.Split(strings.TrimRight(string(data), "\n"), "\n"))
}

func TestFetch_All(t *testing.T) {
	mock := testutil.NewMockSocrata(testutil.GenerateParcels(25))
	defer mock.Close()
	useMock(t, mock, "10")

	a := newTestApp()
	stdout, _, err := run(t, a, "fetch", "--no-progress")
	require.NoError(t, err)

	path := filepath.Join("data", "raw", "Assessment_Parcels_20240501_093000.csv")
	assert.Contains(t, stdout, "Saved 25 records to "+path)
	assert.Equal(t, 26, countLines(t, a.fs, path))
	assert.Equal(t, 3, mock.GetRequestCount())

	m, err := persist.ReadManifest(a.fs, persist.ManifestPath(path))
	require.NoError(t, err)
	assert.Equal(t, 25, m.Records)
	assert.Equal(t, "all", m.Mode)
	assert.Equal(t, mock.URL(), m.Endpoint)
	assert.NotEmpty(t, m.ConfigFingerprint)
}

func TestFetch_ProgressUsesCountProbe(t *testing.T) {
	mock := testutil.NewMockSocrata(testutil.GenerateParcels(25))
	defer mock.Close()
	useMock(t, mock, "10")

	_, _, err := run(t, newTestApp(), "fetch")
	require.NoError(t, err)

	queries := mock.Queries()
	require.Len(t, queries, 4)
	assert.Equal(t, "COUNT(*)", queries[0].Get("$select"))
}

func TestFetch_Limit(t *testing.T) {
	mock := testutil.NewMockSocrata(testutil.GenerateParcels(25))
	defer mock.Close()
	useMock(t, mock, "10")

	a := newTestApp()
	stdout, _, err := run(t, a, "fetch", "--limit", "5", "--out", "tmp", "--no-progress")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Saved 5 records")
	assert.Equal(t, 1, mock.GetRequestCount())
	assert.Equal(t, 6, countLines(t, a.fs, filepath.Join("tmp", "Assessment_Parcels_20240501_093000.csv")))
}

func TestFetch_FailureSavesNothing(t *testing.T) {
	mock := testutil.NewMockSocrata(testutil.GenerateParcels(25))
	defer mock.Close()
	mock.FailRequest(2, testutil.NewServerErrorResponse())
	useMock(t, mock, "10")

	a := newTestApp()
	_, _, err := run(t, a, "fetch", "--no-progress")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Internal error")

	exists, err := afero.DirExists(a.fs, filepath.Join("data", "raw"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFetch_Exports(t *testing.T) {
	mock := testutil.NewMockSocrata(testutil.GenerateParcels(12))
	defer mock.Close()
	useMock(t, mock, "5")

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "parcels.db")
	archiveDir := filepath.Join(dir, "archive")
	metricsPath := filepath.Join(dir, "assessments.prom")

	_, _, err := run(t, newTestApp(), "fetch", "--no-progress",
		"--sqlite", dbPath, "--archive", archiveDir, "--metrics-file", metricsPath)
	require.NoError(t, err)

	assert.FileExists(t, dbPath)
	assert.FileExists(t, filepath.Join(archiveDir, "Assessment_Parcels_20240501_093000.csv"))
	assert.FileExists(t, filepath.Join(archiveDir, "Assessment_Parcels_20240501_093000.csv.manifest.json"))

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "assessments_pages_fetched_total")
	assert.Contains(t, string(prom), `assessments_records_saved_total{format="sqlite"}`)
}

func TestFetch_NegativeLimit(t *testing.T) {
	mock := testutil.NewMockSocrata(nil)
	defer mock.Close()
	useMock(t, mock, "10")

	_, _, err := run(t, newTestApp(), "fetch", "--limit", "-1")
	assert.Error(t, err)
	assert.Equal(t, 0, mock.GetRequestCount())
}

func TestInfo(t *testing.T) {
	mock := testutil.NewMockSocrata(testutil.GenerateParcels(25))
	defer mock.Close()
	useMock(t, mock, "10")

	stdout, _, err := run(t, newTestApp(), "info")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Total records")
	assert.Contains(t, stdout, "25")
	assert.Contains(t, stdout, "total_assessed_value")
	assert.Contains(t, stdout, "10000000")
}

func TestInfo_UnknownCount(t *testing.T) {
	mock := testutil.NewMockSocrata(testutil.GenerateParcels(3))
	defer mock.Close()
	mock.FailCount(testutil.NewThrottledResponse())
	useMock(t, mock, "10")

	stdout, _, err := run(t, newTestApp(), "info")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Unknown")
}

func TestPrepare(t *testing.T) {
	a := newTestApp()

	var csv strings.Builder
	csv.WriteString("roll_number,notes,total_assessed_value\n")
	for i := range 10 {
		notes := ""
		if i == 0 {
			notes = "corner lot"
		}
		csv.WriteString(strings.Join([]string{string(rune('a' + i)), notes, "1" + strings.Repeat("0", 5) + string(rune('0'+i))}, ","))
		csv.WriteString("\n")
	}
	csv.WriteString("k,,99999999\n")
	require.NoError(t, afero.WriteFile(a.fs, "raw.csv", []byte(csv.String()), 0o644))

	stdout, _, err := run(t, a, "prepare", "--in", "raw.csv")
	require.NoError(t, err)

	dir := filepath.Join("data", "processed")
	assert.Equal(t, 7, countLines(t, a.fs, filepath.Join(dir, "train.csv")))
	assert.Equal(t, 3, countLines(t, a.fs, filepath.Join(dir, "validation.csv")))
	assert.Equal(t, 3, countLines(t, a.fs, filepath.Join(dir, "test.csv")))

	header, err := afero.ReadFile(a.fs, filepath.Join(dir, "train.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(header), "roll_number,total_assessed_value\n"), "sparse column dropped")
	assert.Contains(t, stdout, "1 outliers removed, 1 columns dropped")
}

func TestPrepare_RequiresInput(t *testing.T) {
	_, _, err := run(t, newTestApp(), "prepare")
	assert.Error(t, err)
}

func TestConfig(t *testing.T) {
	t.Setenv("ASSESSMENTS_API_PAGE_SIZE", "1234")
	t.Setenv("ASSESSMENTS_API_APP_TOKEN", "secret-token")

	stdout, _, err := run(t, newTestApp(), "config")
	require.NoError(t, err)

	assert.Contains(t, stdout, "page_size: 1234")
	assert.Contains(t, stdout, "# fingerprint: ")
	assert.NotContains(t, stdout, "secret-token")
}

func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 7\nlog:\n  level: debug\n"), 0o644))

	a := newTestApp()
	stdout, _, err := run(t, a, "--config", path, "--log-level", "warn", "config")
	require.NoError(t, err)

	assert.Contains(t, stdout, "seed: 7")
	assert.Equal(t, "warn", a.cfg.Log.Level, "flag overrides file")
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("ASSESSMENTS_API_PAGE_SIZE", "0")

	_, _, err := run(t, newTestApp(), "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.page_size")
}

func TestEnv(t *testing.T) {
	stdout, _, err := run(t, newTestApp(), "env")
	require.NoError(t, err)

	assert.Contains(t, stdout, "github.com/rs/zerolog")
	assert.Contains(t, stdout, "seed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
