package integration

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/assessment-parcels/internal/testutil"
	"github.com/Sternrassler/assessment-parcels/pkg/cache"
	"github.com/Sternrassler/assessment-parcels/pkg/client"
	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
	"github.com/Sternrassler/assessment-parcels/pkg/pagination"
	"github.com/Sternrassler/assessment-parcels/pkg/persist"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Redis container unavailable: %v", err)
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})
	return redisClient
}

func newClient(t *testing.T, baseURL string, manager *cache.Manager) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(baseURL, "IntegrationTest/1.0.0")
	cfg.Cache = manager
	c, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func fetchAll(t *testing.T, c *client.Client, pageSize int) *dataset.Dataset {
	t.Helper()

	fetcher := pagination.NewBulkFetcher(c, pagination.DefaultConfig(), nil)
	ds, err := fetcher.FetchAll(context.Background(), "", pageSize)
	require.NoError(t, err)
	return ds
}

// TestCachedFetch_FreshEntriesSkipNetwork runs the same fetch twice; the
// second run is answered from Redis.
func TestCachedFetch_FreshEntriesSkipNetwork(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockSocrata(testutil.GenerateParcels(25))
	defer mock.Close()

	c := newClient(t, mock.URL(), cache.NewManager(redisClient, 10*time.Minute))

	first := fetchAll(t, c, 10)
	assert.Equal(t, 25, first.Len())
	assert.Equal(t, 3, mock.GetRequestCount())

	mock.Reset()
	second := fetchAll(t, c, 10)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, 0, mock.GetRequestCount(), "fresh pages come from the cache")
}

// TestCachedFetch_StaleEntriesRevalidate expires every page immediately so
// the second run revalidates each page with If-None-Match.
func TestCachedFetch_StaleEntriesRevalidate(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockSocrata(testutil.GenerateParcels(25))
	defer mock.Close()
	mock.SetETag(`"v1"`)

	c := newClient(t, mock.URL(), cache.NewManager(redisClient, time.Millisecond))

	first := fetchAll(t, c, 10)
	assert.Equal(t, 0, mock.GetConditionalCount())

	time.Sleep(5 * time.Millisecond)
	mock.Reset()

	second := fetchAll(t, c, 10)
	assert.Equal(t, first.Columns(), second.Columns())
	assert.Equal(t, 25, second.Len())
	assert.Equal(t, 3, mock.GetRequestCount())
	assert.Equal(t, 3, mock.GetConditionalCount(), "every page is revalidated")
}

// TestCachedFetch_ErrorsAreNotCached checks that a failed page does not
// poison the cache.
func TestCachedFetch_ErrorsAreNotCached(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockSocrata(testutil.GenerateParcels(5))
	defer mock.Close()
	mock.FailRequest(1, testutil.NewServerErrorResponse())

	c := newClient(t, mock.URL(), cache.NewManager(redisClient, 10*time.Minute))

	fetcher := pagination.NewBulkFetcher(c, pagination.DefaultConfig(), nil)
	_, err := fetcher.FetchAll(context.Background(), "", 10)
	require.ErrorIs(t, err, client.ErrTransport)

	ds := fetchAll(t, c, 10)
	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, 2, mock.GetRequestCount())
}

// TestFetchSaveLoad covers the fetch → CSV → load path without a cache.
func TestFetchSaveLoad(t *testing.T) {
	mock := testutil.NewMockSocrata(testutil.GenerateParcels(120))
	defer mock.Close()

	c := newClient(t, mock.URL(), nil)
	ds := fetchAll(t, c, 50)
	require.Equal(t, 120, ds.Len())

	fs := afero.NewMemMapFs()
	store := persist.NewStore(fs, func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) })
	path, err := store.Save(ds, "raw")
	require.NoError(t, err)
	assert.Equal(t, "raw/Assessment_Parcels_20240102_030405.csv", path)

	loaded, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ds.Columns(), loaded.Columns())
	require.Equal(t, ds.Len(), loaded.Len())
	for i := range ds.Records {
		assert.Equal(t, ds.Records[i].Text("roll_number"), loaded.Records[i].Text("roll_number"))
	}
}
