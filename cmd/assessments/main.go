// Command assessments fetches municipal property-assessment records from
// an open-data API and prepares them for model training.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Sternrassler/assessment-parcels/pkg/cache"
	"github.com/Sternrassler/assessment-parcels/pkg/client"
	"github.com/Sternrassler/assessment-parcels/pkg/config"
	"github.com/Sternrassler/assessment-parcels/pkg/logging"
	"github.com/Sternrassler/assessment-parcels/pkg/reproducibility"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func main() {
	a := &app{
		fs:  afero.NewOsFs(),
		now: time.Now,
	}
	if err := newRootCommand(a).Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by all subcommands.
type app struct {
	fs  afero.Fs
	now func() time.Time

	configPath string
	logLevel   string
	pretty     bool

	cfg config.Config
	rng *reproducibility.Source
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "assessments",
		Short: "Fetch and prepare municipal property assessment data",
		Long: `assessments downloads the property assessment parcels published on a
Socrata open-data portal, stores them as CSV and prepares train/validation/test
splits for baseline regression models.

Configuration is read from defaults, an optional YAML file (--config) and
ASSESSMENTS_* environment variables, e.g. ASSESSMENTS_API_PAGE_SIZE=1000.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&a.pretty, "pretty", false, "human-readable console logs")

	root.AddCommand(
		newFetchCommand(a),
		newInfoCommand(a),
		newPrepareCommand(a),
		newConfigCommand(a),
		newEnvCommand(a),
	)
	return root
}

// setup loads the configuration, installs the logger and seeds the RNG.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Log.Pretty = a.pretty
	}
	a.cfg = cfg

	logging.Setup(logging.Config{
		Level:   logging.LogLevel(cfg.Log.Level),
		Pretty:  cfg.Log.Pretty,
		Output:  cmd.ErrOrStderr(),
		Service: "assessments",
	})

	a.rng = reproducibility.NewSource(uint64(cfg.Seed))
	reproducibility.SeedAll(uint64(cfg.Seed), a.rng)
	return nil
}

// newClient builds the API client, with the Redis page cache when enabled.
// The returned function releases the client and its cache connection.
func (a *app) newClient(ctx context.Context) (*client.Client, func(), error) {
	cfg := client.DefaultConfig(a.cfg.Endpoint(), a.cfg.API.UserAgent)
	cfg.AppToken = a.cfg.API.AppToken
	cfg.Timeout = a.cfg.API.Timeout

	var redisClient *redis.Client
	if a.cfg.Cache.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: a.cfg.Cache.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.Cache.RedisAddr, err)
		}
		cfg.Cache = cache.NewManager(redisClient, a.cfg.Cache.TTL)
		log.Info().Str("redis", a.cfg.Cache.RedisAddr).Msg("Page cache enabled")
	}

	c, err := client.New(cfg)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, nil, err
	}

	return c, func() {
		c.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}, nil
}
