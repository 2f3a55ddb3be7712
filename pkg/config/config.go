// Package config defines the immutable run configuration shared by the
// fetcher, persistence, and data preparation steps.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL   = "https://data.winnipeg.ca/resource/d4mq-wa44.json"
	DefaultDatasetID = "d4mq-wa44"
	DefaultUserAgent = "assessment-parcels/1.0.0"
	DefaultPageSize  = 50000
	DefaultTimeout   = 30 * time.Second
	DefaultSeed      = 42
)

// Config is the complete run configuration. It is passed by value; nothing
// in this module mutates a Config after Load returns it.
type Config struct {
	API          API        `mapstructure:"api"           yaml:"api"`
	Paths        Paths      `mapstructure:"paths"         yaml:"paths"`
	Processing   Processing `mapstructure:"processing"    yaml:"processing"`
	Models       Models     `mapstructure:"models"        yaml:"models"`
	CV           CV         `mapstructure:"cv"            yaml:"cv"`
	Cache        Cache      `mapstructure:"cache"         yaml:"cache"`
	Log          Log        `mapstructure:"log"           yaml:"log"`
	Seed         int64      `mapstructure:"seed"          yaml:"seed"`
	ModelVersion string     `mapstructure:"model_version" yaml:"model_version"`
}

// API configures the open-data endpoint.
type API struct {
	BaseURL   string        `mapstructure:"base_url"   yaml:"base_url"`
	DatasetID string        `mapstructure:"dataset_id" yaml:"dataset_id"`
	PageSize  int           `mapstructure:"page_size"  yaml:"page_size"`
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	// AppToken is sent as X-App-Token when set.
	AppToken string `mapstructure:"app_token" yaml:"app_token" hash:"ignore"`
}

// Paths lists the on-disk output locations.
type Paths struct {
	RawDir       string `mapstructure:"raw_dir"       yaml:"raw_dir"`
	ProcessedDir string `mapstructure:"processed_dir" yaml:"processed_dir"`
	ModelDir     string `mapstructure:"model_dir"     yaml:"model_dir"`
	ResultsDir   string `mapstructure:"results_dir"   yaml:"results_dir"`
}

// Processing holds the data preparation parameters.
type Processing struct {
	TestSize       float64 `mapstructure:"test_size"       yaml:"test_size"`
	ValidationSize float64 `mapstructure:"validation_size" yaml:"validation_size"`
	// MissingThreshold drops columns with a larger fraction of missing values.
	MissingThreshold     float64  `mapstructure:"missing_threshold"      yaml:"missing_threshold"`
	OutlierIQRMultiplier float64  `mapstructure:"outlier_iqr_multiplier" yaml:"outlier_iqr_multiplier"`
	BaselineFeatures     []string `mapstructure:"baseline_features"      yaml:"baseline_features"`
	Target               string   `mapstructure:"target"                 yaml:"target"`
}

// Models carries estimator hyperparameters for the downstream trainers.
type Models struct {
	RandomForest RandomForest `mapstructure:"random_forest" yaml:"random_forest"`
	XGBoost      XGBoost      `mapstructure:"xgboost"       yaml:"xgboost"`
}

type RandomForest struct {
	NEstimators     int    `mapstructure:"n_estimators"      yaml:"n_estimators"`
	MaxDepth        int    `mapstructure:"max_depth"         yaml:"max_depth"`
	MinSamplesSplit int    `mapstructure:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  int    `mapstructure:"min_samples_leaf"  yaml:"min_samples_leaf"`
	MaxFeatures     string `mapstructure:"max_features"      yaml:"max_features"`
	NJobs           int    `mapstructure:"n_jobs"            yaml:"n_jobs"`
}

type XGBoost struct {
	NEstimators     int     `mapstructure:"n_estimators"     yaml:"n_estimators"`
	MaxDepth        int     `mapstructure:"max_depth"        yaml:"max_depth"`
	LearningRate    float64 `mapstructure:"learning_rate"    yaml:"learning_rate"`
	Subsample       float64 `mapstructure:"subsample"        yaml:"subsample"`
	ColsampleBytree float64 `mapstructure:"colsample_bytree" yaml:"colsample_bytree"`
	NJobs           int     `mapstructure:"n_jobs"           yaml:"n_jobs"`
}

// CV configures cross-validation.
type CV struct {
	Folds   int    `mapstructure:"folds"   yaml:"folds"`
	Scoring string `mapstructure:"scoring" yaml:"scoring"`
}

// Cache configures the optional Redis page cache.
type Cache struct {
	Enabled   bool          `mapstructure:"enabled"    yaml:"enabled"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"        yaml:"ttl"`
}

// Log configures the zerolog output.
type Log struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		API: API{
			BaseURL:   DefaultBaseURL,
			DatasetID: DefaultDatasetID,
			PageSize:  DefaultPageSize,
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		Paths: Paths{
			RawDir:       "data/raw",
			ProcessedDir: "data/processed",
			ModelDir:     "models",
			ResultsDir:   "results",
		},
		Processing: Processing{
			TestSize:             0.2,
			ValidationSize:       0.2,
			MissingThreshold:     0.5,
			OutlierIQRMultiplier: 1.5,
			BaselineFeatures:     []string{"total_living_area", "assessed_land_area"},
			Target:               "total_assessed_value",
		},
		Models: Models{
			RandomForest: RandomForest{
				NEstimators:     100,
				MaxDepth:        20,
				MinSamplesSplit: 5,
				MinSamplesLeaf:  2,
				MaxFeatures:     "sqrt",
				NJobs:           -1,
			},
			XGBoost: XGBoost{
				NEstimators:     100,
				MaxDepth:        6,
				LearningRate:    0.1,
				Subsample:       0.8,
				ColsampleBytree: 0.8,
				NJobs:           -1,
			},
		},
		CV: CV{
			Folds:   5,
			Scoring: "neg_mean_squared_error",
		},
		Cache: Cache{
			Enabled:   false,
			RedisAddr: "localhost:6379",
			TTL:       10 * time.Minute,
		},
		Log: Log{
			Level: "info",
		},
		Seed:         DefaultSeed,
		ModelVersion: "1.0.0",
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must be http(s), got %q", c.API.BaseURL)
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be > 0 (got %d)", c.API.PageSize)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0 (got %s)", c.API.Timeout)
	}
	if c.API.UserAgent == "" {
		return fmt.Errorf("api.user_agent is required")
	}

	p := c.Processing
	if p.TestSize <= 0 || p.TestSize >= 1 {
		return fmt.Errorf("processing.test_size must be in (0,1) (got %v)", p.TestSize)
	}
	if p.ValidationSize < 0 || p.ValidationSize >= 1 {
		return fmt.Errorf("processing.validation_size must be in [0,1) (got %v)", p.ValidationSize)
	}
	if p.TestSize+p.ValidationSize >= 1 {
		return fmt.Errorf("processing.test_size + validation_size must be < 1 (got %v)", p.TestSize+p.ValidationSize)
	}
	if p.MissingThreshold < 0 || p.MissingThreshold > 1 {
		return fmt.Errorf("processing.missing_threshold must be in [0,1] (got %v)", p.MissingThreshold)
	}
	if p.OutlierIQRMultiplier <= 0 {
		return fmt.Errorf("processing.outlier_iqr_multiplier must be > 0 (got %v)", p.OutlierIQRMultiplier)
	}
	if p.Target == "" {
		return fmt.Errorf("processing.target is required")
	}

	if c.CV.Folds < 2 {
		return fmt.Errorf("cv.folds must be >= 2 (got %d)", c.CV.Folds)
	}
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required when the cache is enabled")
	}
	return nil
}

// Endpoint returns the dataset resource URL.
func (c Config) Endpoint() string {
	return c.API.BaseURL
}

// Fingerprint hashes every setting that influences the produced data.
// Secrets are excluded.
func (c Config) Fingerprint() (string, error) {
	h, err := hashstructure.Hash(c, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hash config: %w", err)
	}
	return strconv.FormatUint(h, 16), nil
}

// YAML renders the configuration with secrets masked.
func (c Config) YAML() ([]byte, error) {
	if c.API.AppToken != "" {
		c.API.AppToken = "********"
	}
	return yaml.Marshal(c)
}
