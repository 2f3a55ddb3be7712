package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ASSESSMENTS_API_PAGE_SIZE.
const EnvPrefix = "ASSESSMENTS"

// Load builds a Config from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
// An empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.NewWithOptions(
		viper.KeyDelimiter("."),
		viper.EnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")),
	)

	v.SetEnvPrefix(EnvPrefix)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	decodeHooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	cfg := Config{}
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks)); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that environment overrides are
// picked up by Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.dataset_id", d.API.DatasetID)
	v.SetDefault("api.page_size", d.API.PageSize)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.app_token", d.API.AppToken)

	v.SetDefault("paths.raw_dir", d.Paths.RawDir)
	v.SetDefault("paths.processed_dir", d.Paths.ProcessedDir)
	v.SetDefault("paths.model_dir", d.Paths.ModelDir)
	v.SetDefault("paths.results_dir", d.Paths.ResultsDir)

	v.SetDefault("processing.test_size", d.Processing.TestSize)
	v.SetDefault("processing.validation_size", d.Processing.ValidationSize)
	v.SetDefault("processing.missing_threshold", d.Processing.MissingThreshold)
	v.SetDefault("processing.outlier_iqr_multiplier", d.Processing.OutlierIQRMultiplier)
	v.SetDefault("processing.baseline_features", d.Processing.BaselineFeatures)
	v.SetDefault("processing.target", d.Processing.Target)

	rf := d.Models.RandomForest
	v.SetDefault("models.random_forest.n_estimators", rf.NEstimators)
	v.SetDefault("models.random_forest.max_depth", rf.MaxDepth)
	v.SetDefault("models.random_forest.min_samples_split", rf.MinSamplesSplit)
	v.SetDefault("models.random_forest.min_samples_leaf", rf.MinSamplesLeaf)
	v.SetDefault("models.random_forest.max_features", rf.MaxFeatures)
	v.SetDefault("models.random_forest.n_jobs", rf.NJobs)

	xgb := d.Models.XGBoost
	v.SetDefault("models.xgboost.n_estimators", xgb.NEstimators)
	v.SetDefault("models.xgboost.max_depth", xgb.MaxDepth)
	v.SetDefault("models.xgboost.learning_rate", xgb.LearningRate)
	v.SetDefault("models.xgboost.subsample", xgb.Subsample)
	v.SetDefault("models.xgboost.colsample_bytree", xgb.ColsampleBytree)
	v.SetDefault("models.xgboost.n_jobs", xgb.NJobs)

	v.SetDefault("cv.folds", d.CV.Folds)
	v.SetDefault("cv.scoring", d.CV.Scoring)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)

	v.SetDefault("seed", d.Seed)
	v.SetDefault("model_version", d.ModelVersion)
}
