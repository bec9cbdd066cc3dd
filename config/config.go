// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorse-io/mfrec/base/log"
	"github.com/gorse-io/mfrec/dataset"
	"github.com/gorse-io/mfrec/model"
	"github.com/gorse-io/mfrec/model/mf"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	POSIX = "posix"
	S3    = "s3"
	GCS   = "gcs"
	Azure = "azure"
)

// Config is the configuration for mfrec.
type Config struct {
	Storage      StorageConfig      `mapstructure:"storage"`
	Data         DataConfig         `mapstructure:"data"`
	Interactions InteractionsConfig `mapstructure:"interactions"`
	Items        ItemsConfig        `mapstructure:"items"`
	Model        ModelConfig        `mapstructure:"model"`
	Recommend    RecommendConfig    `mapstructure:"recommend"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Evaluate     EvaluateConfig     `mapstructure:"evaluate"`
	Tune         TuneConfig         `mapstructure:"tune"`
}

// StorageConfig is the configuration for the blob store holding data files.
type StorageConfig struct {
	Type   string          `mapstructure:"type" validate:"oneof=posix s3 gcs azure"`
	Dir    string          `mapstructure:"dir"`
	Bucket string          `mapstructure:"bucket" validate:"required_unless=Type posix"`
	Prefix string          `mapstructure:"prefix"`
	S3     S3Config        `mapstructure:"s3"`
	GCS    GCSConfig       `mapstructure:"gcs"`
	Azure  AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	Endpoint         string `mapstructure:"endpoint"`
	ConnectionString string `mapstructure:"connection_string"`
}

// DataConfig names files in the blob store.
type DataConfig struct {
	Interactions    string `mapstructure:"interactions" validate:"required"`
	Items           string `mapstructure:"items" validate:"required"`
	Recommendations string `mapstructure:"recommendations" validate:"required"`
	Model           string `mapstructure:"model" validate:"required"`
}

// InteractionsConfig is the configuration for building the interaction matrix.
type InteractionsConfig struct {
	UserColumn   string   `mapstructure:"user_column" validate:"required"`
	ItemColumn   string   `mapstructure:"item_column" validate:"required"`
	RatingColumn string   `mapstructure:"rating_column" validate:"required"`
	Normalize    bool     `mapstructure:"normalize"`
	Threshold    *float64 `mapstructure:"threshold" validate:"required_if=Normalize true"`
}

func (c *InteractionsConfig) GetOptions() dataset.InteractionOptions {
	return dataset.InteractionOptions{
		Normalize: c.Normalize,
		Threshold: c.Threshold,
	}
}

type ItemsConfig struct {
	IdColumn   string `mapstructure:"id_column" validate:"required"`
	NameColumn string `mapstructure:"name_column" validate:"required"`
}

// ModelConfig is the configuration for matrix factorization.
type ModelConfig struct {
	NComponents int     `mapstructure:"n_components" validate:"gt=0"`
	Loss        string  `mapstructure:"loss" validate:"oneof=warp logistic bpr"`
	Epochs      int     `mapstructure:"epochs" validate:"gt=0"`
	Jobs        int     `mapstructure:"jobs" validate:"gt=0"`
	Lr          float64 `mapstructure:"lr" validate:"gt=0"`
	Reg         float64 `mapstructure:"reg" validate:"gte=0"`
	MaxSampled  int     `mapstructure:"max_sampled" validate:"gt=0"`
	RandomState int64   `mapstructure:"random_state"`
	Verbose     int     `mapstructure:"verbose" validate:"gte=0"`
}

func (c *ModelConfig) GetParams() model.Params {
	return model.Params{
		model.NFactors:    c.NComponents,
		model.Loss:        c.Loss,
		model.NEpochs:     c.Epochs,
		model.Lr:          c.Lr,
		model.Reg:         c.Reg,
		model.MaxSampled:  c.MaxSampled,
		model.RandomState: c.RandomState,
	}
}

func (c *ModelConfig) GetFitConfig() *mf.FitConfig {
	return mf.NewFitConfig().
		SetJobs(c.Jobs).
		SetVerbose(c.Verbose)
}

type RecommendConfig struct {
	KnownThreshold  float64 `mapstructure:"known_threshold"`
	N               int     `mapstructure:"n" validate:"gte=0"`
	ShowKnown       bool    `mapstructure:"show_known"`
	ShowRecommended bool    `mapstructure:"show_recommended"`
}

// CacheConfig is the configuration for the Redis sink. It is disabled if RedisURI is empty.
type CacheConfig struct {
	RedisURI string        `mapstructure:"redis_uri"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type EvaluateConfig struct {
	TestRatio   float64 `mapstructure:"test_ratio" validate:"gt=0,lt=1"`
	TopK        int     `mapstructure:"top_k" validate:"gt=0"`
	RandomState int64   `mapstructure:"random_state"`
}

type TuneConfig struct {
	Trials int `mapstructure:"trials" validate:"gt=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Type: POSIX,
			Dir:  "data",
		},
		Data: DataConfig{
			Interactions:    "recdata.csv",
			Items:           "gamesdata.csv",
			Recommendations: "recommendations.txt",
			Model:           "model.bin",
		},
		Interactions: InteractionsConfig{
			UserColumn:   "uid",
			ItemColumn:   "id",
			RatingColumn: "owned",
		},
		Items: ItemsConfig{
			IdColumn:   "id",
			NameColumn: "name",
		},
		Model: ModelConfig{
			NComponents: 30,
			Loss:        mf.WARP,
			Epochs:      30,
			Jobs:        4,
			Lr:          0.05,
			Reg:         0,
			MaxSampled:  10,
			RandomState: 0,
			Verbose:     10,
		},
		Recommend: RecommendConfig{
			KnownThreshold:  0,
			N:               10,
			ShowKnown:       true,
			ShowRecommended: true,
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Evaluate: EvaluateConfig{
			TestRatio: 0.2,
			TopK:      10,
		},
		Tune: TuneConfig{
			Trials: 10,
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [storage]
	viper.SetDefault("storage.type", defaultConfig.Storage.Type)
	viper.SetDefault("storage.dir", defaultConfig.Storage.Dir)
	// [data]
	viper.SetDefault("data.interactions", defaultConfig.Data.Interactions)
	viper.SetDefault("data.items", defaultConfig.Data.Items)
	viper.SetDefault("data.recommendations", defaultConfig.Data.Recommendations)
	viper.SetDefault("data.model", defaultConfig.Data.Model)
	// [interactions]
	viper.SetDefault("interactions.user_column", defaultConfig.Interactions.UserColumn)
	viper.SetDefault("interactions.item_column", defaultConfig.Interactions.ItemColumn)
	viper.SetDefault("interactions.rating_column", defaultConfig.Interactions.RatingColumn)
	viper.SetDefault("interactions.normalize", defaultConfig.Interactions.Normalize)
	// [items]
	viper.SetDefault("items.id_column", defaultConfig.Items.IdColumn)
	viper.SetDefault("items.name_column", defaultConfig.Items.NameColumn)
	// [model]
	viper.SetDefault("model.n_components", defaultConfig.Model.NComponents)
	viper.SetDefault("model.loss", defaultConfig.Model.Loss)
	viper.SetDefault("model.epochs", defaultConfig.Model.Epochs)
	viper.SetDefault("model.jobs", defaultConfig.Model.Jobs)
	viper.SetDefault("model.lr", defaultConfig.Model.Lr)
	viper.SetDefault("model.reg", defaultConfig.Model.Reg)
	viper.SetDefault("model.max_sampled", defaultConfig.Model.MaxSampled)
	viper.SetDefault("model.random_state", defaultConfig.Model.RandomState)
	viper.SetDefault("model.verbose", defaultConfig.Model.Verbose)
	// [recommend]
	viper.SetDefault("recommend.known_threshold", defaultConfig.Recommend.KnownThreshold)
	viper.SetDefault("recommend.n", defaultConfig.Recommend.N)
	viper.SetDefault("recommend.show_known", defaultConfig.Recommend.ShowKnown)
	viper.SetDefault("recommend.show_recommended", defaultConfig.Recommend.ShowRecommended)
	// [cache]
	viper.SetDefault("cache.ttl", defaultConfig.Cache.TTL)
	// [evaluate]
	viper.SetDefault("evaluate.test_ratio", defaultConfig.Evaluate.TestRatio)
	viper.SetDefault("evaluate.top_k", defaultConfig.Evaluate.TopK)
	viper.SetDefault("evaluate.random_state", defaultConfig.Evaluate.RandomState)
	// [tune]
	viper.SetDefault("tune.trials", defaultConfig.Tune.Trials)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads configuration from a TOML file. Defaults are used if path is empty.
// Environment variables overwrite values in the file.
func LoadConfig(path string) (*Config, error) {
	// set default config
	setDefault()
	// bind environment bindings
	bindings := []configBinding{
		{"storage.type", "MFREC_STORAGE_TYPE"},
		{"storage.dir", "MFREC_STORAGE_DIR"},
		{"storage.bucket", "MFREC_STORAGE_BUCKET"},
		{"storage.prefix", "MFREC_STORAGE_PREFIX"},
		{"storage.s3.endpoint", "MFREC_S3_ENDPOINT"},
		{"storage.s3.access_key_id", "MFREC_S3_ACCESS_KEY_ID"},
		{"storage.s3.secret_access_key", "MFREC_S3_SECRET_ACCESS_KEY"},
		{"storage.gcs.credentials_file", "MFREC_GCS_CREDENTIALS_FILE"},
		{"storage.azure.connection_string", "MFREC_AZURE_CONNECTION_STRING"},
		{"cache.redis_uri", "MFREC_REDIS_URI"},
		{"model.jobs", "MFREC_MODEL_JOBS"},
	}
	for _, binding := range bindings {
		err := viper.BindEnv(binding.key, binding.env)
		if err != nil {
			log.Logger().Fatal("failed to bind a Viper key to a ENV variable", zap.Error(err))
		}
	}
	// load config file
	viper.SetConfigType("toml")
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Trace(err)
		}
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	// unmarshal config file
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	// validate config file
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}
