package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"mindsync/db"
	"mindsync/ml"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	ML       MLConfig       `yaml:"ml"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// LogConfig selects the level and, when File is set, a rotated log file.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json or console
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type DatasetConfig struct {
	Path     string `yaml:"path"`
	Target   string `yaml:"target"`
	Encoding string `yaml:"encoding"`
}

type MLConfig struct {
	Trees           int     `yaml:"trees"`
	MaxDepth        int     `yaml:"max_depth"`
	MinSamplesSplit int     `yaml:"min_samples_split"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf"`
	MaxFeatures     int     `yaml:"max_features"`
	TestFraction    float64 `yaml:"test_fraction"`
	Seed            int64   `yaml:"seed"`
	Workers         int     `yaml:"workers"`
	ModelPath       string  `yaml:"model_path"`
}

type DatabaseConfig struct {
	Path      string `yaml:"path"`
	EnableWAL bool   `yaml:"enable_wal"`
	MaxConns  int    `yaml:"max_conns"`
}

type CacheConfig struct {
	Size int `yaml:"size"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           8080,
			RequestTimeout: 30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Dataset: DatasetConfig{
			Path:     "data/mental_wellness.csv",
			Encoding: "utf-8",
		},
		ML: MLConfig{
			Trees:           300,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
			TestFraction:    0.2,
			Seed:            42,
		},
		Database: DatabaseConfig{
			Path:      "data/mindsync.db",
			EnableWAL: true,
			MaxConns:  4,
		},
		Cache: CacheConfig{Size: 1024},
	}
}

// Load decodes the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyDefaults restores defaults for keys present in the file but left empty.
func (c *Config) applyDefaults() {
	def := Default()
	if c.HTTP.Port == 0 {
		c.HTTP.Port = def.HTTP.Port
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = def.HTTP.RequestTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Dataset.Path == "" {
		c.Dataset.Path = def.Dataset.Path
	}
	if c.ML.Trees == 0 {
		c.ML.Trees = def.ML.Trees
	}
	if c.ML.TestFraction == 0 {
		c.ML.TestFraction = def.ML.TestFraction
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	if c.ML.Trees < 0 {
		errs = append(errs, fmt.Errorf("ml.trees must not be negative: %d", c.ML.Trees))
	}
	if c.ML.TestFraction <= 0 || c.ML.TestFraction >= 1 {
		errs = append(errs, fmt.Errorf("ml.test_fraction must be in (0, 1): %v", c.ML.TestFraction))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("cache.size must not be negative: %d", c.Cache.Size))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console: %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// TrainConfig converts the ml section into trainer settings.
func (c MLConfig) TrainConfig() ml.TrainConfig {
	config := ml.DefaultTrainConfig()
	config.TestFraction = c.TestFraction
	config.Seed = c.Seed
	config.Forest = ml.ForestConfig{
		Trees:           c.Trees,
		MaxDepth:        c.MaxDepth,
		MinSamplesSplit: c.MinSamplesSplit,
		MinSamplesLeaf:  c.MinSamplesLeaf,
		MaxFeatures:     c.MaxFeatures,
		Seed:            c.Seed,
		Workers:         c.Workers,
	}
	return config
}

func (c DatasetConfig) LoadOptions() []ml.LoadOption {
	if c.Encoding == "" {
		return nil
	}
	return []ml.LoadOption{ml.WithEncoding(c.Encoding)}
}

func (c DatabaseConfig) StoreConfig() db.StoreConfig {
	return db.StoreConfig{
		Path:      c.Path,
		EnableWAL: c.EnableWAL,
		MaxConns:  c.MaxConns,
	}
}
