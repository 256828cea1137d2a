// Package config loads application settings from an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Dictionary  DictionaryConfig  `mapstructure:"dictionary"`
	History     HistoryConfig     `mapstructure:"history"`
	Seed        SeedConfig        `mapstructure:"seed"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type PipelineConfig struct {
	MaxIterations   int           `mapstructure:"max_iterations"`
	RefineThreshold float64       `mapstructure:"refine_threshold"`
	LookupTimeout   time.Duration `mapstructure:"lookup_timeout"`
	MinLearnLength  int           `mapstructure:"min_learn_length"`
}

// PersistenceConfig selects the state backend. Backend is one of
// "memory", "badger" or "redis".
type PersistenceConfig struct {
	Backend    string      `mapstructure:"backend"`
	BadgerPath string      `mapstructure:"badger_path"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DictionaryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerMin int           `mapstructure:"requests_per_min"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

type SeedConfig struct {
	Dir string `mapstructure:"dir"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.max_iterations", 3)
	v.SetDefault("pipeline.refine_threshold", 0.9)
	v.SetDefault("pipeline.lookup_timeout", 3*time.Second)
	v.SetDefault("pipeline.min_learn_length", 3)
	v.SetDefault("persistence.backend", "badger")
	v.SetDefault("persistence.badger_path", "~/.synaptiq/state")
	v.SetDefault("persistence.redis.addr", "localhost:6379")
	v.SetDefault("persistence.redis.db", 0)
	v.SetDefault("dictionary.enabled", true)
	v.SetDefault("dictionary.base_url", "https://api.dictionaryapi.dev/api/v2/entries/en")
	v.SetDefault("dictionary.timeout", 3*time.Second)
	v.SetDefault("dictionary.requests_per_min", 30)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", "~/.synaptiq/history.db")
	v.SetDefault("seed.dir", "data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// Load reads configuration from path (optional, YAML) with environment
// overrides of the form SYNAPTIQ_PERSISTENCE_BACKEND=redis. A missing
// config file falls back to defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SYNAPTIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Persistence.Backend {
	case "memory", "badger", "redis":
	default:
		return fmt.Errorf("unknown persistence backend %q", c.Persistence.Backend)
	}
	if c.Pipeline.MaxIterations < 1 {
		return fmt.Errorf("pipeline.max_iterations must be at least 1")
	}
	if c.Pipeline.RefineThreshold <= 0 || c.Pipeline.RefineThreshold > 1 {
		return fmt.Errorf("pipeline.refine_threshold must be in (0, 1]")
	}
	return nil
}
