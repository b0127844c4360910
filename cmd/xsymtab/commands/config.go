package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/benz9527/xsymtab/observability"
)

const (
	configName      = ".xsymtab"
	configType      = "yaml"
	envPrefix       = "XSYMTAB"
	envKeySeparator = "_"
)

const (
	StoreFile  = "file"
	StoreRedis = "redis"
	StoreSQL   = "sql"
)

// Config fields are unmarshalled by viper from the defaults, the
// config file, the XSYMTAB_* env vars and the flags, later wins.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Loader  LoaderConfig  `mapstructure:"loader"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Encoder string `mapstructure:"encoder"`
}

type StoreConfig struct {
	Backend  string      `mapstructure:"backend"`
	Dir      string      `mapstructure:"dir"`
	Compress bool        `mapstructure:"compress"`
	Redis    RedisConfig `mapstructure:"redis"`
	SQL      SQLConfig   `mapstructure:"sql"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SQLConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type MetricsConfig struct {
	Exporter string        `mapstructure:"exporter"`
	Listen   string        `mapstructure:"listen"`
	Interval time.Duration `mapstructure:"interval"`
}

type LoaderConfig struct {
	Workers int `mapstructure:"workers"`
}

func (cfg *Config) Validate() error {
	var merr error
	switch cfg.Store.Backend {
	case StoreFile:
		if len(strings.TrimSpace(cfg.Store.Dir)) == 0 {
			merr = multierr.Append(merr, errors.New("store.dir is required by the file store"))
		}
	case StoreRedis:
		if len(strings.TrimSpace(cfg.Store.Redis.Addr)) == 0 {
			merr = multierr.Append(merr, errors.New("store.redis.addr is required by the redis store"))
		}
	case StoreSQL:
		if len(strings.TrimSpace(cfg.Store.SQL.DSN)) == 0 {
			merr = multierr.Append(merr, errors.New("store.sql.dsn is required by the sql store"))
		}
	default:
		merr = multierr.Append(merr, fmt.Errorf("unknown store.backend %q", cfg.Store.Backend))
	}
	switch strings.ToLower(cfg.Log.Encoder) {
	case "json", "plaintext":
	default:
		merr = multierr.Append(merr, fmt.Errorf("unknown log.encoder %q", cfg.Log.Encoder))
	}
	if _, err := observability.ParseExporterType(cfg.Metrics.Exporter); err != nil {
		merr = multierr.Append(merr, fmt.Errorf("unknown metrics.exporter %q", cfg.Metrics.Exporter))
	}
	if cfg.Loader.Workers <= 0 {
		merr = multierr.Append(merr, fmt.Errorf("loader.workers %d must be positive", cfg.Loader.Workers))
	}
	return merr
}

// flagKeys binds the persistent flags to the config keys.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"store":     "store.backend",
	"dir":       "store.dir",
	"compress":  "store.compress",
}

// LoadConfig loads configuration from file, env vars and flags over
// the defaults. A missing config file is not an error unless the path
// is explicit.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for flag, key := range flagKeys {
			if f := flags.Lookup(flag); f != nil {
				if err := viperCfg.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}

	var cfg Config
	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("log.level", "INFO")
	viperCfg.SetDefault("log.encoder", "json")

	viperCfg.SetDefault("store.backend", StoreFile)
	viperCfg.SetDefault("store.dir", "./snapshots")
	viperCfg.SetDefault("store.compress", true)
	viperCfg.SetDefault("store.redis.addr", "127.0.0.1:6379")
	viperCfg.SetDefault("store.redis.password", "")
	viperCfg.SetDefault("store.redis.db", 0)
	viperCfg.SetDefault("store.redis.prefix", "xsymtab:snapshot:")
	viperCfg.SetDefault("store.redis.ttl", time.Duration(0))
	viperCfg.SetDefault("store.sql.dsn", "xsymtab.db")
	viperCfg.SetDefault("store.sql.table", "xsymtab_snapshots")

	viperCfg.SetDefault("metrics.exporter", string(observability.ExporterNone))
	viperCfg.SetDefault("metrics.listen", "127.0.0.1:9464")
	viperCfg.SetDefault("metrics.interval", 10*time.Second)

	viperCfg.SetDefault("loader.workers", 4)
}
