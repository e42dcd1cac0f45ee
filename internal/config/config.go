// SPDX-License-Identifier: Apache-2.0

// Package config loads the runner configuration from an optional YAML file
// with DOCSHIFT_* environment overrides. Load returns a value; callers own
// the configuration they loaded.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/docshift/docshift/pkg/logx"
	"github.com/docshift/docshift/pkg/store"
	"github.com/docshift/docshift/pkg/version"
)

// Store drivers recognized by the runner.
const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

// StoreConfig selects and parameterizes the control record backend.
type StoreConfig struct {
	// Driver is one of memory, bolt, redis, mongo.
	Driver string `yaml:"driver" mapstructure:"driver"`
	// URL is the connection string: mongodb:// URL for mongo, host:port for redis.
	URL string `yaml:"url" mapstructure:"url"`
	// Database is the database name (mongo only).
	Database string `yaml:"database" mapstructure:"database"`
	// Path is the database file path (bolt only).
	Path string `yaml:"path" mapstructure:"path"`
	// Collection is the collection/bucket/key-prefix for migration documents.
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// Config holds the full runner configuration.
type Config struct {
	Log         logx.Config   `yaml:"log" mapstructure:"log"`
	Store       StoreConfig   `yaml:"store" mapstructure:"store"`
	Encoding    string        `yaml:"encoding" mapstructure:"encoding"`
	StepTimeout time.Duration `yaml:"stepTimeout" mapstructure:"stepTimeout"`
	LogIfLatest bool          `yaml:"logIfLatest" mapstructure:"logIfLatest"`
}

// Default returns the configuration used when no file and no environment
// overrides are present: an embedded bolt store next to the working
// directory, semver encoding, console logging.
func Default() Config {
	return Config{
		Log: logx.DefaultConfig(),
		Store: StoreConfig{
			Driver:     DriverBolt,
			Path:       "docshift.db",
			Collection: store.DefaultCollection,
		},
		Encoding:    version.EncodingSemVer.String(),
		LogIfLatest: true,
	}
}

// Load reads the configuration file at path (optional, YAML), applies
// DOCSHIFT_* environment overrides and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("DOCSHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, NotFoundError.Wrap(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, InvalidError.Wrap(err, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the encoding and store driver.
func (c Config) Validate() error {
	if _, err := version.ParseEncoding(c.Encoding); err != nil {
		return InvalidError.Wrap(err, "invalid version encoding %q", c.Encoding)
	}

	switch c.Store.Driver {
	case DriverMemory, DriverBolt, DriverRedis, DriverMongo:
	default:
		return InvalidError.New("unknown store driver %q (want memory, bolt, redis or mongo)", c.Store.Driver)
	}

	if c.Store.Driver == DriverBolt && c.Store.Path == "" {
		return InvalidError.New("store driver bolt requires store.path")
	}
	if (c.Store.Driver == DriverRedis || c.Store.Driver == DriverMongo) && c.Store.URL == "" {
		return InvalidError.New("store driver %s requires store.url", c.Store.Driver)
	}
	if c.Store.Driver == DriverMongo && c.Store.Database == "" {
		return InvalidError.New("store driver mongo requires store.database")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.console", def.Log.Console)
	v.SetDefault("store.driver", def.Store.Driver)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("store.collection", def.Store.Collection)
	v.SetDefault("encoding", def.Encoding)
	v.SetDefault("logIfLatest", def.LogIfLatest)
}
