// Package config loads the plytool configuration from an optional YAML file
// and PLYTOOL_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PLYTOOL_LOG_LEVEL.
const EnvPrefix = "PLYTOOL"

type Config struct {
	Log     Log     `mapstructure:"log"`
	Output  string  `mapstructure:"output"`
	Decode  Decode  `mapstructure:"decode"`
	Encode  Encode  `mapstructure:"encode"`
	Storage Storage `mapstructure:"storage"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Encoding    string `mapstructure:"encoding"`
}

type Decode struct {
	Ragged bool `mapstructure:"ragged"`
}

type Encode struct {
	Format      string   `mapstructure:"format"`
	Compression string   `mapstructure:"compression"`
	Comments    []string `mapstructure:"comments"`
}

type Storage struct {
	S3  S3  `mapstructure:"s3"`
	GCS GCS `mapstructure:"gcs"`
}

// S3 configures s3:// locations. Credentials come from the default AWS chain.
type S3 struct {
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	PartSize     int64  `mapstructure:"part_size"`
	Concurrency  int    `mapstructure:"concurrency"`
}

// GCS configures gs:// locations. An empty CredentialsFile uses the
// application default credentials.
type GCS struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

var defaults = map[string]any{
	"log.level":                    "warn",
	"log.development":              false,
	"log.encoding":                 "console",
	"output":                       "text",
	"decode.ragged":                false,
	"encode.format":                "binary_little_endian",
	"encode.compression":           "",
	"encode.comments":              []string{},
	"storage.s3.region":            "",
	"storage.s3.endpoint":          "",
	"storage.s3.use_path_style":    false,
	"storage.s3.part_size":         int64(8 * 1024 * 1024),
	"storage.s3.concurrency":       4,
	"storage.gcs.credentials_file": "",
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	cfg, _ := Load("")
	return cfg
}

// Load reads the configuration file at path, if any, and applies the
// PLYTOOL_* environment overrides on top of it.
//
// Parameters:
//   - path: YAML file; empty means defaults and environment only
//
// Returns:
//   - *Config: the merged configuration
//   - error: the file could not be read or decoded
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
