// Package config loads engine and store settings from flags, environment
// variables (KVSERDE_*), .env files and an optional YAML config file.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/kvserde/internal/envelope"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "kvserde"

// Keys shared by flags, environment variables and the config file.
const (
	KeyThreshold   = "threshold"
	KeyCompression = "compression"
	KeyMaxDepth    = "max-depth"
	KeyMaxText     = "max-text-size"
	KeyDB          = "db"
	KeyLogLevel    = "log-level"
)

// DefaultDB is the SQLite database used when none is configured.
const DefaultDB = "kvserde.db"

// Config is the resolved configuration.
type Config struct {
	Envelope envelope.Config
	DB       string
	LogLevel slog.Level
}

// LoadEnvFiles loads .env and .env.local from the working directory.
// Missing files are ignored, and variables already set win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	def := envelope.DefaultConfig()
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeyThreshold, def.Threshold)
	v.SetDefault(KeyCompression, def.Compression.String())
	v.SetDefault(KeyMaxDepth, def.MaxDepth)
	v.SetDefault(KeyMaxText, def.MaxTextSize)
	v.SetDefault(KeyDB, DefaultDB)
	v.SetDefault(KeyLogLevel, "info")
	return v
}

// AddFlags registers the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	def := envelope.DefaultConfig()
	fs.Int(KeyThreshold, def.Threshold, "Canonical text size in bytes at which payloads are compressed")
	fs.String(KeyCompression, def.Compression.String(), "Compression algorithm: zlib, zstd or lz4")
	fs.Int(KeyMaxDepth, def.MaxDepth, "Maximum value nesting depth on encode")
	fs.Int(KeyMaxText, def.MaxTextSize, "Maximum decompressed text size in bytes on decode")
	fs.String(KeyDB, DefaultDB, "Path of the SQLite database")
	fs.String(KeyLogLevel, "info", "Log level: debug, info, warn or error")
}

// Load resolves the configuration. Precedence, highest first: flags bound
// to v, environment, the config file at path (if any), defaults.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	compression, err := envelope.ParseCompression(v.GetString(KeyCompression))
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}

	cfg := &Config{
		Envelope: envelope.Config{
			Threshold:   v.GetInt(KeyThreshold),
			Compression: compression,
			MaxDepth:    v.GetInt(KeyMaxDepth),
			MaxTextSize: v.GetInt(KeyMaxText),
		},
		DB:       v.GetString(KeyDB),
		LogLevel: level,
	}
	if err := cfg.Envelope.Validate(); err != nil {
		return nil, err
	}
	if cfg.DB == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyDB)
	}
	return cfg, nil
}
