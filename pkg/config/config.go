// Package config loads jindex configuration from YAML files and JINDEX_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jindex/pkg/compression"
	"github.com/jindex/pkg/constantpool"
	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/filter"
	"github.com/jindex/pkg/pprof"
)

// EnvPrefix prefixes every environment override, e.g. JINDEX_BUILD_WORKERS.
const EnvPrefix = "JINDEX"

// Config holds all configuration for the application.
type Config struct {
	Build    BuildConfig    `mapstructure:"build"`
	Search   SearchConfig   `mapstructure:"search"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Pprof    pprof.Config   `mapstructure:"pprof"`
}

// BuildConfig controls index builds and saved index files.
type BuildConfig struct {
	Workers             int    `mapstructure:"workers"` // 0 means one per CPU
	ExpectedMethodCount int    `mapstructure:"expected_method_count"`
	Compression         string `mapstructure:"compression"`       // zstd, gzip or none
	CompressionLevel    string `mapstructure:"compression_level"` // fastest, default or best
	OutputDir           string `mapstructure:"output_dir"`

	// Package filters applied before indexing. Patterns are package
	// prefixes in slash or dot form, e.g. "com/acme" or "com.acme.*".
	IncludePackages []string `mapstructure:"include_packages"`
	ExcludePackages []string `mapstructure:"exclude_packages"`
	ExcludeJDK      bool     `mapstructure:"exclude_jdk"`
}

// SearchConfig holds defaults for class searches.
type SearchConfig struct {
	Limit int    `mapstructure:"limit"`
	Mode  string `mapstructure:"mode"`  // prefix or contains
	Match string `mapstructure:"match"` // ignore-case, match-case or match-case-first-char
}

// StorageConfig holds publishing configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"` // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"` // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DatabaseConfig holds the build history database connection.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"` // mysql, postgres or sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
	Path     string `mapstructure:"path"` // sqlite file
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
}

// ServerConfig holds the HTTP query server configuration.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from configPath, or from config.yaml in the
// standard locations when configPath is empty. A missing file leaves the
// defaults in place.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/jindex")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to read config file", err)
		}
	}

	return unmarshal(v)
}

// LoadFromReader loads configuration from content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to read config", err)
	}
	return unmarshal(v)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Build defaults
	v.SetDefault("build.workers", 0)
	v.SetDefault("build.expected_method_count", 0)
	v.SetDefault("build.compression", "zstd")
	v.SetDefault("build.compression_level", "default")
	v.SetDefault("build.output_dir", ".")
	v.SetDefault("build.include_packages", []string{})
	v.SetDefault("build.exclude_packages", []string{})
	v.SetDefault("build.exclude_jdk", false)

	// Search defaults
	v.SetDefault("search.limit", 100)
	v.SetDefault("search.mode", "prefix")
	v.SetDefault("search.match", "ignore-case")

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.secret_id", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.domain", "myqcloud.com")
	v.SetDefault("storage.scheme", "https")
	v.SetDefault("storage.key_prefix", "indexes")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.database", "jindex")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.path", "./jindex.db")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Profiling defaults
	v.SetDefault("pprof.enabled", false)
	v.SetDefault("pprof.profiles", []string{"cpu", "heap"})
	v.SetDefault("pprof.output_dir", "./pprof")
}

func invalid(format string, args ...interface{}) error {
	return apperrors.Newf(apperrors.CodeConfigError, format, args...)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Build.Workers < 0 {
		return invalid("build.workers must not be negative")
	}
	if _, _, err := c.Compression(); err != nil {
		return err
	}
	if _, err := c.SearchOptions(); err != nil {
		return err
	}

	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalPath == "" {
			return invalid("storage.local_path is required for local storage")
		}
	case "cos":
		if c.Storage.Bucket == "" || c.Storage.Region == "" {
			return invalid("storage.bucket and storage.region are required for cos storage")
		}
	default:
		return invalid("unsupported storage type: %s", c.Storage.Type)
	}

	if err := c.Pprof.Validate(); err != nil {
		return apperrors.Wrap(apperrors.CodeConfigError, "invalid pprof section", err)
	}

	if c.Database.Enabled {
		switch c.Database.Type {
		case "sqlite":
			if c.Database.Path == "" {
				return invalid("database.path is required for sqlite")
			}
		case "mysql", "postgres":
			if c.Database.Host == "" {
				return invalid("database host is required")
			}
		default:
			return invalid("unsupported database type: %s", c.Database.Type)
		}
	}
	return nil
}

// Compression returns the parsed compression type and level for saved
// index files.
func (c *Config) Compression() (compression.Type, compression.Level, error) {
	t, err := compression.ParseType(c.Build.Compression)
	if err != nil {
		return t, 0, apperrors.Wrap(apperrors.CodeConfigError, "invalid build.compression", err)
	}
	level, err := compression.ParseLevel(c.Build.CompressionLevel)
	if err != nil {
		return t, level, apperrors.Wrap(apperrors.CodeConfigError, "invalid build.compression_level", err)
	}
	return t, level, nil
}

// SearchOptions returns the configured default class search options.
func (c *Config) SearchOptions() (constantpool.SearchOptions, error) {
	opts := constantpool.DefaultSearchOptions()

	mode, err := constantpool.ParseSearchMode(c.Search.Mode)
	if err != nil {
		return opts, apperrors.Wrap(apperrors.CodeConfigError, "invalid search.mode", err)
	}
	match, err := constantpool.ParseMatchMode(c.Search.Match)
	if err != nil {
		return opts, apperrors.Wrap(apperrors.CodeConfigError, "invalid search.match", err)
	}
	if c.Search.Limit < 0 {
		return opts, invalid("search.limit must not be negative")
	}

	opts.SearchMode = mode
	opts.MatchMode = match
	if c.Search.Limit > 0 {
		opts.Limit = c.Search.Limit
	}
	return opts, nil
}

// PackageFilter returns the build package filter, or nil when every
// package is kept.
func (c *Config) PackageFilter() *filter.PackageFilter {
	f := filter.NewPackageFilter(c.Build.IncludePackages, c.Build.ExcludePackages, c.Build.ExcludeJDK)
	if f.IsEmpty() {
		return nil
	}
	return f
}

// OutputPath returns where an index named name is written by default.
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.Build.OutputDir, name)
}
