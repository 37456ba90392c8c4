// Package config provides unified configuration for the brainscore CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendSQLite = "sqlite"
	CacheBackendBadger = "badger"
	CacheBackendRedis  = "redis"
	CacheBackendObject = "object"
)

// Storage types.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds the unified configuration.
type Config struct {
	// DataDir is the base directory for all local files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	Log        LogConfig        `json:"log" yaml:"log"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	Assemblies AssembliesConfig `json:"assemblies" yaml:"assemblies"`
	HTTP       HTTPConfig       `json:"http" yaml:"http"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Format is text or json
	Format string `json:"format" yaml:"format"`
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	// Backend is one of memory, sqlite, badger, redis, object
	Backend string `json:"backend" yaml:"backend"`

	// Path is the sqlite database file or badger directory
	Path string `json:"path" yaml:"path"`

	// Prefix namespaces cache entries in redis and object storage
	Prefix string `json:"prefix" yaml:"prefix"`

	// Disable lists cached function names that always recompute
	Disable []string `json:"disable" yaml:"disable"`

	Redis RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig holds redis connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (MinIO, LocalStack)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// AssembliesConfig locates neural assemblies in object storage.
type AssembliesConfig struct {
	// Prefix is the object path prefix under which assemblies live
	Prefix string `json:"prefix" yaml:"prefix"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Addr         string        `json:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{
			Backend: CacheBackendSQLite,
			Prefix:  "results",
		},
		Storage: StorageConfig{
			Type: StorageLocal,
		},
		Assemblies: AssembliesConfig{
			Prefix: "assemblies",
		},
		HTTP: HTTPConfig{
			Addr:         ":8090",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./.brainscore"
	}
	return filepath.Join(home, ".brainscore")
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}

	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}

	if c.Cache.Path == "" {
		switch c.Cache.Backend {
		case CacheBackendSQLite:
			c.Cache.Path = filepath.Join(c.DataDir, "results.db")
		case CacheBackendBadger:
			c.Cache.Path = filepath.Join(c.DataDir, "results.badger")
		}
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "results"
	}
	if c.Assemblies.Prefix == "" {
		c.Assemblies.Prefix = "assemblies"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendSQLite, CacheBackendBadger, CacheBackendObject:
	case CacheBackendRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required when cache backend is redis")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be memory, sqlite, badger, redis, or object)", c.Cache.Backend)
	}

	if c.Storage.Type != StorageLocal && c.Storage.Type != StorageS3 {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == StorageS3 && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// CacheDisabled reports whether caching is disabled for the named function.
func (c *Config) CacheDisabled(function string) bool {
	for _, f := range c.Cache.Disable {
		if f == function {
			return true
		}
	}
	return false
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the BRAINSCORE_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("BRAINSCORE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("BRAINSCORE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BRAINSCORE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	// Cache configuration
	if v := os.Getenv("BRAINSCORE_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("BRAINSCORE_CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}
	if v := os.Getenv("BRAINSCORE_CACHE_DISABLE"); v != "" {
		cfg.Cache.Disable = splitList(v)
	}
	if v := os.Getenv("BRAINSCORE_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("BRAINSCORE_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("BRAINSCORE_REDIS_DB"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Cache.Redis.DB)
	}

	// Storage configuration
	if v := os.Getenv("BRAINSCORE_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("BRAINSCORE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("BRAINSCORE_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("BRAINSCORE_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("BRAINSCORE_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}

	// HTTP configuration
	if v := os.Getenv("BRAINSCORE_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("BRAINSCORE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true" || v == "1"
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// EnsureDirectories creates all required local directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.Storage.Type == StorageLocal {
		dirs = append(dirs, c.Storage.Path)
	}
	switch c.Cache.Backend {
	case CacheBackendSQLite:
		dirs = append(dirs, filepath.Dir(c.Cache.Path))
	case CacheBackendBadger:
		dirs = append(dirs, c.Cache.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
