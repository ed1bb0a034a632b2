// Package config centralizes how VidVault reads its TOML file and environment
// variables and exposes them as typed Go values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents runtime configuration for the service.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Storage   StorageConfig   `toml:"storage"`
	S3        S3Config        `toml:"s3"`
	Transcode TranscodeConfig `toml:"transcode"`
	Cache     CacheConfig     `toml:"cache"`
	Queue     QueueConfig     `toml:"queue"`
}

// LogConfig holds logging level and format (text or json).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the public and admin listen addresses. AdminAddress is
// empty unless the block/unblock endpoints should be served.
type ServerConfig struct {
	Address        string `toml:"address"`
	AdminAddress   string `toml:"admin_address"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

// DatabaseConfig selects the asset store. Driver is sqlite, postgres or memory.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	// Path is the SQLite file.
	Path string `toml:"path"`
	// URL is the Postgres DSN.
	URL string `toml:"url"`
}

// StorageConfig selects the canonical store backend (local or s3). Dir is the
// canonical store directory for the local backend; WorkDir holds temporary
// uploads and staged transcoder output.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
	WorkDir string `toml:"work_dir"`
}

// S3Config configures the MinIO/S3 backend.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
}

// TranscodeConfig bounds the external transcoder.
type TranscodeConfig struct {
	FFmpegPath string        `toml:"ffmpeg_path"`
	Workers    int           `toml:"workers"`
	Timeout    time.Duration `toml:"timeout"`
}

// CacheConfig sizes the download block-state cache. A zero TTL keeps entries
// until they are evicted or invalidated.
type CacheConfig struct {
	Capacity int           `toml:"capacity"`
	TTL      time.Duration `toml:"ttl"`
}

// QueueConfig points at the Redis instance used for orphan reports. An empty
// RedisAddr disables reporting.
type QueueConfig struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Concurrency   int    `toml:"concurrency"`
}

const (
	DefaultConfigPath = "vidvault.toml"

	defaultAddress        = ":8080"
	defaultMaxUploadBytes = 512 << 20 // 512 MiB
	defaultDriver         = "sqlite"
	defaultSQLitePath     = "video.db"
	defaultBackend        = "local"
	defaultStoreDir       = "videos"
	defaultBucket         = "videos"
	defaultRegion         = "us-east-1"
	defaultFFmpeg         = "ffmpeg"
	defaultWorkers        = 2
	defaultTimeout        = 10 * time.Minute
	defaultCacheCapacity  = 128
	defaultQueueWorkers   = 1
)

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Address:        defaultAddress,
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Database: DatabaseConfig{Driver: defaultDriver, Path: defaultSQLitePath},
		Storage:  StorageConfig{Backend: defaultBackend, Dir: defaultStoreDir},
		S3:       S3Config{Region: defaultRegion, Bucket: defaultBucket},
		Transcode: TranscodeConfig{
			FFmpegPath: defaultFFmpeg,
			Workers:    defaultWorkers,
			Timeout:    defaultTimeout,
		},
		Cache: CacheConfig{Capacity: defaultCacheCapacity},
		Queue: QueueConfig{Concurrency: defaultQueueWorkers},
	}
}

// Load reads the TOML file at path (a missing file is not an error), applies
// VIDVAULT_* environment overrides and validates the result. An empty path
// falls back to VIDVAULT_CONFIG and then DefaultConfigPath.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = readEnv("VIDVAULT_CONFIG", DefaultConfigPath)
	}
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config %s is a directory", path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Log.Level = readEnv("VIDVAULT_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = readEnv("VIDVAULT_LOG_FORMAT", cfg.Log.Format)

	cfg.Server.Address = readEnv("VIDVAULT_ADDRESS", cfg.Server.Address)
	cfg.Server.AdminAddress = readEnv("VIDVAULT_ADMIN_ADDRESS", cfg.Server.AdminAddress)
	cfg.Server.MaxUploadBytes = parseInt64("VIDVAULT_MAX_UPLOAD_BYTES", cfg.Server.MaxUploadBytes)

	cfg.Database.Driver = readEnv("VIDVAULT_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Path = readEnv("VIDVAULT_DB_PATH", cfg.Database.Path)
	cfg.Database.URL = readEnv("VIDVAULT_DATABASE_URL", cfg.Database.URL)

	cfg.Storage.Backend = readEnv("VIDVAULT_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.Dir = readEnv("VIDVAULT_STORE_DIR", cfg.Storage.Dir)
	cfg.Storage.WorkDir = readEnv("VIDVAULT_WORK_DIR", cfg.Storage.WorkDir)

	cfg.S3.Endpoint = readEnv("VIDVAULT_S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.AccessKey = readEnv("VIDVAULT_S3_ACCESS_KEY", cfg.S3.AccessKey)
	cfg.S3.SecretKey = readEnv("VIDVAULT_S3_SECRET_KEY", cfg.S3.SecretKey)
	cfg.S3.UseSSL = parseBool("VIDVAULT_S3_USE_SSL", cfg.S3.UseSSL)
	cfg.S3.Region = readEnv("VIDVAULT_S3_REGION", cfg.S3.Region)
	cfg.S3.Bucket = readEnv("VIDVAULT_S3_BUCKET", cfg.S3.Bucket)

	cfg.Transcode.FFmpegPath = readEnv("VIDVAULT_FFMPEG", cfg.Transcode.FFmpegPath)
	cfg.Transcode.Workers = parseInt("VIDVAULT_TRANSCODE_WORKERS", cfg.Transcode.Workers)
	cfg.Transcode.Timeout = parseDuration("VIDVAULT_TRANSCODE_TIMEOUT", cfg.Transcode.Timeout)

	cfg.Cache.Capacity = parseInt("VIDVAULT_CACHE_CAPACITY", cfg.Cache.Capacity)
	cfg.Cache.TTL = parseDuration("VIDVAULT_CACHE_TTL", cfg.Cache.TTL)

	cfg.Queue.RedisAddr = readEnv("VIDVAULT_REDIS_ADDR", cfg.Queue.RedisAddr)
	cfg.Queue.RedisPassword = readEnv("VIDVAULT_REDIS_PASSWORD", cfg.Queue.RedisPassword)
	cfg.Queue.RedisDB = parseInt("VIDVAULT_REDIS_DB", cfg.Queue.RedisDB)
	cfg.Queue.Concurrency = parseInt("VIDVAULT_QUEUE_WORKERS", cfg.Queue.Concurrency)
}

func (c *Config) normalize() error {
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = defaultMaxUploadBytes
	}
	if c.Transcode.Workers <= 0 {
		c.Transcode.Workers = defaultWorkers
	}
	if c.Transcode.Timeout <= 0 {
		c.Transcode.Timeout = defaultTimeout
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = defaultCacheCapacity
	}
	if c.Cache.TTL < 0 {
		c.Cache.TTL = 0
	}
	if c.Queue.Concurrency <= 0 {
		c.Queue.Concurrency = defaultQueueWorkers
	}
	if c.Storage.WorkDir == "" {
		c.Storage.WorkDir = os.TempDir()
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the local backend")
		}
	case "s3":
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return fmt.Errorf("s3.endpoint and s3.bucket are required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
