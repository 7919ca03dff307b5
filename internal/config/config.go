// internal/config/config.go
package config

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers understood by storage.NewObjectStore.
const (
	DriverS3    = "s3"
	DriverMinio = "minio"
)

// Archive framing modes.
const (
	FramingFragment = "fragment"
	FramingStream   = "stream"
)

// MinPartSize is the smallest part an S3 multipart upload accepts for every part but the last.
const MinPartSize = 5 * 1024 * 1024

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Archive ArchiveConfig
	Cache   CacheConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type StorageConfig struct {
	Driver         string
	Region         string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Endpoint       string
	UseSSL         bool
	ForcePathStyle bool
}

type ArchiveConfig struct {
	LocalPath      string
	Framing        string
	PartSize       int64
	AbortOnFailure bool
	AbortTimeout   time.Duration
}

type CacheConfig struct {
	Enabled         bool
	RedisURL        string
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	SessionStaleAge time.Duration
}

const (
	defaultRedisHost = "127.0.0.1"
	defaultRedisPort = "6379"
)

// RedisAddr is the host:port of the session registry. It is ignored when RedisURL is set.
func (c CacheConfig) RedisAddr() string {
	host, port := c.RedisHost, c.RedisPort
	if host == "" {
		host = defaultRedisHost
	}
	if port == "" {
		port = defaultRedisPort
	}
	return net.JoinHostPort(host, port)
}

// ConfigurationError reports required settings that are missing or invalid.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(e.Invalid, ", "))
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

var (
	once     sync.Once
	instance *Config
)

// Load reads configuration from the environment (and a .env file when present) once
// per process.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = load(viper.GetViper())
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST_API", "127.0.0.1")
	v.SetDefault("PORT_API", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_READ_TIMEOUT", 0)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 0)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("STORAGE_DRIVER", DriverS3)
	v.SetDefault("AWS_REGION", "")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("AWS_S3_BUCKET_NAME", "")
	v.SetDefault("AWS_S3_ENDPOINT", "")
	v.SetDefault("AWS_S3_USE_SSL", true)
	v.SetDefault("AWS_S3_FORCE_PATH_STYLE", false)
	v.SetDefault("ARCHIVE_LOCAL_PATH", "./data/output/archive.zip")
	v.SetDefault("ARCHIVE_FRAMING", FramingFragment)
	v.SetDefault("ARCHIVE_PART_SIZE", MinPartSize)
	v.SetDefault("ARCHIVE_ABORT_ON_FAILURE", true)
	v.SetDefault("ARCHIVE_ABORT_TIMEOUT_SECONDS", 30)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", defaultRedisHost)
	v.SetDefault("REDIS_PORT", defaultRedisPort)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_STALE_AFTER_MINUTES", 60)
}

func load(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Host:           v.GetString("HOST_API"),
			Port:           v.GetString("PORT_API"),
			Mode:           v.GetString("SERVER_MODE"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			Region:         strings.TrimSpace(v.GetString("AWS_REGION")),
			AccessKey:      strings.TrimSpace(v.GetString("AWS_ACCESS_KEY_ID")),
			SecretKey:      strings.TrimSpace(v.GetString("AWS_SECRET_ACCESS_KEY")),
			Bucket:         strings.TrimSpace(v.GetString("AWS_S3_BUCKET_NAME")),
			Endpoint:       strings.TrimSpace(v.GetString("AWS_S3_ENDPOINT")),
			UseSSL:         v.GetBool("AWS_S3_USE_SSL"),
			ForcePathStyle: v.GetBool("AWS_S3_FORCE_PATH_STYLE"),
		},
		Archive: ArchiveConfig{
			LocalPath:      v.GetString("ARCHIVE_LOCAL_PATH"),
			Framing:        strings.ToLower(strings.TrimSpace(v.GetString("ARCHIVE_FRAMING"))),
			PartSize:       v.GetInt64("ARCHIVE_PART_SIZE"),
			AbortOnFailure: v.GetBool("ARCHIVE_ABORT_ON_FAILURE"),
			AbortTimeout:   time.Duration(v.GetInt("ARCHIVE_ABORT_TIMEOUT_SECONDS")) * time.Second,
		},
		Cache: CacheConfig{
			Enabled:         v.GetBool("CACHE_ENABLED"),
			RedisURL:        v.GetString("REDIS_URL"),
			RedisHost:       v.GetString("REDIS_HOST"),
			RedisPort:       v.GetString("REDIS_PORT"),
			RedisPassword:   v.GetString("REDIS_PASSWORD"),
			RedisDB:         v.GetInt("REDIS_DB"),
			SessionStaleAge: time.Duration(v.GetInt("SESSION_STALE_AFTER_MINUTES")) * time.Minute,
		},
	}
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	cfgErr := &ConfigurationError{}

	required := []struct {
		key   string
		value string
	}{
		{"AWS_REGION", c.Storage.Region},
		{"AWS_ACCESS_KEY_ID", c.Storage.AccessKey},
		{"AWS_SECRET_ACCESS_KEY", c.Storage.SecretKey},
		{"AWS_S3_BUCKET_NAME", c.Storage.Bucket},
	}
	for _, r := range required {
		if r.value == "" {
			cfgErr.Missing = append(cfgErr.Missing, r.key)
		}
	}

	switch c.Storage.Driver {
	case DriverS3:
	case DriverMinio:
		if c.Storage.Endpoint == "" {
			cfgErr.Missing = append(cfgErr.Missing, "AWS_S3_ENDPOINT")
		}
	default:
		cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("STORAGE_DRIVER=%q", c.Storage.Driver))
	}

	switch c.Archive.Framing {
	case FramingFragment:
	case FramingStream:
		if c.Archive.PartSize < MinPartSize {
			cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("ARCHIVE_PART_SIZE=%d (minimum %d)", c.Archive.PartSize, MinPartSize))
		}
	default:
		cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("ARCHIVE_FRAMING=%q", c.Archive.Framing))
	}

	if c.Archive.LocalPath == "" {
		cfgErr.Missing = append(cfgErr.Missing, "ARCHIVE_LOCAL_PATH")
	}

	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		return cfgErr
	}
	return nil
}
