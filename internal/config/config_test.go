package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setStorageEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_S3_BUCKET_NAME", "archives")
}

func TestLoadDefaults(t *testing.T) {
	setStorageEnv(t)

	cfg := load(viper.New())

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, DriverS3, cfg.Storage.Driver)
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, FramingFragment, cfg.Archive.Framing)
	assert.Equal(t, int64(MinPartSize), cfg.Archive.PartSize)
	assert.True(t, cfg.Archive.AbortOnFailure)
	assert.Equal(t, 30*time.Second, cfg.Archive.AbortTimeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.SessionStaleAge)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	setStorageEnv(t)
	t.Setenv("PORT_API", "9090")
	t.Setenv("HOST_API", "0.0.0.0")
	t.Setenv("STORAGE_DRIVER", "MinIO")
	t.Setenv("AWS_S3_ENDPOINT", "localhost:9000")
	t.Setenv("AWS_S3_USE_SSL", "false")
	t.Setenv("ARCHIVE_FRAMING", "stream")
	t.Setenv("ARCHIVE_PART_SIZE", "8388608")
	t.Setenv("CACHE_ENABLED", "true")

	cfg := load(viper.New())

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, DriverMinio, cfg.Storage.Driver)
	assert.Equal(t, "localhost:9000", cfg.Storage.Endpoint)
	assert.False(t, cfg.Storage.UseSSL)
	assert.Equal(t, FramingStream, cfg.Archive.Framing)
	assert.Equal(t, int64(8388608), cfg.Archive.PartSize)
	assert.True(t, cfg.Cache.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestValidateReportsEveryMissingKey(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_S3_BUCKET_NAME", "")

	cfg := load(viper.New())
	err := cfg.Validate()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.ElementsMatch(t, []string{
		"AWS_REGION",
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
		"AWS_S3_BUCKET_NAME",
	}, cfgErr.Missing)
	assert.Contains(t, err.Error(), "AWS_S3_BUCKET_NAME")
}

func TestValidateRejectsBadArchiveSettings(t *testing.T) {
	setStorageEnv(t)
	t.Setenv("ARCHIVE_FRAMING", "stream")
	t.Setenv("ARCHIVE_PART_SIZE", "1024")

	cfg := load(viper.New())
	err := cfg.Validate()

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Len(t, cfgErr.Invalid, 1)
	assert.Contains(t, cfgErr.Invalid[0], "ARCHIVE_PART_SIZE")

	cfg.Archive.Framing = "tarball"
	err = cfg.Validate()
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Invalid[0], "ARCHIVE_FRAMING")
}

func TestValidateMinioNeedsEndpoint(t *testing.T) {
	setStorageEnv(t)
	t.Setenv("STORAGE_DRIVER", "minio")
	t.Setenv("AWS_S3_ENDPOINT", "")

	cfg := load(viper.New())
	var cfgErr *ConfigurationError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
	assert.Equal(t, []string{"AWS_S3_ENDPOINT"}, cfgErr.Missing)
}

func TestCacheRedisAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:6379", CacheConfig{}.RedisAddr())
	assert.Equal(t, "redis.internal:6379", CacheConfig{RedisHost: "redis.internal"}.RedisAddr())
	assert.Equal(t, "127.0.0.1:6380", CacheConfig{RedisPort: "6380"}.RedisAddr())
	assert.Equal(t, "[::1]:7000", CacheConfig{RedisHost: "::1", RedisPort: "7000"}.RedisAddr())

	setStorageEnv(t)
	t.Setenv("REDIS_HOST", "cache.internal")
	cfg := load(viper.New())
	assert.Equal(t, "cache.internal:6379", cfg.Cache.RedisAddr())
}
