package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/objzip/internal/config"
)

func TestNewSessionRegistryDisabledIsNoop(t *testing.T) {
	reg, err := NewSessionRegistry(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, reg.Track(ctx, OpenSession{UploadID: "u1"}))
	sessions, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	require.NoError(t, reg.Forget(ctx, "u1"))
	require.NoError(t, reg.Close())
}

func TestMemorySessionRegistry(t *testing.T) {
	reg := NewMemorySessionRegistry()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, reg.Track(ctx, OpenSession{UploadID: "late", TargetKey: "b.zip", StartedAt: now}))
	require.NoError(t, reg.Track(ctx, OpenSession{UploadID: "early", TargetKey: "a.zip", StartedAt: now.Add(-time.Hour)}))

	sessions, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "early", sessions[0].UploadID)
	assert.Equal(t, "late", sessions[1].UploadID)

	require.NoError(t, reg.Forget(ctx, "early"))
	sessions, err = reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "b.zip", sessions[0].TargetKey)
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.CacheConfig{RedisPort: "6380", RedisPassword: "pw", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "objzip", opts.ClientName)

	opts, err = redisOptions(config.CacheConfig{
		RedisURL:  "redis://:secret@cache.internal:6379/4?client_name=sweeper",
		RedisHost: "ignored.internal",
	})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 4, opts.DB)
	assert.Equal(t, "sweeper", opts.ClientName)

	_, err = redisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "objzip:session:abc", sessionKey("abc"))
}
