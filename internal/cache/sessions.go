package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/objzip/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "objzip:session:"
	// S3 keeps incomplete uploads until a lifecycle rule or an abort removes them;
	// a week is longer than any run we would still want to clean up.
	sessionTTL = 7 * 24 * time.Hour
)

// OpenSession is a multipart upload that has been created but not yet completed or aborted.
type OpenSession struct {
	RunID     string    `json:"run_id"`
	TargetKey string    `json:"target_key"`
	UploadID  string    `json:"upload_id"`
	StartedAt time.Time `json:"started_at"`
}

// SessionRegistry remembers open multipart sessions so that sessions orphaned by a
// crashed or killed process can be aborted later.
type SessionRegistry interface {
	Track(ctx context.Context, s OpenSession) error
	Forget(ctx context.Context, uploadID string) error
	List(ctx context.Context) ([]OpenSession, error)
	Close() error
}

type redisSessionRegistry struct {
	client *redis.Client
}

type noopSessionRegistry struct{}

// NewSessionRegistry returns a redis-backed registry, or a no-op one when the cache is disabled.
func NewSessionRegistry(cfg config.CacheConfig) (SessionRegistry, error) {
	if !cfg.Enabled {
		return &noopSessionRegistry{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisSessionRegistry{client: client}, nil
}

func NewNoopSessionRegistry() SessionRegistry {
	return &noopSessionRegistry{}
}

func sessionKey(uploadID string) string {
	return sessionKeyPrefix + uploadID
}

func (r *redisSessionRegistry) Track(ctx context.Context, s OpenSession) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode open session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.UploadID), payload, sessionTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisSessionRegistry) Forget(ctx context.Context, uploadID string) error {
	if err := r.client.Del(ctx, sessionKey(uploadID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *redisSessionRegistry) List(ctx context.Context) ([]OpenSession, error) {
	keys, err := scanKeys(ctx, r.client, sessionKeyPrefix)
	if err != nil {
		return nil, err
	}

	sessions := make([]OpenSession, 0, len(keys))
	for _, key := range keys {
		payload, err := r.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get failed: %w", err)
		}

		var s OpenSession
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode open session %s: %w", key, err)
		}
		sessions = append(sessions, s)
	}

	sortSessions(sessions)
	return sessions, nil
}

func (r *redisSessionRegistry) Close() error {
	return r.client.Close()
}

func (n *noopSessionRegistry) Track(ctx context.Context, s OpenSession) error {
	return nil
}

func (n *noopSessionRegistry) Forget(ctx context.Context, uploadID string) error {
	return nil
}

func (n *noopSessionRegistry) List(ctx context.Context) ([]OpenSession, error) {
	return nil, nil
}

func (n *noopSessionRegistry) Close() error {
	return nil
}

// MemorySessionRegistry keeps open sessions in process memory. The CLI uses it to
// report sessions a one-shot run left open.
type MemorySessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]OpenSession
}

func NewMemorySessionRegistry() *MemorySessionRegistry {
	return &MemorySessionRegistry{sessions: make(map[string]OpenSession)}
}

func (m *MemorySessionRegistry) Track(ctx context.Context, s OpenSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UploadID] = s
	return nil
}

func (m *MemorySessionRegistry) Forget(ctx context.Context, uploadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, uploadID)
	return nil
}

func (m *MemorySessionRegistry) List(ctx context.Context) ([]OpenSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OpenSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sortSessions(out)
	return out, nil
}

func (m *MemorySessionRegistry) Close() error {
	return nil
}

func sortSessions(sessions []OpenSession) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
}
