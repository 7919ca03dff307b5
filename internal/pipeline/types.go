package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/objzip/internal/cache"
	"github.com/andresuchdata/objzip/internal/config"
)

// queueCapacity bounds how many downloaded payloads may wait for the upload stage.
const queueCapacity = 1

// Config holds the knobs of one archive pipeline.
type Config struct {
	Framing        string        // config.FramingFragment or config.FramingStream
	PartSize       int64         // part size for stream framing
	LocalPath      string        // archive file written in local mode
	AbortOnFailure bool          // abort the multipart session when a run fails
	AbortTimeout   time.Duration // deadline for the abort call
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Framing:        config.FramingFragment,
		PartSize:       config.MinPartSize,
		LocalPath:      "./data/output/archive.zip",
		AbortOnFailure: true,
		AbortTimeout:   30 * time.Second,
	}
}

// ConfigFrom maps the archive section of the application config.
func ConfigFrom(cfg config.ArchiveConfig) Config {
	out := DefaultConfig()
	if cfg.Framing != "" {
		out.Framing = cfg.Framing
	}
	if cfg.PartSize > 0 {
		out.PartSize = cfg.PartSize
	}
	if cfg.LocalPath != "" {
		out.LocalPath = cfg.LocalPath
	}
	out.AbortOnFailure = cfg.AbortOnFailure
	if cfg.AbortTimeout > 0 {
		out.AbortTimeout = cfg.AbortTimeout
	}
	return out
}

// SessionState represents where a multipart session is in its lifecycle
type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized"
	SessionOpen          SessionState = "open"
	SessionUploadingPart SessionState = "uploading_part"
	SessionCompleted     SessionState = "completed"
	SessionAborted       SessionState = "aborted"
)

// SessionTracker records open multipart sessions while a run owns them.
type SessionTracker interface {
	Track(ctx context.Context, s cache.OpenSession) error
	Forget(ctx context.Context, uploadID string) error
}
