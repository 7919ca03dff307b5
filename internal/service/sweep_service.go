package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/objzip/internal/cache"
)

// SessionAborter is the part of the object store the sweeper needs.
type SessionAborter interface {
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}

// SweepReport summarizes one sweep over the session registry.
type SweepReport struct {
	Checked int `json:"checked"`
	Aborted int `json:"aborted"`
	Failed  int `json:"failed"`
}

// SweepService aborts multipart sessions that were left open by runs that never finished.
type SweepService struct {
	registry cache.SessionRegistry
	store    SessionAborter
	now      func() time.Time
}

func NewSweepService(registry cache.SessionRegistry, store SessionAborter) *SweepService {
	if registry == nil {
		registry = cache.NewNoopSessionRegistry()
	}
	return &SweepService{registry: registry, store: store, now: time.Now}
}

// Sweep aborts every registered session started more than staleAfter ago.
// A failed abort is counted and logged; the sweep carries on with the next session.
func (s *SweepService) Sweep(ctx context.Context, staleAfter time.Duration) (SweepReport, error) {
	var report SweepReport

	sessions, err := s.registry.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list open sessions: %w", err)
	}

	cutoff := s.now().Add(-staleAfter)
	var errs []error
	for _, sess := range sessions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if sess.StartedAt.After(cutoff) {
			continue
		}
		report.Checked++

		logger := log.With().
			Str("upload_id", sess.UploadID).
			Str("target", sess.TargetKey).
			Str("run_id", sess.RunID).
			Logger()

		if err := s.store.AbortMultipartUpload(ctx, sess.TargetKey, sess.UploadID); err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("abort %s: %w", sess.UploadID, err))
			logger.Warn().Err(err).Msg("sweep: abort failed")
			continue
		}
		if err := s.registry.Forget(ctx, sess.UploadID); err != nil {
			logger.Warn().Err(err).Msg("sweep: failed to unregister session")
		}
		report.Aborted++
		logger.Info().Time("started_at", sess.StartedAt).Msg("sweep: stale session aborted")
	}

	return report, errors.Join(errs...)
}
