package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/objzip/internal/cache"
	"github.com/andresuchdata/objzip/internal/domain"
	"github.com/andresuchdata/objzip/internal/storage"
)

// multipartSession drives one multipart upload from creation to completion or abort.
// It is owned by the upload stage and never shared between goroutines.
type multipartSession struct {
	store    storage.ObjectStore
	tracker  SessionTracker
	log      zerolog.Logger
	runID    string
	key      string
	uploadID string
	state    SessionState
	parts    []domain.PartDescriptor
	location string
}

func newMultipartSession(store storage.ObjectStore, tracker SessionTracker, logger zerolog.Logger, runID, key string) *multipartSession {
	return &multipartSession{
		store:   store,
		tracker: tracker,
		log:     logger,
		runID:   runID,
		key:     key,
		state:   SessionUninitialized,
	}
}

func (s *multipartSession) open(ctx context.Context) error {
	if s.state != SessionUninitialized {
		return fmt.Errorf("open multipart session for %s: session is %s", s.key, s.state)
	}

	uploadID, err := s.store.CreateMultipartUpload(ctx, s.key)
	if err != nil {
		return &domain.SessionError{Op: domain.SessionCreate, TargetKey: s.key, Err: err}
	}
	s.uploadID = uploadID
	s.state = SessionOpen

	if err := s.tracker.Track(ctx, cache.OpenSession{
		RunID:     s.runID,
		TargetKey: s.key,
		UploadID:  uploadID,
		StartedAt: time.Now().UTC(),
	}); err != nil {
		s.log.Warn().Err(err).Str("upload_id", uploadID).Msg("failed to register open session")
	}

	s.log.Debug().Str("upload_id", uploadID).Msg("multipart session opened")
	return nil
}

// nextPartNumber is the number the next uploaded part will carry. Parts are numbered from 1.
func (s *multipartSession) nextPartNumber() int {
	return len(s.parts) + 1
}

func (s *multipartSession) uploadPart(ctx context.Context, entry string, body []byte) error {
	if s.state != SessionOpen {
		return fmt.Errorf("upload part to %s: session is %s", s.key, s.state)
	}

	partNumber := s.nextPartNumber()
	s.state = SessionUploadingPart
	etag, err := s.store.UploadPart(ctx, s.key, s.uploadID, partNumber, body)
	s.state = SessionOpen
	if err != nil {
		return &domain.PartUploadError{
			TargetKey:  s.key,
			UploadID:   s.uploadID,
			PartNumber: partNumber,
			Entry:      entry,
			Err:        err,
		}
	}

	s.parts = append(s.parts, domain.PartDescriptor{PartNumber: partNumber, ETag: etag})
	s.log.Debug().
		Int("part", partNumber).
		Str("entry", entry).
		Int("bytes", len(body)).
		Msg("part uploaded")
	return nil
}

func (s *multipartSession) complete(ctx context.Context) error {
	if s.state != SessionOpen {
		return fmt.Errorf("complete multipart upload for %s: session is %s", s.key, s.state)
	}

	location, err := s.store.CompleteMultipartUpload(ctx, s.key, s.uploadID, s.parts)
	if err != nil {
		return &domain.SessionError{Op: domain.SessionComplete, TargetKey: s.key, UploadID: s.uploadID, Err: err}
	}
	s.location = location
	s.state = SessionCompleted
	s.forget(ctx)
	return nil
}

// abort discards an open session. It runs on a context detached from ctx so that a
// cancelled request still cleans up after itself.
func (s *multipartSession) abort(ctx context.Context, timeout time.Duration) error {
	if s.state != SessionOpen && s.state != SessionUploadingPart {
		return nil
	}

	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.state = SessionAborted
	if err := s.store.AbortMultipartUpload(abortCtx, s.key, s.uploadID); err != nil {
		return &domain.SessionError{Op: domain.SessionAbort, TargetKey: s.key, UploadID: s.uploadID, Err: err}
	}
	s.forget(abortCtx)

	s.log.Info().Str("upload_id", s.uploadID).Int("parts", len(s.parts)).Msg("multipart session aborted")
	return nil
}

func (s *multipartSession) forget(ctx context.Context) {
	if err := s.tracker.Forget(ctx, s.uploadID); err != nil {
		s.log.Warn().Err(err).Str("upload_id", s.uploadID).Msg("failed to unregister session")
	}
}
