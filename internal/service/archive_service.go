package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/objzip/internal/domain"
)

// ArchiveRunner executes one archive pipeline run.
type ArchiveRunner interface {
	Run(ctx context.Context, req domain.ArchiveRequest) (*domain.ArchiveResult, error)
}

type ArchiveService struct {
	runner ArchiveRunner
}

func NewArchiveService(runner ArchiveRunner) *ArchiveService {
	return &ArchiveService{runner: runner}
}

// Compress normalizes and validates req, then runs the pipeline for it.
// Validation failures wrap domain.ErrInvalidRequest.
func (s *ArchiveService) Compress(ctx context.Context, req domain.ArchiveRequest) (*domain.ArchiveResult, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res, err := s.runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(res.Skipped) > 0 {
		log.Warn().
			Str("run_id", res.RunID).
			Int("skipped", len(res.Skipped)).
			Msg("archive: some objects were left out")
	}
	return res, nil
}
