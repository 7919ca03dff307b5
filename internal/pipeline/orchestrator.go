package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/objzip/internal/cache"
	"github.com/andresuchdata/objzip/internal/domain"
	"github.com/andresuchdata/objzip/internal/storage"
)

// Orchestrator runs the two-stage archive pipeline: a fetch stage downloading objects
// and an upload stage packing them, connected by a queue holding at most one payload.
type Orchestrator struct {
	store   storage.ObjectStore
	cfg     Config
	tracker SessionTracker
}

// NewOrchestrator creates a new Orchestrator. A nil tracker disables session tracking.
func NewOrchestrator(store storage.ObjectStore, cfg Config, tracker SessionTracker) *Orchestrator {
	if tracker == nil {
		tracker = cache.NewNoopSessionRegistry()
	}
	return &Orchestrator{
		store:   store,
		cfg:     cfg,
		tracker: tracker,
	}
}

// Run archives the objects of req. A request with a target key is uploaded to the
// object store; without one the archive is written to the configured local path.
// Run only succeeds when both stages succeed; otherwise it returns the first fatal error.
func (o *Orchestrator) Run(ctx context.Context, req domain.ArchiveRequest) (*domain.ArchiveResult, error) {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()
	if req.Remote() {
		logger = logger.With().Str("target", req.TargetKey).Str("framing", describeFraming(o.cfg)).Logger()
	} else {
		logger = logger.With().Str("local_path", o.cfg.LocalPath).Logger()
	}

	start := time.Now()
	logger.Info().Int("objects", len(req.Objects)).Msg("archive run started")

	queue := make(chan domain.DownloadedItem, queueCapacity)
	g, gctx := errgroup.WithContext(ctx)

	var skipped []domain.SkippedObject
	g.Go(func() error {
		var err error
		skipped, err = fetchStage(gctx, o.store, logger, req.Objects, queue)
		return err
	})

	var sink archiveSink
	g.Go(func() error {
		var err error
		if req.Remote() {
			sink, err = newRemoteSink(gctx, o.store, o.tracker, logger, o.cfg, runID, req.TargetKey)
		} else {
			sink, err = newLocalSink(o.cfg.LocalPath)
		}
		if err != nil {
			return err
		}
		return uploadStage(gctx, sink, queue)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("archive run failed")
		return nil, err
	}

	res := &domain.ArchiveResult{
		RunID:     runID,
		Status:    domain.StatusCompleted,
		TargetKey: req.TargetKey,
		Skipped:   skipped,
	}
	sink.fill(res)
	if res.Entries == nil {
		res.Entries = []string{}
	}

	logger.Info().
		Int("entries", len(res.Entries)).
		Int("skipped", len(res.Skipped)).
		Int("parts", res.Parts).
		Int64("bytes", res.Bytes).
		Dur("elapsed", time.Since(start)).
		Msg("archive run completed")

	return res, nil
}
