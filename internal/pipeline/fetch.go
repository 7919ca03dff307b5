package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/objzip/internal/domain"
	"github.com/andresuchdata/objzip/internal/storage"
)

// fetchStage downloads objects one by one, in request order, and hands them to out.
// A failed download is logged and skipped. The channel is always closed on return.
func fetchStage(
	ctx context.Context,
	store storage.ObjectStore,
	logger zerolog.Logger,
	objects []domain.ObjectReference,
	out chan<- domain.DownloadedItem,
) ([]domain.SkippedObject, error) {
	defer close(out)

	var skipped []domain.SkippedObject
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return skipped, err
		}

		payload, err := store.GetObject(ctx, obj.Key)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return skipped, ctxErr
			}
			dlErr := &domain.DownloadError{Key: obj.Key, Err: err}
			logger.Warn().Err(dlErr).Str("key", obj.Key).Str("name", obj.Name).Msg("skipping object")
			skipped = append(skipped, domain.SkippedObject{Key: obj.Key, Name: obj.Name, Reason: err.Error()})
			continue
		}

		logger.Debug().Str("key", obj.Key).Int("bytes", len(payload)).Msg("object downloaded")

		select {
		case <-ctx.Done():
			return skipped, ctx.Err()
		case out <- domain.DownloadedItem{Name: obj.Name, Payload: payload}:
		}
	}

	return skipped, nil
}
