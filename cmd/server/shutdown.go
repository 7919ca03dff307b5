package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/andresuchdata/objzip/pkg/logger"
)

// shutdown stops srv in two phases. Requests first get grace to finish on their own.
// Requests still running after that have their contexts cancelled through cancelRuns,
// and get another grace period to abort their multipart sessions and return.
func shutdown(srv *http.Server, cancelRuns context.CancelFunc, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	err := srv.Shutdown(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		cancelRuns()
		return err
	}

	logger.Log.Warn().Dur("grace", grace).Msg("Requests still running, cancelling them")
	cancelRuns()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), grace)
	defer drainCancel()
	return srv.Shutdown(drainCtx)
}
