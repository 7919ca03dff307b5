package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/objzip/internal/cache"
	"github.com/andresuchdata/objzip/internal/config"
	"github.com/andresuchdata/objzip/internal/domain"
	"github.com/andresuchdata/objzip/internal/pipeline"
	"github.com/andresuchdata/objzip/internal/service"
	"github.com/andresuchdata/objzip/internal/storage"
	"github.com/andresuchdata/objzip/pkg/logger"
)

// parseObjectArgs turns "key" or "key=name" arguments into object references.
// The last '=' separates the name, so keys such as "dt=2024-01-01/a.csv=a.csv" work.
func parseObjectArgs(args []string) ([]domain.ObjectReference, error) {
	objects := make([]domain.ObjectReference, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		key, name := arg, ""
		if i := strings.LastIndex(arg, "="); i >= 0 {
			key, name = arg[:i], arg[i+1:]
		}
		if key == "" {
			return nil, fmt.Errorf("object %q has an empty key", arg)
		}
		objects = append(objects, domain.ObjectReference{Key: key, Name: name})
	}
	return objects, nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Load()
	if output := c.String("output"); output != "" {
		cfg.Archive.LocalPath = output
	}
	if framing := c.String("framing"); framing != "" {
		cfg.Archive.Framing = strings.ToLower(framing)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openRegistry(cfg config.CacheConfig) cache.SessionRegistry {
	if !cfg.Enabled {
		return cache.NewMemorySessionRegistry()
	}
	registry, err := cache.NewSessionRegistry(cfg)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("session registry unavailable, tracking in memory")
		return cache.NewMemorySessionRegistry()
	}
	return registry
}

func runCompress(c *cli.Context) error {
	objects, err := parseObjectArgs(c.StringSlice("object"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	registry := openRegistry(cfg.Cache)
	defer registry.Close()

	svc := service.NewArchiveService(pipeline.NewOrchestrator(store, pipeline.ConfigFrom(cfg.Archive), registry))
	res, err := svc.Compress(ctx, domain.ArchiveRequest{
		TargetKey: c.String("target"),
		Objects:   objects,
	})

	reportLeftovers(context.WithoutCancel(ctx), registry)
	if err != nil {
		return err
	}

	return writeJSON(c.App.Writer, domain.ResponseBody[*domain.ArchiveResult]{
		Message: domain.MessageOK,
		Data:    res,
	})
}

// reportLeftovers logs multipart sessions still open after a run, which happens when
// aborting on failure is disabled or the abort itself failed.
func reportLeftovers(ctx context.Context, registry cache.SessionRegistry) {
	sessions, err := registry.List(ctx)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("could not list open sessions")
		return
	}
	for _, s := range sessions {
		logger.Log.Warn().
			Str("upload_id", s.UploadID).
			Str("target", s.TargetKey).
			Msg("multipart session left open; run `objzip sweep` or abort it manually")
	}
}

func runSweep(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		return fmt.Errorf("sweep needs the session registry: set CACHE_ENABLED=true")
	}

	store, err := storage.NewObjectStore(c.Context, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	registry, err := cache.NewSessionRegistry(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to open session registry: %w", err)
	}
	defer registry.Close()

	olderThan := c.Duration("older-than")
	if olderThan <= 0 {
		olderThan = cfg.Cache.SessionStaleAge
	}

	report, sweepErr := service.NewSweepService(registry, store).Sweep(c.Context, olderThan)
	if err := writeJSON(c.App.Writer, domain.ResponseBody[service.SweepReport]{
		Message: domain.MessageOK,
		Data:    report,
	}); err != nil {
		return err
	}
	return sweepErr
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
