package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/objzip/internal/archive"
	"github.com/andresuchdata/objzip/internal/config"
	"github.com/andresuchdata/objzip/internal/domain"
	"github.com/andresuchdata/objzip/internal/storage"
)

// archiveSink receives downloaded items in order and delivers the archive somewhere.
type archiveSink interface {
	// add appends one item. An error is fatal to the run.
	add(ctx context.Context, item domain.DownloadedItem) error
	// finish is called once the queue is drained.
	finish(ctx context.Context) error
	// fail releases whatever the sink holds after a fatal error or cancellation.
	fail(ctx context.Context)
	// fill copies the delivery details into a run result.
	fill(res *domain.ArchiveResult)
}

// uploadStage consumes the queue until it is closed and drained, then finishes the sink.
// It stops at the first sink error or when ctx is cancelled.
func uploadStage(ctx context.Context, sink archiveSink, in <-chan domain.DownloadedItem) error {
	for {
		select {
		case <-ctx.Done():
			sink.fail(ctx)
			return ctx.Err()
		case item, ok := <-in:
			if !ok {
				// The fetch stage also closes the queue when it is cancelled.
				if err := ctx.Err(); err != nil {
					sink.fail(ctx)
					return err
				}
				if err := sink.finish(ctx); err != nil {
					sink.fail(ctx)
					return err
				}
				return nil
			}
			if err := sink.add(ctx, item); err != nil {
				sink.fail(ctx)
				return err
			}
		}
	}
}

// remoteSink uploads to a multipart session, either one archive per part (fragment
// framing) or one archive cut into fixed-size parts (stream framing).
type remoteSink struct {
	session        *multipartSession
	log            zerolog.Logger
	abortOnFailure bool
	abortTimeout   time.Duration

	entries []string
	bytes   int64

	// stream framing only
	writer   *archive.Writer
	splitter *archive.Splitter
	current  string
}

func newRemoteSink(ctx context.Context, store storage.ObjectStore, tracker SessionTracker, logger zerolog.Logger, cfg Config, runID, key string) (*remoteSink, error) {
	s := &remoteSink{
		session:        newMultipartSession(store, tracker, logger, runID, key),
		log:            logger,
		abortOnFailure: cfg.AbortOnFailure,
		abortTimeout:   cfg.AbortTimeout,
	}
	if err := s.session.open(ctx); err != nil {
		return nil, err
	}

	if cfg.Framing == config.FramingStream {
		partSize := cfg.PartSize
		if partSize <= 0 {
			partSize = config.MinPartSize
		}
		s.splitter = archive.NewSplitter(int(partSize), func(part []byte) error {
			if err := s.session.uploadPart(ctx, s.current, part); err != nil {
				return err
			}
			s.bytes += int64(len(part))
			return nil
		})
		s.writer = archive.NewWriter(s.splitter)
	}
	return s, nil
}

func (s *remoteSink) add(ctx context.Context, item domain.DownloadedItem) error {
	if s.writer != nil {
		s.current = item.Name
		if err := s.writer.Add(item.Name, item.Payload); err != nil {
			return unwrapPartError(err)
		}
		s.entries = append(s.entries, item.Name)
		return nil
	}

	fragment, err := archive.BuildFragment(item.Name, item.Payload)
	if err != nil {
		return err
	}
	if err := s.session.uploadPart(ctx, item.Name, fragment); err != nil {
		return err
	}
	s.entries = append(s.entries, item.Name)
	s.bytes += int64(len(fragment))
	return nil
}

func (s *remoteSink) finish(ctx context.Context) error {
	if len(s.entries) == 0 {
		if err := s.session.abort(ctx, s.abortTimeout); err != nil {
			s.log.Error().Err(err).Msg("failed to abort empty multipart session")
		}
		return domain.ErrEmptyArchive
	}

	if s.writer != nil {
		s.current = "central directory"
		if err := s.writer.Close(); err != nil {
			return unwrapPartError(err)
		}
		if err := s.splitter.Flush(); err != nil {
			return err
		}
	}

	return s.session.complete(ctx)
}

func (s *remoteSink) fail(ctx context.Context) {
	if !s.abortOnFailure {
		return
	}
	if err := s.session.abort(ctx, s.abortTimeout); err != nil {
		s.log.Error().Err(err).Msg("failed to abort multipart session")
	}
}

func (s *remoteSink) fill(res *domain.ArchiveResult) {
	res.Mode = domain.DeliveryRemote
	res.UploadID = s.session.uploadID
	res.Location = s.session.location
	res.Entries = s.entries
	res.Parts = len(s.session.parts)
	res.Bytes = s.bytes
}

// unwrapPartError surfaces a part upload failure that happened inside the archive
// writer, which wraps errors from the underlying stream.
func unwrapPartError(err error) error {
	var partErr *domain.PartUploadError
	if errors.As(err, &partErr) {
		return partErr
	}
	return err
}

// localSink writes a single archive file on the local filesystem. Entries go to a
// temporary file in the same directory, which replaces path only once the archive is
// complete, so concurrent runs never interleave their bytes in one file.
type localSink struct {
	path    string
	tmpPath string
	file    *os.File
	writer  *archive.Writer
}

func newLocalSink(path string) (*localSink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &domain.LocalWriteError{Path: path, Err: err}
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, &domain.LocalWriteError{Path: path, Err: err}
	}
	return &localSink{
		path:    path,
		tmpPath: f.Name(),
		file:    f,
		writer:  archive.NewWriter(f),
	}, nil
}

func (s *localSink) add(ctx context.Context, item domain.DownloadedItem) error {
	if err := s.writer.Add(item.Name, item.Payload); err != nil {
		return &domain.LocalWriteError{Path: s.path, Err: err}
	}
	return nil
}

func (s *localSink) finish(ctx context.Context) error {
	if err := s.writer.Close(); err != nil {
		return &domain.LocalWriteError{Path: s.path, Err: err}
	}
	f := s.file
	s.file = nil
	if err := f.Close(); err != nil {
		return &domain.LocalWriteError{Path: s.path, Err: err}
	}
	// CreateTemp uses 0600; match what os.Create would have produced.
	if err := os.Chmod(s.tmpPath, 0o644); err != nil {
		return &domain.LocalWriteError{Path: s.path, Err: err}
	}
	if err := os.Rename(s.tmpPath, s.path); err != nil {
		return &domain.LocalWriteError{Path: s.path, Err: err}
	}
	s.tmpPath = ""
	return nil
}

// fail drops the temporary file. An archive already at path is left alone.
func (s *localSink) fail(ctx context.Context) {
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	if s.tmpPath != "" {
		_ = os.Remove(s.tmpPath)
		s.tmpPath = ""
	}
}

func (s *localSink) fill(res *domain.ArchiveResult) {
	res.Mode = domain.DeliveryLocal
	res.LocalPath = s.path
	res.Entries = s.writer.Entries()
	res.Bytes = s.writer.Written()
}

var (
	_ archiveSink = (*remoteSink)(nil)
	_ archiveSink = (*localSink)(nil)
)

func describeFraming(cfg Config) string {
	if cfg.Framing == config.FramingStream {
		return fmt.Sprintf("%s/%d", cfg.Framing, cfg.PartSize)
	}
	return cfg.Framing
}
