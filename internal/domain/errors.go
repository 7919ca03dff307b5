package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks requests rejected before the pipeline starts.
	ErrInvalidRequest = errors.New("invalid archive request")

	// ErrEmptyArchive is returned when a remote run has nothing to upload because every
	// download failed.
	ErrEmptyArchive = errors.New("no objects could be downloaded")
)

// DownloadError is a failed fetch of a single object. It never aborts a run.
type DownloadError struct {
	Key string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Key, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// SessionOp names the multipart session call that failed.
type SessionOp string

const (
	SessionCreate   SessionOp = "create"
	SessionComplete SessionOp = "complete"
	SessionAbort    SessionOp = "abort"
)

// SessionError is a failed create/complete/abort of a multipart upload session.
type SessionError struct {
	Op        SessionOp
	TargetKey string
	UploadID  string
	Err       error
}

func (e *SessionError) Error() string {
	if e.UploadID == "" {
		return fmt.Sprintf("%s multipart upload for %s: %v", e.Op, e.TargetKey, e.Err)
	}
	return fmt.Sprintf("%s multipart upload %s for %s: %v", e.Op, e.UploadID, e.TargetKey, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// PartUploadError is a failed upload of one part. It is fatal to the run.
type PartUploadError struct {
	TargetKey  string
	UploadID   string
	PartNumber int
	Entry      string
	Err        error
}

func (e *PartUploadError) Error() string {
	return fmt.Sprintf("upload part %d (%s) of %s: %v", e.PartNumber, e.Entry, e.TargetKey, e.Err)
}

func (e *PartUploadError) Unwrap() error { return e.Err }

// LocalWriteError is a failure writing the local archive file.
type LocalWriteError struct {
	Path string
	Err  error
}

func (e *LocalWriteError) Error() string {
	return fmt.Sprintf("write local archive %s: %v", e.Path, e.Err)
}

func (e *LocalWriteError) Unwrap() error { return e.Err }
