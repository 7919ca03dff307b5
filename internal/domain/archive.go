// internal/domain/archive.go
package domain

import (
	"fmt"
	"path"
	"strings"
)

// ObjectReference identifies one source object and the name it carries inside the archive.
type ObjectReference struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// ArchiveRequest asks for a set of objects to be packed into one archive.
// An empty TargetKey selects local mode: the archive is written to the local path
// instead of being uploaded.
type ArchiveRequest struct {
	TargetKey string            `json:"key_zip"`
	Objects   []ObjectReference `json:"files"`
}

// Remote reports whether the archive is delivered to the object store.
func (r ArchiveRequest) Remote() bool {
	return r.TargetKey != ""
}

// Normalize trims keys and fills empty entry names with the base name of the key.
func (r ArchiveRequest) Normalize() ArchiveRequest {
	out := ArchiveRequest{
		TargetKey: strings.TrimSpace(r.TargetKey),
		Objects:   make([]ObjectReference, len(r.Objects)),
	}
	for i, obj := range r.Objects {
		key := strings.TrimSpace(obj.Key)
		name := strings.TrimSpace(obj.Name)
		if name == "" && key != "" {
			name = path.Base(key)
		}
		out.Objects[i] = ObjectReference{Key: key, Name: name}
	}
	return out
}

// Validate rejects requests the pipeline cannot turn into a well-formed archive.
func (r ArchiveRequest) Validate() error {
	if len(r.Objects) == 0 {
		return fmt.Errorf("%w: no objects to archive", ErrInvalidRequest)
	}

	seen := make(map[string]int, len(r.Objects))
	for i, obj := range r.Objects {
		if obj.Key == "" {
			return fmt.Errorf("%w: object %d has an empty key", ErrInvalidRequest, i)
		}
		if obj.Name == "" {
			return fmt.Errorf("%w: object %d (%s) has an empty archive name", ErrInvalidRequest, i, obj.Key)
		}
		if prev, dup := seen[obj.Name]; dup {
			return fmt.Errorf("%w: archive name %q used by objects %d and %d", ErrInvalidRequest, obj.Name, prev, i)
		}
		seen[obj.Name] = i
	}
	return nil
}

// DownloadedItem is one fetched payload on its way to the archive stage.
type DownloadedItem struct {
	Name    string
	Payload []byte
}

// PartDescriptor acknowledges one uploaded part of a multipart session.
type PartDescriptor struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// DeliveryMode describes where an archive ended up.
type DeliveryMode string

const (
	DeliveryRemote DeliveryMode = "remote"
	DeliveryLocal  DeliveryMode = "local"
)

// SkippedObject records an object left out of the archive because its download failed.
type SkippedObject struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ArchiveResult summarizes a completed pipeline run.
type ArchiveResult struct {
	RunID     string          `json:"run_id"`
	Status    string          `json:"status"`
	Mode      DeliveryMode    `json:"mode"`
	TargetKey string          `json:"target_key,omitempty"`
	LocalPath string          `json:"local_path,omitempty"`
	Location  string          `json:"location,omitempty"`
	UploadID  string          `json:"upload_id,omitempty"`
	Entries   []string        `json:"entries"`
	Skipped   []SkippedObject `json:"skipped,omitempty"`
	Parts     int             `json:"parts"`
	Bytes     int64           `json:"bytes"`
}

// StatusCompleted is the status reported by a successful run.
const StatusCompleted = "completed"
