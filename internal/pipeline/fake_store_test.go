package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/andresuchdata/objzip/internal/domain"
	"github.com/andresuchdata/objzip/internal/storage"
)

type uploadedPart struct {
	Number int
	Body   []byte
}

type completeCall struct {
	Key      string
	UploadID string
	Parts    []domain.PartDescriptor
	// state observed when complete was called
	GetsSoFar  int
	PartsSoFar int
}

// fakeStore is an in-memory storage.ObjectStore recording every call.
type fakeStore struct {
	mu sync.Mutex

	objects map[string][]byte
	gets    []string

	createErr   error
	partErr     map[int]error
	completeErr error
	abortErr    error

	// onUploadPart runs before a part is recorded; a non-nil error fails the part.
	onUploadPart func(ctx context.Context, partNumber int) error

	created   []string
	parts     []uploadedPart
	completes []completeCall
	aborts    []string
}

func newFakeStore(objects map[string]string) *fakeStore {
	s := &fakeStore{
		objects: make(map[string][]byte, len(objects)),
		partErr: make(map[int]error),
	}
	for k, v := range objects {
		s.objects[k] = []byte(v)
	}
	return s
}

func (s *fakeStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, key)
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, storage.ErrObjectNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (s *fakeStore) CreateMultipartUpload(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.created = append(s.created, key)
	return fmt.Sprintf("upload-%d", len(s.created)), nil
}

func (s *fakeStore) UploadPart(ctx context.Context, key, uploadID string, partNumber int, body []byte) (string, error) {
	if hook := s.onUploadPart; hook != nil {
		if err := hook(ctx, partNumber); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.partErr[partNumber]; err != nil {
		return "", err
	}
	s.parts = append(s.parts, uploadedPart{Number: partNumber, Body: append([]byte(nil), body...)})
	return fmt.Sprintf("etag-%d", partNumber), nil
}

func (s *fakeStore) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []domain.PartDescriptor) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completes = append(s.completes, completeCall{
		Key:        key,
		UploadID:   uploadID,
		Parts:      append([]domain.PartDescriptor(nil), parts...),
		GetsSoFar:  len(s.gets),
		PartsSoFar: len(s.parts),
	})
	if s.completeErr != nil {
		return "", s.completeErr
	}
	return "https://bucket.example/" + key, nil
}

func (s *fakeStore) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborts = append(s.aborts, uploadID)
	return s.abortErr
}

func (s *fakeStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gets)
}

func (s *fakeStore) snapshot() (parts []uploadedPart, completes []completeCall, aborts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uploadedPart(nil), s.parts...),
		append([]completeCall(nil), s.completes...),
		append([]string(nil), s.aborts...)
}
