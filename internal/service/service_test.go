package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/objzip/internal/cache"
	"github.com/andresuchdata/objzip/internal/domain"
)

type stubRunner struct {
	got []domain.ArchiveRequest
	res *domain.ArchiveResult
	err error
}

func (r *stubRunner) Run(ctx context.Context, req domain.ArchiveRequest) (*domain.ArchiveResult, error) {
	r.got = append(r.got, req)
	return r.res, r.err
}

func TestCompressNormalizesBeforeRunning(t *testing.T) {
	runner := &stubRunner{res: &domain.ArchiveResult{RunID: "r1", Status: domain.StatusCompleted}}
	svc := NewArchiveService(runner)

	res, err := svc.Compress(context.Background(), domain.ArchiveRequest{
		TargetKey: " out.zip ",
		Objects:   []domain.ObjectReference{{Key: "docs/a.txt"}, {Key: "b", Name: "renamed.txt"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", res.RunID)

	require.Len(t, runner.got, 1)
	assert.Equal(t, "out.zip", runner.got[0].TargetKey)
	assert.Equal(t, []domain.ObjectReference{
		{Key: "docs/a.txt", Name: "a.txt"},
		{Key: "b", Name: "renamed.txt"},
	}, runner.got[0].Objects)
}

func TestCompressRejectsInvalidRequest(t *testing.T) {
	runner := &stubRunner{}
	svc := NewArchiveService(runner)

	_, err := svc.Compress(context.Background(), domain.ArchiveRequest{
		TargetKey: "out.zip",
		Objects:   []domain.ObjectReference{{Key: "x/a.txt"}, {Key: "y/a.txt"}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Empty(t, runner.got)
}

func TestCompressPassesPipelineError(t *testing.T) {
	cause := &domain.SessionError{Op: domain.SessionCreate, TargetKey: "out.zip", Err: errors.New("denied")}
	svc := NewArchiveService(&stubRunner{err: cause})

	_, err := svc.Compress(context.Background(), domain.ArchiveRequest{
		TargetKey: "out.zip",
		Objects:   []domain.ObjectReference{{Key: "a"}},
	})
	require.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestHealthCheck(t *testing.T) {
	svc := NewHealthService()
	assert.True(t, svc.Check(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, svc.Check(ctx))
}

type stubAborter struct {
	aborted []string
	fail    map[string]error
}

func (a *stubAborter) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	if err := a.fail[uploadID]; err != nil {
		return err
	}
	a.aborted = append(a.aborted, uploadID)
	return nil
}

func TestSweepAbortsOnlyStaleSessions(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	registry := cache.NewMemorySessionRegistry()
	ctx := context.Background()
	require.NoError(t, registry.Track(ctx, cache.OpenSession{UploadID: "old", TargetKey: "a.zip", StartedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, registry.Track(ctx, cache.OpenSession{UploadID: "broken", TargetKey: "b.zip", StartedAt: now.Add(-3 * time.Hour)}))
	require.NoError(t, registry.Track(ctx, cache.OpenSession{UploadID: "fresh", TargetKey: "c.zip", StartedAt: now.Add(-time.Minute)}))

	aborter := &stubAborter{fail: map[string]error{"broken": errors.New("no such upload")}}
	svc := NewSweepService(registry, aborter)
	svc.now = func() time.Time { return now }

	report, err := svc.Sweep(ctx, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, SweepReport{Checked: 2, Aborted: 1, Failed: 1}, report)
	assert.Equal(t, []string{"old"}, aborter.aborted)

	left, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "broken", left[0].UploadID)
	assert.Equal(t, "fresh", left[1].UploadID)
}

func TestSweepWithNoopRegistry(t *testing.T) {
	svc := NewSweepService(nil, &stubAborter{})
	report, err := svc.Sweep(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Zero(t, report)
}
