package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/objzip/internal/config"
	"github.com/andresuchdata/objzip/internal/domain"
)

type fakeMinioCore struct {
	objects   map[string]string
	parts     map[int]string
	completed []minio.CompletePart
	aborted   []string
}

func (f *fakeMinioCore) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, http.Header, error) {
	body, ok := f.objects[object]
	if !ok {
		return nil, minio.ObjectInfo{}, nil, minio.ErrorResponse{Code: "NoSuchKey", Message: "missing"}
	}
	return io.NopCloser(strings.NewReader(body)), minio.ObjectInfo{Key: object}, http.Header{}, nil
}

func (f *fakeMinioCore) NewMultipartUpload(ctx context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error) {
	return "minio-upload", nil
}

func (f *fakeMinioCore) PutObjectPart(ctx context.Context, bucket, object, uploadID string, partID int, data io.Reader, size int64, opts minio.PutObjectPartOptions) (minio.ObjectPart, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return minio.ObjectPart{}, err
	}
	if f.parts == nil {
		f.parts = make(map[int]string)
	}
	f.parts[partID] = string(body)
	return minio.ObjectPart{PartNumber: partID, ETag: "etag-" + string(body), Size: size}, nil
}

func (f *fakeMinioCore) CompleteMultipartUpload(ctx context.Context, bucket, object, uploadID string, parts []minio.CompletePart, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.completed = parts
	return minio.UploadInfo{Bucket: bucket, Key: object}, nil
}

func (f *fakeMinioCore) AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error {
	f.aborted = append(f.aborted, uploadID)
	return nil
}

func TestMinioClientGetObject(t *testing.T) {
	core := &fakeMinioCore{objects: map[string]string{"b.txt": "world"}}
	client := newMinioClient(core, "archives")

	data, err := client.GetObject(context.Background(), "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	_, err = client.GetObject(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestMinioClientMultipart(t *testing.T) {
	core := &fakeMinioCore{}
	client := newMinioClient(core, "archives")
	ctx := context.Background()

	uploadID, err := client.CreateMultipartUpload(ctx, "out.zip")
	require.NoError(t, err)
	assert.Equal(t, "minio-upload", uploadID)

	etag, err := client.UploadPart(ctx, "out.zip", uploadID, 1, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "etag-abc", etag)
	assert.Equal(t, "abc", core.parts[1])

	location, err := client.CompleteMultipartUpload(ctx, "out.zip", uploadID, []domain.PartDescriptor{{PartNumber: 1, ETag: etag}})
	require.NoError(t, err)
	assert.Equal(t, "archives/out.zip", location)
	assert.Equal(t, []minio.CompletePart{{PartNumber: 1, ETag: "etag-abc"}}, core.completed)

	require.NoError(t, client.AbortMultipartUpload(ctx, "out.zip", uploadID))
	assert.Equal(t, []string{"minio-upload"}, core.aborted)
}

func TestNewMinioClientValidatesConfig(t *testing.T) {
	_, err := NewMinioClient(config.StorageConfig{AccessKey: "a", SecretKey: "b", Bucket: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")

	client, err := NewMinioClient(config.StorageConfig{
		Endpoint:  "http://localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "archives",
	})
	require.NoError(t, err)
	assert.Equal(t, "archives", client.bucket)
}

func TestNewObjectStoreRejectsUnknownDriver(t *testing.T) {
	_, err := NewObjectStore(context.Background(), config.StorageConfig{Driver: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}
