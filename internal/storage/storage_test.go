package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/burncare/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	key         string
	data        []byte
	contentType string
	putErr      error
	closed      int
}

func (b *recordingBackend) EnsureBucket(context.Context) error { return nil }

func (b *recordingBackend) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if b.putErr != nil {
		return b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.key, b.data, b.contentType = key, data, contentType
	return nil
}

func (b *recordingBackend) Bucket() string { return "snapshots" }

func (b *recordingBackend) Close() error {
	b.closed++
	return nil
}

func TestStoragePut(t *testing.T) {
	backend := &recordingBackend{}
	s := NewStorage(backend)

	payload := []byte(`{"totalUsers":3}`)
	require.NoError(t, s.Put(context.Background(), "stats/a.json", bytes.NewReader(payload), int64(len(payload)), "application/json"))
	assert.Equal(t, "stats/a.json", backend.key)
	assert.Equal(t, payload, backend.data)
	assert.Equal(t, "application/json", backend.contentType)
	assert.Equal(t, "snapshots", s.Bucket())
}

func TestStoragePut_WrapsError(t *testing.T) {
	boom := errors.New("boom")
	s := NewStorage(&recordingBackend{putErr: boom})

	err := s.Put(context.Background(), "k", bytes.NewReader(nil), 0, "")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "snapshots/k")
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	s, err := NewFromConfig(ctx, config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewFromConfig(ctx, config.StorageConfig{Backend: "s3"})
	assert.Error(t, err)

	_, err = NewFromConfig(ctx, config.StorageConfig{Backend: "minio", Minio: config.MinioConfig{Endpoint: "localhost:9000", Bucket: "b"}})
	assert.Error(t, err)

	s, err = NewFromConfig(ctx, config.StorageConfig{
		Backend: "MINIO",
		Minio: config.MinioConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "minio",
			SecretKey: "minio123",
			Bucket:    "burncare",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "burncare", s.Bucket())

	_, err = NewFromConfig(ctx, config.StorageConfig{Backend: "gcs"})
	assert.Error(t, err)
}

func TestStorageClose(t *testing.T) {
	backend := &recordingBackend{}
	s := NewStorage(backend)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, backend.closed)
}
