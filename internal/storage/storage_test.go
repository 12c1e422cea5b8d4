package storage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/topic-harvester/internal/storage"
	"github.com/JakeFAU/topic-harvester/internal/storage/gcs"
	"github.com/JakeFAU/topic-harvester/internal/storage/local"
	"github.com/JakeFAU/topic-harvester/internal/storage/memory"
)

func TestSplitGCS(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		prefix string
	}{
		{"gs://bucket", "bucket", ""},
		{"gs://bucket/", "bucket", ""},
		{"gs://bucket/a/b/", "bucket", "a/b"},
		{"gs://", "", ""},
	}
	for _, tt := range tests {
		bucket, prefix := storage.SplitGCS(tt.in)
		assert.Equal(t, tt.bucket, bucket, tt.in)
		assert.Equal(t, tt.prefix, prefix, tt.in)
	}
}

func TestOpenLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wiki_dl")
	store, err := storage.Open(context.Background(), dir)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.BlobStore.(*local.BlobStore)
	assert.True(t, ok)
	assert.Equal(t, dir, store.Location)
}

func TestOpenMemory(t *testing.T) {
	store, err := storage.Open(context.Background(), "memory://")
	require.NoError(t, err)
	_, ok := store.BlobStore.(*memory.BlobStore)
	assert.True(t, ok)
	assert.NoError(t, store.Close())
}

func TestOpenGCS(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	store, err := storage.Open(
		context.Background(),
		"gs://bucket/refs",
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	defer store.Close()

	gs, ok := store.BlobStore.(*gcs.BlobStore)
	require.True(t, ok)
	assert.Equal(t, "refs/Topic.txt", gs.ObjectName("Topic.txt"))
}

func TestOpenRejectsEmpty(t *testing.T) {
	_, err := storage.Open(context.Background(), "  ")
	assert.Error(t, err)

	_, err = storage.Open(context.Background(), "gs://")
	assert.Error(t, err)
}
