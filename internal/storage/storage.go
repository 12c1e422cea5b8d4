// Package storage opens the BlobStore behind an output location string.
//
// Locations take three forms:
//   - gs://bucket/prefix writes objects into Google Cloud Storage.
//   - memory:// keeps everything in-process (dry runs and tests).
//   - anything else is a local directory, created when missing.
package storage

import (
	"context"
	"fmt"
	"strings"

	gcsclient "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/storage/gcs"
	"github.com/JakeFAU/topic-harvester/internal/storage/local"
	"github.com/JakeFAU/topic-harvester/internal/storage/memory"
)

const (
	gcsScheme    = "gs://"
	memoryScheme = "memory://"
)

// Store is an opened output location.
type Store struct {
	harvest.BlobStore
	// Location is the normalised location string, suitable for display.
	Location string

	closeFn func() error
}

// Close releases any client held by the store.
func (s *Store) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Open resolves location into a Store. GCS client options are passed through
// to the client constructor.
func Open(ctx context.Context, location string, opts ...option.ClientOption) (*Store, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, fmt.Errorf("output location is required")
	case strings.HasPrefix(location, gcsScheme):
		bucket, prefix := SplitGCS(location)
		if bucket == "" {
			return nil, fmt.Errorf("bucket is required in %q", location)
		}
		client, err := gcsclient.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: bucket, Prefix: prefix})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("init gcs store: %w", err)
		}
		return &Store{BlobStore: store, Location: location, closeFn: client.Close}, nil
	case strings.HasPrefix(location, memoryScheme):
		return &Store{BlobStore: memory.NewBlobStore(), Location: location}, nil
	default:
		store, err := local.New(local.Config{BaseDir: location})
		if err != nil {
			return nil, fmt.Errorf("init local store: %w", err)
		}
		return &Store{BlobStore: store, Location: store.BaseDir()}, nil
	}
}

// SplitGCS splits gs://bucket/some/prefix into its bucket and prefix.
func SplitGCS(location string) (string, string) {
	rest := strings.TrimPrefix(location, gcsScheme)
	bucket, prefix, _ := strings.Cut(rest, "/")
	return bucket, strings.Trim(prefix, "/")
}
