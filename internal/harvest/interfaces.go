package harvest

import (
	"context"
	"errors"
	"io"
)

// Errors a ContentSource wraps so the Processor can classify failures.
var (
	ErrNotFound  = errors.New("page not found")
	ErrAmbiguous = errors.New("ambiguous title")
	ErrTimeout   = errors.New("request timed out")
)

// ContentSource searches for related topics and fetches their detail records.
type ContentSource interface {
	Search(ctx context.Context, term string, limit int) ([]string, error)
	Fetch(ctx context.Context, identifier string) (Page, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Sanitizer maps a canonical name to a storage-safe key stem.
type Sanitizer func(raw string) string
