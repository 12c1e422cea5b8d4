package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// FileExtension is appended to every sanitised key.
	FileExtension = ".txt"
	contentType   = "text/plain; charset=utf-8"
)

// ResultSink persists successful outcomes, one object per canonical name.
// Writes are not serialised: two outcomes with the same canonical name in one
// batch race and the last writer wins.
type ResultSink struct {
	store    BlobStore
	sanitize Sanitizer
}

// NewResultSink constructs a ResultSink. A nil sanitizer keeps names as-is.
func NewResultSink(store BlobStore, sanitize Sanitizer) *ResultSink {
	if sanitize == nil {
		sanitize = func(raw string) string { return raw }
	}
	return &ResultSink{store: store, sanitize: sanitize}
}

// Key returns the storage key for a canonical name.
func (s *ResultSink) Key(canonicalName string) string {
	return s.sanitize(canonicalName) + FileExtension
}

// Persist writes the outcome payload as newline-joined text and returns the
// key written. Failed outcomes write nothing and report written=false.
func (s *ResultSink) Persist(ctx context.Context, out Outcome) (string, bool, error) {
	if !out.OK() {
		return "", false, nil
	}
	if s.store == nil {
		return "", false, errors.New("no blob store configured")
	}
	key := s.Key(out.CanonicalName)
	if key == FileExtension {
		return "", false, fmt.Errorf("empty key for %q", out.CanonicalName)
	}
	text := strings.Join(out.Payload, "\n")
	if _, err := s.store.PutObject(ctx, key, contentType, strings.NewReader(text)); err != nil {
		return "", false, fmt.Errorf("put %s: %w", key, err)
	}
	return key, true, nil
}
