package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"tradedash/internal/core"
)

// Source produces a freshly loaded table on every call.
type Source interface {
	Load(ctx context.Context) (*core.Table, error)
	Name() string
}

// FileSource reads a CSV file from the local filesystem.
type FileSource struct {
	Path   string
	Strict bool
}

var _ Source = (*FileSource)(nil)

// Name implements Source.
func (s *FileSource) Name() string {
	return s.Path
}

// Load implements Source.
func (s *FileSource) Load(_ context.Context) (*core.Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, core.NewLoadError(s.Path, fmt.Errorf("open file: %w", err))
	}
	defer f.Close()

	return Parse(f, ParseOptions{Source: s.Path, Strict: s.Strict})
}

// IsGCSURI reports whether path names a Cloud Storage object.
func IsGCSURI(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// SplitGCSURI splits gs://bucket/path/to/object into bucket and object.
func SplitGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// ObjectReader opens objects in a bucket store.
type ObjectReader interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// GCSSource reads a CSV object from Cloud Storage.
type GCSSource struct {
	URI    string
	Strict bool
	Reader ObjectReader
}

var _ Source = (*GCSSource)(nil)

// Name implements Source.
func (s *GCSSource) Name() string {
	return s.URI
}

// Load implements Source.
func (s *GCSSource) Load(ctx context.Context) (*core.Table, error) {
	bucket, object, err := SplitGCSURI(s.URI)
	if err != nil {
		return nil, core.NewLoadError(s.URI, err)
	}
	if s.Reader == nil {
		return nil, core.NewLoadError(s.URI, errors.New("no object reader configured"))
	}

	rc, err := s.Reader.Open(ctx, bucket, object)
	if err != nil {
		return nil, core.NewLoadError(s.URI, fmt.Errorf("open object %s/%s: %w", bucket, object, err))
	}
	defer rc.Close()

	return Parse(rc, ParseOptions{Source: s.URI, Strict: s.Strict})
}

// NewSource picks a GCS or file source based on the path prefix.
func NewSource(path string, strict bool, objects ObjectReader) Source {
	if IsGCSURI(path) {
		return &GCSSource{URI: path, Strict: strict, Reader: objects}
	}
	return &FileSource{Path: path, Strict: strict}
}
