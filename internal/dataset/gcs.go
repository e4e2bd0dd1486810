package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// GCSReader opens Cloud Storage objects using Application Default Credentials.
type GCSReader struct {
	client  *storage.Client
	timeout time.Duration
}

var _ ObjectReader = (*GCSReader)(nil)

// NewGCSReader creates a storage client. Close it when done.
func NewGCSReader(ctx context.Context) (*GCSReader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSReader{client: client, timeout: 2 * time.Minute}, nil
}

// Open implements ObjectReader. The whole object is read before returning
// so the per-download timeout does not outlive the call.
func (g *GCSReader) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	rc, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading bytes: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Close releases the storage client.
func (g *GCSReader) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
