package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores documents in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS uses Application Default Credentials unless GCS_CREDENTIALS_JSON
// carries an explicit service-account key.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required")
	}

	var opts []option.ClientOption
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: "dispatch-documents/"}, nil
}

func (g *GCS) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	object := g.prefix + objectName(time.Now(), name)

	// cancelling the writer's context aborts the upload without committing it
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wc := g.client.Bucket(g.bucket).Object(object).NewWriter(wctx)
	if contentType != "" {
		wc.ContentType = contentType
	}
	if _, err := io.Copy(wc, r); err != nil {
		cancel()
		_ = wc.Close()
		return "", fmt.Errorf("gcs write %s: %w", object, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", object, err)
	}
	return PublicURL(g.bucket, object), nil
}

func (g *GCS) Close() error { return g.client.Close() }

// PublicURL is the https form of a bucket object.
func PublicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, object)
}
