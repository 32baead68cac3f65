package objectstore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const publicGCSHost = "https://storage.googleapis.com"

// GCSStore uploads to a Google Cloud Storage bucket.
type GCSStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewGCSStore uses credentialsJSON when set, otherwise application default
// credentials. An empty baseURL serves objects from the public GCS host.
func NewGCSStore(ctx context.Context, bucket, credentialsJSON, baseURL string) (*GCSStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required")
	}
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	if baseURL == "" {
		baseURL = publicGCSHost + "/" + bucket
	}
	return &GCSStore{client: client, bucket: bucket, baseURL: baseURL}, nil
}

func (s *GCSStore) Put(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	wc := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("gcs write %s: %w", objectPath, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", objectPath, err)
	}
	return BuildAccessURL(s.baseURL, objectPath), nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
