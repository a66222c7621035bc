package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// Uploader writes objects into Cloud Storage buckets.
type Uploader struct {
	client *gcs.Client
}

// NewUploader constructs an Uploader backed by the provided Cloud Storage client.
func NewUploader(client *gcs.Client) (*Uploader, error) {
	if client == nil {
		return nil, errors.New("storage uploader: client is required")
	}
	return &Uploader{client: client}, nil
}

// Upload writes the payload under bucket/object and returns the public object URL.
func (u *Uploader) Upload(ctx context.Context, bucket, object, contentType string, payload []byte) (string, error) {
	if u == nil || u.client == nil {
		return "", errors.New("storage uploader: client is not initialised")
	}

	bucket = strings.TrimSpace(bucket)
	object = strings.TrimSpace(object)
	if bucket == "" || object == "" {
		return "", errors.New("storage uploader: bucket and object must be provided")
	}
	if len(payload) == 0 {
		return "", errors.New("storage uploader: payload is empty")
	}

	writer := u.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := writer.Write(payload); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("storage uploader: write %s/%s: %w", bucket, object, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("storage uploader: close %s/%s: %w", bucket, object, err)
	}

	return ObjectURL(bucket, object), nil
}

// ObjectURL renders the canonical public URL for a stored object.
func ObjectURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", strings.TrimSpace(bucket), strings.TrimSpace(object))
}
