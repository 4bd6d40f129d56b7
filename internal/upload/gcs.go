package upload

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSStorage keeps files in a Cloud Storage bucket.
type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStorage creates the storage client once at server startup.
func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: storage client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket, prefix: "experiences/"}, nil
}

func (s *GCSStorage) Close() error { return s.client.Close() }

func (s *GCSStorage) publicBase() string {
	return "https://storage.googleapis.com/" + s.bucket + "/"
}

func (s *GCSStorage) StoreFile(ctx context.Context, data []byte, name string) (string, error) {
	object := s.prefix + uniqueName(name)
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = http.DetectContentType(data)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("gcs: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: close %s: %w", object, err)
	}
	return s.publicBase() + object, nil
}

func (s *GCSStorage) GetFileID(url string) string {
	if !strings.HasPrefix(url, s.publicBase()) {
		return ""
	}
	return strings.TrimPrefix(url, s.publicBase())
}

func (s *GCSStorage) DeleteFile(ctx context.Context, id string) error {
	err := s.client.Bucket(s.bucket).Object(id).Delete(ctx)
	if err == storage.ErrObjectNotExist {
		return nil
	}
	return err
}
