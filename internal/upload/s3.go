package upload

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mitchellh/goamz/aws"
	"github.com/mitchellh/goamz/s3"
)

// S3Storage keeps files in a public-read S3 bucket.
type S3Storage struct {
	bucket *s3.Bucket
	prefix string
}

// NewS3Storage falls back to the environment credential chain when the keys
// are empty.
func NewS3Storage(bucket, region, accessKey, secretKey string) (*S3Storage, error) {
	auth, err := aws.GetAuth(accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("s3: auth: %w", err)
	}
	r, ok := aws.Regions[region]
	if !ok {
		return nil, fmt.Errorf("s3: unknown region %q", region)
	}
	service := s3.New(auth, r)
	return &S3Storage{bucket: service.Bucket(bucket), prefix: "experiences/"}, nil
}

func (s *S3Storage) StoreFile(_ context.Context, data []byte, name string) (string, error) {
	path := s.prefix + uniqueName(name)
	dataType := http.DetectContentType(data)
	if err := s.bucket.Put(path, data, dataType, s3.PublicRead); err != nil {
		return "", fmt.Errorf("s3: put %s: %w", path, err)
	}
	return s.bucket.URL(path), nil
}

func (s *S3Storage) GetFileID(url string) string {
	base := s.bucket.URL("")
	if !strings.HasPrefix(url, base) {
		return ""
	}
	return strings.TrimPrefix(url, base)
}

func (s *S3Storage) DeleteFile(_ context.Context, id string) error {
	return s.bucket.Del(id)
}
