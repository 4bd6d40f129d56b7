// Package upload runs uploaded photos through virus scanning, scaling and
// storage. Each stage is an interface with several implementations chosen at
// startup.
package upload

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrFileRejected is returned when a scanner flags an upload.
var ErrFileRejected = errors.New("file rejected by virus scan")

// Uploader stores a file and returns its public URL.
type Uploader interface {
	UploadFile(ctx context.Context, data []byte, name string) (string, error)
}

type VirusScanner interface {
	// Scan returns ErrFileRejected (possibly wrapped) for malicious or
	// suspicious content.
	Scan(ctx context.Context, data []byte, name string) error
}

type ImageScaler interface {
	Scale(data []byte, name string) ([]byte, error)
}

// FileStorage is a durable home for uploaded files.
type FileStorage interface {
	// StoreFile saves data and returns the URL it is served from.
	StoreFile(ctx context.Context, data []byte, name string) (string, error)
	// GetFileID maps a URL returned by StoreFile back to the backend's id.
	GetFileID(url string) string
	DeleteFile(ctx context.Context, id string) error
}

// Pipeline is the Uploader used by the API: scan, then scale, then store.
type Pipeline struct {
	scanner VirusScanner
	scaler  ImageScaler
	storage FileStorage
}

func NewPipeline(scanner VirusScanner, scaler ImageScaler, storage FileStorage) *Pipeline {
	if scanner == nil {
		scanner = NoopScanner{}
	}
	if scaler == nil {
		scaler = NoopScaler{}
	}
	return &Pipeline{scanner: scanner, scaler: scaler, storage: storage}
}

func (p *Pipeline) UploadFile(ctx context.Context, data []byte, name string) (string, error) {
	if err := p.scanner.Scan(ctx, data, name); err != nil {
		zap.L().Warn("upload rejected", zap.String("name", name), zap.Error(err))
		return "", err
	}

	scaled, err := p.scaler.Scale(data, name)
	if err != nil {
		return "", err
	}

	url, err := p.storage.StoreFile(ctx, scaled, name)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}
	zap.L().Debug("file uploaded", zap.String("name", name), zap.String("url", url), zap.Int("bytes", len(scaled)))
	return url, nil
}

// DeleteFile removes a previously uploaded file given its URL.
func (p *Pipeline) DeleteFile(ctx context.Context, url string) error {
	id := p.storage.GetFileID(url)
	if id == "" {
		return nil
	}
	return p.storage.DeleteFile(ctx, id)
}

type NoopScanner struct{}

func (NoopScanner) Scan(context.Context, []byte, string) error { return nil }

type NoopScaler struct{}

func (NoopScaler) Scale(data []byte, _ string) ([]byte, error) { return data, nil }
