package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kennygrant/sanitize"
)

// LocalStorage writes files into a directory served under /uploads/.
type LocalStorage struct {
	dir       string
	publicURL string
}

func NewLocalStorage(dir, publicURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) StoreFile(_ context.Context, data []byte, name string) (string, error) {
	filename := uniqueName(name)
	filePath := filepath.Join(s.dir, filename)

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return s.publicURL + "/uploads/" + filename, nil
}

func (s *LocalStorage) GetFileID(url string) string {
	prefix := s.publicURL + "/uploads/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return path.Base(url)
}

func (s *LocalStorage) DeleteFile(_ context.Context, id string) error {
	filePath := filepath.Join(s.dir, filepath.Base(id))
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// uniqueName keeps a sanitized extension of the client's file name.
func uniqueName(name string) string {
	ext := strings.ToLower(filepath.Ext(sanitize.Name(name)))
	if ext == "" || ext == "." {
		ext = ".jpg"
	}
	return uuid.New().String() + ext
}
