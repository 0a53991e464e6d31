package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore implements BlobStore on a local directory. It backs tests and
// single-host deployments; keys are paths relative to the root.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("file store root is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create file store root failed: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if r == nil {
		return "", fmt.Errorf("reader is required")
	}
	key := filepath.Join(name, uuid.NewString())
	path := filepath.Join(s.root, key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create blob directory failed: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("create blob file failed: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write blob failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close blob failed: %w", err)
	}
	return filepath.ToSlash(key), nil
}

func (s *FileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blob %s failed: %w", key, err)
	}
	return f, nil
}

func (s *FileStore) Stat(ctx context.Context, key string) (BlobInfo, error) {
	path, err := s.resolve(key)
	if err != nil {
		return BlobInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return BlobInfo{}, fmt.Errorf("stat blob %s failed: %w", key, err)
	}
	return BlobInfo{Key: key, SizeBytes: info.Size()}, nil
}

// resolve maps a key to an absolute path, refusing keys that escape the root.
func (s *FileStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}
