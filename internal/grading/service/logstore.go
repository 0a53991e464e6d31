package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"evograder/internal/common/storage"
	"evograder/internal/grading/scoringdir"
	apperrors "evograder/pkg/errors"
)

const logBlobName = "attempt-logs"

// LogStore persists scoring logs (scorer stderr) to the blob store,
// zstd-compressed. Logs are written once at finalization and read rarely,
// so cheap compression wins over raw storage.
type LogStore struct {
	blobs storage.BlobStore
}

func NewLogStore(blobs storage.BlobStore) *LogStore {
	return &LogStore{blobs: blobs}
}

// SaveFromDir compresses and stores the scoring log of a scoring
// directory, returning the blob key.
func (s *LogStore) SaveFromDir(ctx context.Context, dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, scoringdir.LogFileName))
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.StorageError, "read scoring log: %v", err)
	}
	return s.Save(ctx, data)
}

// Save compresses and stores raw log content.
func (s *LogStore) Save(ctx context.Context, data []byte) (string, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.StorageError, "init compressor: %v", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return "", apperrors.Wrapf(err, apperrors.StorageError, "compress scoring log: %v", err)
	}
	if err := enc.Close(); err != nil {
		return "", apperrors.Wrapf(err, apperrors.StorageError, "compress scoring log: %v", err)
	}

	key, err := s.blobs.Save(ctx, logBlobName, &buf, int64(buf.Len()))
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.StorageError, "store scoring log: %v", err)
	}
	return key, nil
}

// Fetch reads back a stored scoring log, decompressed.
func (s *LogStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.blobs.Open(ctx, key)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.StorageError, "open scoring log: %v", err)
	}
	defer rc.Close()

	dec, err := zstd.NewReader(rc)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.StorageError, "init decompressor: %v", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.StorageError, "read scoring log: %v", err)
	}
	return data, nil
}
