package storage

import (
	"context"
	"io"
)

// BlobStore is the content store contract consumed by the grading pipeline:
// scoring scripts, reference answers, submission outputs and attempt logs
// all live behind it. Save returns a stable key; keys are never reused, so
// blobs are immutable-by-replacement.
// It is intentionally small so we can swap MinIO/filesystem implementations
// without touching business logic.
type BlobStore interface {
	// Save stores the content under a fresh key derived from name and
	// returns that key. size may be -1 when unknown.
	Save(ctx context.Context, name string, r io.Reader, size int64) (string, error)

	// Open opens a reader for a previously saved blob.
	// Caller must close the returned reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Stat returns blob metadata.
	Stat(ctx context.Context, key string) (BlobInfo, error)
}

// BlobInfo contains blob metadata.
type BlobInfo struct {
	Key       string
	SizeBytes int64
}
