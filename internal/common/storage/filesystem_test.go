package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestFileStoreSaveAndOpen(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	key, err := store.Save(ctx, "answer", strings.NewReader("2\n2\n"), -1)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if key == "" {
		t.Fatal("save returned empty key")
	}

	r, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "2\n2\n" {
		t.Fatalf("read %q, want %q", data, "2\n2\n")
	}

	info, err := store.Stat(ctx, key)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.SizeBytes != 4 {
		t.Fatalf("size %d, want 4", info.SizeBytes)
	}
}

func TestFileStoreUniqueKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		key, err := store.Save(ctx, "script", strings.NewReader("print(42)"), -1)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if seen[key] {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = true
	}
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", "../outside", "/etc/passwd"} {
		if _, err := store.Open(ctx, key); err == nil {
			t.Fatalf("open %q succeeded, want error", key)
		}
	}
}

func TestFileStoreOpenMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if _, err := store.Open(context.Background(), "answer/nope"); err == nil {
		t.Fatal("open of missing blob succeeded")
	}
}
