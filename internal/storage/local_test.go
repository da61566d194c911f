package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "src.csv")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	return p
}

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	ctx := context.Background()

	src := writeSource(t, "a,b\n1,2\n")
	n, err := store.Put(ctx, "file.csv", src)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if n != 8 {
		t.Errorf("Put wrote %d bytes, want 8", n)
	}

	data, err := os.ReadFile(filepath.Join(dir, "file.csv"))
	if err != nil {
		t.Fatalf("failed to read result: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("content = %q", data)
	}
}

func TestLocalStorePutOverwrites(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	ctx := context.Background()

	if _, err := store.Put(ctx, "f.tsv", writeSource(t, "a much longer first version")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Put(ctx, "f.tsv", writeSource(t, "short")); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "f.tsv"))
	if string(data) != "short" {
		t.Errorf("content = %q, want short", data)
	}
}

func TestLocalStoreRejectsNestedNames(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	src := writeSource(t, "x")

	for _, name := range []string{"", ".", "..", "a/b.csv", `a\b.csv`} {
		if _, err := store.Put(context.Background(), name, src); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestLocalStoreMissingDir(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "does-not-exist"))
	if _, err := store.Put(context.Background(), "f.csv", writeSource(t, "x")); err == nil {
		t.Error("expected error when directory is missing")
	}
}

func TestLocalStoreCanceled(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Put(ctx, "f.csv", writeSource(t, "x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Put error = %v, want context.Canceled", err)
	}
}

func TestLocalStoreURI(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	uri := store.URI("f.csv")
	if !strings.HasPrefix(uri, "file://") || !strings.HasSuffix(uri, "/f.csv") {
		t.Errorf("URI = %s", uri)
	}
}
