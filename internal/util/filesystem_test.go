package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.csv")
	dst := filepath.Join(dir, "dst.csv")

	if err := os.WriteFile(src, []byte("a,b\n1,2\n"), 0640); err != nil {
		t.Fatal(err)
	}
	// Longer pre-existing content must be truncated, not merged.
	if err := os.WriteFile(dst, []byte("stale content that is much longer"), 0600); err != nil {
		t.Fatal(err)
	}

	n, err := CopyFile(src, dst)
	if err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	if n != 8 {
		t.Errorf("copied %d bytes, want 8", n)
	}

	data, _ := os.ReadFile(dst)
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("dst = %q", data)
	}

	info, _ := os.Stat(dst)
	if info.Mode().Perm() != 0640 {
		t.Errorf("dst mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestCopyFileErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.csv")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Errorf("missing src err = %v, want not-exist", err)
	}

	if _, err := CopyFile(src, src); !errors.Is(err, ErrSameFile) {
		t.Errorf("same file err = %v, want ErrSameFile", err)
	}
	data, _ := os.ReadFile(src)
	if string(data) != "x" {
		t.Error("same-file copy must not truncate the source")
	}

	if _, err := CopyFile(dir, filepath.Join(dir, "out")); err == nil {
		t.Error("expected error when src is a directory")
	}

	if _, err := CopyFile(src, filepath.Join(dir, "no", "such", "dir", "out")); err == nil {
		t.Error("expected error when dst parent is missing")
	}
}

func TestEnsureDir(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(p); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if err := EnsureDir(p); err != nil {
		t.Fatalf("EnsureDir on existing dir failed: %v", err)
	}
}

func TestFileChecksum(t *testing.T) {
	p := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(p, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	sum, err := FileChecksum(p)
	if err != nil {
		t.Fatalf("FileChecksum failed: %v", err)
	}
	want := "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if sum != want {
		t.Errorf("FileChecksum = %s, want %s", sum, want)
	}

	if _, err := FileChecksum(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
