package hub

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type failingReader struct{ after int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), r.after)
	for i := range p[:n] {
		p[i] = 'x'
	}
	r.after -= n
	return n, nil
}

func TestCacheStoreAndLookup(t *testing.T) {
	c := NewCache(t.TempDir())

	if _, ok, err := c.Lookup(KindDataset, "org/ds", "main", "a/b.csv"); err != nil || ok {
		t.Fatalf("Lookup on empty cache = (%v, %v), want miss", ok, err)
	}

	p, n, err := c.Store(KindDataset, "org/ds", "main", "deadbeef", "a/b.csv", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Store wrote %d bytes, want 5", n)
	}

	got, ok, err := c.Lookup(KindDataset, "org/ds", "main", "a/b.csv")
	if err != nil || !ok {
		t.Fatalf("Lookup after Store = (%v, %v), want hit", ok, err)
	}
	if got != p {
		t.Errorf("Lookup path = %s, want %s", got, p)
	}

	// A different revision has no ref yet.
	if _, ok, _ := c.Lookup(KindDataset, "org/ds", "v2", "a/b.csv"); ok {
		t.Error("unexpected hit for unknown revision")
	}
	// Kinds do not share cache folders.
	if _, ok, _ := c.Lookup(KindModel, "org/ds", "main", "a/b.csv"); ok {
		t.Error("model lookup should not see dataset cache")
	}
}

func TestCacheStoreOverwritesSnapshot(t *testing.T) {
	c := NewCache(t.TempDir())

	if _, _, err := c.Store(KindDataset, "org/ds", "main", "main", "a.csv", strings.NewReader("old")); err != nil {
		t.Fatal(err)
	}
	p, _, err := c.Store(KindDataset, "org/ds", "main", "main", "a.csv", strings.NewReader("new"))
	if err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(p)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

func TestCacheStoreFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir)

	_, _, err := c.Store(KindDataset, "org/ds", "main", "abc", "big.bin", &failingReader{after: 4096})
	if err == nil {
		t.Fatal("expected error from failing body")
	}

	if _, ok, _ := c.Lookup(KindDataset, "org/ds", "main", "big.bin"); ok {
		t.Error("failed download must not be visible in the cache")
	}
	if _, err := os.Stat(c.SnapshotPath(KindDataset, "org/ds", "abc", "big.bin")); !os.IsNotExist(err) {
		t.Error("snapshot file should not exist")
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "tmp", "*"))
	if len(leftovers) != 0 {
		t.Errorf("tmp files left behind: %v", leftovers)
	}
}

func TestCacheIgnoresCorruptRef(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir)

	refDir := filepath.Join(dir, "datasets--org--ds", "refs")
	if err := os.MkdirAll(refDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(refDir, "main"), []byte("../../etc"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.Lookup(KindDataset, "org/ds", "main", "a.csv"); ok || err != nil {
		t.Errorf("Lookup with corrupt ref = (%v, %v), want clean miss", ok, err)
	}
}
