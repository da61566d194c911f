package hub

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Cache is the on-disk download cache. Layout per repo:
//
//	<dir>/<kind>s--<owner>--<name>/refs/<revision>          commit the revision resolved to
//	<dir>/<kind>s--<owner>--<name>/snapshots/<commit>/<file> file contents
//	<dir>/tmp/<uuid>.incomplete                              in-flight downloads
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir. Nothing is created until the first
// Store.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) repoDir(kind RepoKind, repoID string) string {
	return filepath.Join(c.dir, kind.cacheFolder(repoID))
}

func (c *Cache) refPath(kind RepoKind, repoID, revision string) string {
	return filepath.Join(c.repoDir(kind, repoID), "refs", filepath.FromSlash(revision))
}

// SnapshotPath returns where filename lives for a resolved commit.
func (c *Cache) SnapshotPath(kind RepoKind, repoID, commit, filename string) string {
	return filepath.Join(c.repoDir(kind, repoID), "snapshots", filepath.FromSlash(commit), filepath.FromSlash(filename))
}

// ResolveRef returns the commit recorded for revision, if any.
func (c *Cache) ResolveRef(kind RepoKind, repoID, revision string) (string, bool, error) {
	data, err := os.ReadFile(c.refPath(kind, repoID, revision))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read ref %s: %w", revision, err)
	}
	commit := strings.TrimSpace(string(data))
	if validateRelative("commit", commit) != nil {
		return "", false, nil
	}
	return commit, true, nil
}

// Lookup returns the cached path for (revision, filename) when both the ref
// and the snapshot file are present.
func (c *Cache) Lookup(kind RepoKind, repoID, revision, filename string) (string, bool, error) {
	commit, ok, err := c.ResolveRef(kind, repoID, revision)
	if err != nil || !ok {
		return "", false, err
	}

	p := c.SnapshotPath(kind, repoID, commit, filename)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("stat %s: %w", p, err)
	}
	if !info.Mode().IsRegular() {
		return "", false, nil
	}
	return p, true, nil
}

// Store streams body into the snapshot for commit, then records revision ->
// commit. The snapshot path only ever holds a complete file: data lands in
// tmp/ first and is renamed into place.
func (c *Cache) Store(kind RepoKind, repoID, revision, commit, filename string, body io.Reader) (string, int64, error) {
	tmpDir := filepath.Join(c.dir, "tmp")
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return "", 0, fmt.Errorf("create cache tmp dir %s: %w", tmpDir, err)
	}

	tmpPath := filepath.Join(tmpDir, uuid.NewString()+".incomplete")
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("write %s: %w", filename, err)
	}

	final := c.SnapshotPath(kind, repoID, commit, filename)
	if err := os.MkdirAll(filepath.Dir(final), 0755); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("rename %s to %s: %w", tmpPath, final, err)
	}

	if err := c.writeRef(kind, repoID, revision, commit); err != nil {
		return "", 0, err
	}
	return final, n, nil
}

func (c *Cache) writeRef(kind RepoKind, repoID, revision, commit string) error {
	path := c.refPath(kind, repoID, revision)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create refs dir: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(commit), 0644); err != nil {
		return fmt.Errorf("write ref temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename ref file: %w", err)
	}
	return nil
}
