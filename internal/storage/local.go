package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/withObsrvr/econ-index-fetcher/internal/util"
)

// LocalStore writes files into a single local directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store rooted at dir. The directory is not created;
// callers lay out the tree before writing.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Path returns the filesystem path for name.
func (s *LocalStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Put copies srcPath to dir/name, overwriting in place.
func (s *LocalStore) Put(ctx context.Context, name, srcPath string) (int64, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	dst := s.Path(name)
	n, err := util.CopyFile(srcPath, dst)
	if err != nil {
		return n, fmt.Errorf("copy %s to %s: %w", srcPath, dst, err)
	}
	return n, nil
}

// URI returns the canonical URI for the given name.
func (s *LocalStore) URI(name string) string {
	absPath, err := filepath.Abs(s.Path(name))
	if err != nil {
		absPath = s.Path(name)
	}
	return "file://" + filepath.ToSlash(absPath)
}

// Close is a no-op for local storage.
func (s *LocalStore) Close() error {
	return nil
}
