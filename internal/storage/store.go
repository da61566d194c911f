package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidName is returned for names that are not a single path element.
var ErrInvalidName = errors.New("invalid object name")

// RawStore places downloaded files under flat names.
type RawStore interface {
	// Put copies the local file at srcPath to name, replacing any existing
	// object, and returns the number of bytes written.
	Put(ctx context.Context, name, srcPath string) (int64, error)

	// URI returns the canonical URI for the given name.
	// For local: file:///path, GCS: gs://bucket/key, S3: s3://bucket/key
	URI(name string) string

	// Close releases any resources.
	Close() error
}

// MirrorConfig configures an optional bucket mirror of the raw directory.
type MirrorConfig struct {
	URL    string // gocloud bucket URL; empty disables the mirror
	Prefix string // key prefix, e.g. "raw/"
}

// NewMirror opens the mirror described by cfg, or returns nil when the
// mirror is disabled.
func NewMirror(ctx context.Context, cfg MirrorConfig) (RawStore, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	return OpenBlobStore(ctx, cfg.URL, cfg.Prefix)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
