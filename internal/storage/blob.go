package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // GCS driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // S3 driver (also B2, R2, MinIO via endpoint=)
)

// BlobStore writes files to any gocloud.dev bucket.
type BlobStore struct {
	bucket *blob.Bucket
	base   string // bucket URL without query, for URI
	prefix string
}

// OpenBlobStore opens bucketURL, e.g. "gs://bucket", "s3://bucket?region=eu-west-1",
// "file:///srv/mirror" or "mem://".
func OpenBlobStore(ctx context.Context, bucketURL, prefix string) (*BlobStore, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("parse bucket url %q: %w", bucketURL, err)
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return newBlobStore(bucket, u, prefix), nil
}

func newBlobStore(bucket *blob.Bucket, u *url.URL, prefix string) *BlobStore {
	base := u.Scheme + "://" + u.Host + u.Path
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &BlobStore{
		bucket: bucket,
		base:   base,
		prefix: prefix,
	}
}

// Key returns the object key for name.
func (s *BlobStore) Key(name string) string {
	return s.prefix + name
}

// Put streams srcPath into the bucket under prefix+name.
func (s *BlobStore) Put(ctx context.Context, name, srcPath string) (int64, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	key := s.Key(name)

	// Cancelling the writer's context before Close discards the upload.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := s.bucket.NewWriter(wctx, key, nil)
	if err != nil {
		return 0, fmt.Errorf("create writer for %s: %w", key, err)
	}

	n, err := io.Copy(w, in)
	if err != nil {
		cancel()
		w.Close()
		return n, fmt.Errorf("write data to %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return n, fmt.Errorf("close writer for %s: %w", key, err)
	}
	return n, nil
}

// URI returns the canonical URI for the given name.
func (s *BlobStore) URI(name string) string {
	return s.base + s.Key(name)
}

// Close releases the bucket connection.
func (s *BlobStore) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}
