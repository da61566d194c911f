package util

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrSameFile is returned by CopyFile when src and dst name the same file.
var ErrSameFile = errors.New("source and destination are the same file")

func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// CopyFile streams src into dst, truncating dst if it exists, and applies
// src's permission bits to dst. It returns the number of bytes copied.
// A failure part-way through leaves whatever was written in dst.
func CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", src)
	}

	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return 0, fmt.Errorf("copy %s to %s: %w", src, dst, ErrSameFile)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}

	// OpenFile only applies the mode on creation.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return n, err
	}
	return n, nil
}
