package util

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// FileChecksum computes a SHA256 checksum for the file at path, in the form
// "sha256:<hex>".
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}
