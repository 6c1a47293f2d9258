// Package hashutil computes the content digests recorded for bundles.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// New returns the digest used for bundle checksums.
func New() hash.Hash {
	return sha256.New()
}

// Sum formats a digest as lowercase hex.
func Sum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// FileChecksum returns the hex SHA-256 of the file at path.
func FileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	h := New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return Sum(h), nil
}
