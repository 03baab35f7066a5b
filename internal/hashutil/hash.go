// Package hashutil provides sha256 integrity verification for downloaded
// upload artifacts, grounded on the original source's core/hash_utils.py.
package hashutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const readChunkSize = 8192

// ComputeSHA256 hashes the file at path in 8KB chunks.
func ComputeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashutil: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, readChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hashutil: read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySHA256 reports whether the file at path hashes to expected, using
// a constant-time comparison so the check isn't a timing oracle.
func VerifySHA256(path, expected string) (bool, error) {
	actual, err := ComputeSHA256(path)
	if err != nil {
		return false, err
	}
	actualBytes, err := hex.DecodeString(actual)
	if err != nil {
		return false, err
	}
	expectedBytes, err := hex.DecodeString(expected)
	if err != nil {
		return false, nil
	}
	return subtle.ConstantTimeCompare(actualBytes, expectedBytes) == 1, nil
}
