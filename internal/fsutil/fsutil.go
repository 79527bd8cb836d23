// Package fsutil holds the small set of filesystem helpers shared by the
// docs pipeline and the spec synchronizer: content hashing, atomic
// write-if-changed, and advisory directory locks.
package fsutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"
)

// hashBufferSize is the fixed read size used when streaming a file through
// the hash.
const hashBufferSize = 64 * 1024

// FilePerms is the mode given to files the tool creates.
const FilePerms = 0o644

// HashFile returns the hex SHA-256 of the raw bytes at path.
func HashFile(path string) (string, error) {
	file, err := os.Open(path) //nolint:gosec // path comes from directory discovery
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	defer func() { _ = file.Close() }()

	return HashReader(file)
}

// HashReader streams r through SHA-256 using fixed-size reads.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, hashBufferSize)

	_, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return "", fmt.Errorf("hashing: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// HashStrings hashes the given values as newline terminated records.
// The order of values is significant; callers sort first.
func HashStrings(values ...string) string {
	h := sha256.New()

	for _, v := range values {
		_, _ = io.WriteString(h, v)
		_, _ = h.Write([]byte{'\n'})
	}

	return hex.EncodeToString(h.Sum(nil))
}

// WriteIfChanged atomically replaces path with data unless the file already
// holds exactly data. It reports whether a write happened.
func WriteIfChanged(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path) //nolint:gosec // caller controlled
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}

	existed := err == nil

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	writeErr := atomic.WriteFile(path, bytes.NewReader(data))
	if writeErr != nil {
		return false, fmt.Errorf("write %s: %w", path, writeErr)
	}

	if !existed {
		chmodErr := os.Chmod(path, FilePerms)
		if chmodErr != nil {
			return true, fmt.Errorf("chmod %s: %w", path, chmodErr)
		}
	}

	return true, nil
}

// RemoveIfExists deletes path, treating a missing file as success.
// It reports whether something was removed.
func RemoveIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("remove %s: %w", path, err)
}

// Exists reports whether path exists. Errors other than "not found" are
// returned as-is.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, err
}
