package example

import (
	"fmt"
	"os"

	"github.com/calvinalkan/unsafe-docs/internal/annotation"
	"github.com/calvinalkan/unsafe-docs/internal/fsutil"
)

// DiskFiles reads from the real filesystem and memoizes per path for the
// lifetime of one build. Paths are expected to be canonical.
type DiskFiles struct {
	lines  map[string][]string
	hashes map[string]string
}

// NewDiskFiles returns an empty DiskFiles.
func NewDiskFiles() *DiskFiles {
	return &DiskFiles{
		lines:  make(map[string][]string),
		hashes: make(map[string]string),
	}
}

// Lines returns the file split into lines.
func (d *DiskFiles) Lines(path string) ([]string, error) {
	if lines, ok := d.lines[path]; ok {
		return lines, nil
	}

	content, err := os.ReadFile(path) //nolint:gosec // discovered path
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	lines := annotation.SplitLines(content)
	d.lines[path] = lines

	return lines, nil
}

// Hash returns the streamed content hash of the file.
func (d *DiskFiles) Hash(path string) (string, error) {
	if hash, ok := d.hashes[path]; ok {
		return hash, nil
	}

	hash, err := fsutil.HashFile(path)
	if err != nil {
		return "", err
	}

	d.hashes[path] = hash

	return hash, nil
}
