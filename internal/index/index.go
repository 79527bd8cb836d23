// Package index builds, fingerprints and persists the per-directory example
// index (index.yml) that decides whether documentation must be regenerated.
package index

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/calvinalkan/unsafe-docs/internal/annotation"
	"github.com/calvinalkan/unsafe-docs/internal/boundary"
	"github.com/calvinalkan/unsafe-docs/internal/example"
	"github.com/calvinalkan/unsafe-docs/internal/fsutil"
	"github.com/calvinalkan/unsafe-docs/internal/outline"
)

// FileName is the persisted index inside each documentation directory.
const FileName = "index.yml"

// FormatVersion is written to and required from index.yml.
const FormatVersion = 1

// Attachment subdirectories. Their files are hashed but never scanned for
// annotations.
const (
	ImagesDir = "images"
	HTTPDir   = "http"
)

// Index is the full state of one documentation directory.
type Index struct {
	Version               int
	Root                  string // absolute directory; persisted as "."
	Category              string
	Namespace             string
	Examples              map[int]*example.Example
	Attachments           map[string]string // slash relative path -> hash
	BuildSignature        string
	LastReadmeFingerprint string
}

// Options tune Build.
type Options struct {
	// Exclude lists directory names that are never descended into.
	Exclude   []string
	Category  string
	Namespace string
}

// SortedIDs returns example ids ascending.
func (idx *Index) SortedIDs() []int {
	ids := make([]int, 0, len(idx.Examples))
	for id := range idx.Examples {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

// Build scans dir and returns a fresh index. Nothing is written.
func Build(dir string, opts Options) (*Index, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	files, err := Discover(root, opts.Exclude)
	if err != nil {
		return nil, err
	}

	anns, err := annotation.ParseFiles(files, os.ReadFile)
	if err != nil {
		return nil, err
	}

	examples, err := example.Build(root, anns, example.NewDiskFiles())
	if err != nil {
		return nil, err
	}

	attachments, err := Attachments(root)
	if err != nil {
		return nil, err
	}

	return &Index{
		Version:        FormatVersion,
		Root:           root,
		Category:       opts.Category,
		Namespace:      opts.Namespace,
		Examples:       examples,
		Attachments:    attachments,
		BuildSignature: Signature(examples, attachments),
	}, nil
}

// Discover lists supported source files below dir in lexical order. Hidden
// and excluded directories, attachment directories and nested
// documentation directories (those with their own readme.yml) are skipped.
func Discover(dir string, exclude []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			if path == dir {
				return nil
			}

			if skipDir(dir, path, entry.Name(), exclude) {
				return filepath.SkipDir
			}

			return nil
		}

		if entry.Type().IsRegular() && boundary.Supported(path) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", dir, err)
	}

	return files, nil
}

func skipDir(root, path, name string, exclude []string) bool {
	if strings.HasPrefix(name, ".") || slices.Contains(exclude, name) {
		return true
	}

	if filepath.Dir(path) == root && (name == ImagesDir || name == HTTPDir) {
		return true
	}

	nested, _ := fsutil.Exists(filepath.Join(path, outline.FileName))

	return nested
}

// Attachments hashes every file under dir's images/ and http/ directories.
// Missing directories contribute nothing.
func Attachments(dir string) (map[string]string, error) {
	out := make(map[string]string)

	for _, sub := range []string{ImagesDir, HTTPDir} {
		base := filepath.Join(dir, sub)

		ok, err := fsutil.Exists(base)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		err = filepath.WalkDir(base, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}

			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !entry.Type().IsRegular() {
				return nil
			}

			hash, err := fsutil.HashFile(path)
			if err != nil {
				return err
			}

			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}

			out[filepath.ToSlash(rel)] = hash

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("attachments %s: %w", base, err)
		}
	}

	return out, nil
}

// Signature hashes all example fingerprints in id order followed by all
// attachment path/hash pairs in path order.
func Signature(examples map[int]*example.Example, attachments map[string]string) string {
	ids := make([]int, 0, len(examples))
	for id := range examples {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	values := make([]string, 0, len(ids)+len(attachments))
	for _, id := range ids {
		values = append(values, examples[id].Fingerprint)
	}

	paths := make([]string, 0, len(attachments))
	for path := range attachments {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	for _, path := range paths {
		values = append(values, path+"\t"+attachments[path])
	}

	return fsutil.HashStrings(values...)
}

// ReadmeFingerprint combines a build signature with the outline file hash.
func ReadmeFingerprint(buildSignature, outlineHash string) string {
	return fsutil.HashStrings(buildSignature, outlineHash)
}
