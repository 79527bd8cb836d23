// Package example turns raw annotations into documented examples: it groups
// annotation parts by id, checks their consistency, resolves code spans and
// fingerprints the files involved.
package example

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strconv"

	"github.com/calvinalkan/unsafe-docs/internal/annotation"
	"github.com/calvinalkan/unsafe-docs/internal/boundary"
	"github.com/calvinalkan/unsafe-docs/internal/fsutil"
)

// Validation errors, wrapped in *Error.
var (
	ErrMixedKinds    = errors.New("annotations with one id must share a kind")
	ErrFunctionParts = errors.New("function example must have exactly one part")
	ErrPartSequence  = errors.New("block parts must be numbered 1..N without gaps or duplicates")
)

// Error names the example (and file, when known) that failed to build.
type Error struct {
	ID   int
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("example %d (%s): %v", e.ID, e.Path, e.Err)
	}

	return fmt.Sprintf("example %d: %v", e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Part is one contiguous code span of an example.
type Part struct {
	Number int
	Path   string // absolute, cleaned
	Rel    string // slash separated, relative to the build root
	Span   boundary.Span
	Code   []string
}

// Example is the documented unit. Values are rebuilt on every run and never
// mutated after Build returns.
type Example struct {
	ID             int
	Kind           annotation.Kind
	Title          string
	Notes          string
	RequestDetails string
	Language       string
	Parts          []Part
	FileHashes     map[string]string // Rel -> content hash
	Fingerprint    string
}

// DisplayTitle is the title or "Example {id}".
func (e *Example) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}

	return "Example " + strconv.Itoa(e.ID)
}

// Files supplies file content to Build.
type Files interface {
	Lines(path string) ([]string, error)
	Hash(path string) (string, error)
}

// Build groups annotations by id and resolves each into an Example.
// root is the directory relative paths are computed against. Any failure
// aborts the whole build.
func Build(root string, anns []annotation.RawAnnotation, files Files) (map[int]*Example, error) {
	groups := make(map[int][]annotation.RawAnnotation)

	var order []int

	for _, ann := range anns {
		if _, seen := groups[ann.Meta.ID]; !seen {
			order = append(order, ann.Meta.ID)
		}

		groups[ann.Meta.ID] = append(groups[ann.Meta.ID], ann)
	}

	out := make(map[int]*Example, len(groups))

	for _, id := range order {
		ex, err := buildOne(root, id, groups[id], files)
		if err != nil {
			return nil, err
		}

		out[id] = ex
	}

	return out, nil
}

func buildOne(root string, id int, group []annotation.RawAnnotation, files Files) (*Example, error) {
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].Meta.Part < group[j].Meta.Part
	})

	err := validateGroup(group)
	if err != nil {
		return nil, &Error{ID: id, Err: err}
	}

	first := group[0]

	ex := &Example{
		ID:             id,
		Kind:           first.Kind,
		Title:          first.Meta.Title,
		Notes:          first.Meta.Notes,
		RequestDetails: first.Meta.RequestDetails,
		Language:       boundary.LanguageName(first.Path),
		FileHashes:     make(map[string]string),
	}

	seen := make(map[string]bool)

	for _, ann := range group {
		part, err := resolvePart(root, ann, files)
		if err != nil {
			return nil, &Error{ID: id, Path: ann.Path, Err: err}
		}

		ex.Parts = append(ex.Parts, part)

		if seen[part.Path] {
			continue
		}

		seen[part.Path] = true

		hash, err := files.Hash(part.Path)
		if err != nil {
			return nil, &Error{ID: id, Path: ann.Path, Err: err}
		}

		ex.FileHashes[part.Rel] = hash
	}

	ex.Fingerprint = Fingerprint(ex)

	return ex, nil
}

func validateGroup(group []annotation.RawAnnotation) error {
	kind := group[0].Kind

	for _, ann := range group[1:] {
		if ann.Kind != kind {
			return fmt.Errorf("%w: %s and %s", ErrMixedKinds, kind, ann.Kind)
		}
	}

	if kind == annotation.KindFunction && len(group) != 1 {
		return fmt.Errorf("%w: got %d", ErrFunctionParts, len(group))
	}

	if len(group) > 1 {
		for i, ann := range group {
			if ann.Meta.Part != i+1 {
				return fmt.Errorf("%w: got %v", ErrPartSequence, partNumbers(group))
			}
		}
	}

	return nil
}

func partNumbers(group []annotation.RawAnnotation) []int {
	nums := make([]int, len(group))
	for i, ann := range group {
		nums[i] = ann.Meta.Part
	}

	return nums
}

func resolvePart(root string, ann annotation.RawAnnotation, files Files) (Part, error) {
	path := canonical(ann.Path)

	lang, ok := boundary.Lookup(path)
	if !ok {
		return Part{}, fmt.Errorf("%w: %s", boundary.ErrUnsupportedLanguage, filepath.Ext(path))
	}

	lines, err := files.Lines(path)
	if err != nil {
		return Part{}, err
	}

	span, err := boundary.Resolve(lang, ann.Kind, lines, ann.CodeStart())
	if err != nil {
		return Part{}, err
	}

	return Part{
		Number: ann.Meta.Part,
		Path:   path,
		Rel:    relPath(root, path),
		Span:   span,
		Code:   slices.Clone(lines[span.Start-1 : span.End]),
	}, nil
}

// Fingerprint hashes id, kind, title and notes followed by the involved
// files' path/hash pairs in path order.
func Fingerprint(ex *Example) string {
	values := []string{strconv.Itoa(ex.ID), string(ex.Kind), ex.Title, ex.Notes}

	paths := make([]string, 0, len(ex.FileHashes))
	for rel := range ex.FileHashes {
		paths = append(paths, rel)
	}

	sort.Strings(paths)

	for _, rel := range paths {
		values = append(values, rel+"\t"+ex.FileHashes[rel])
	}

	return fsutil.HashStrings(values...)
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	return abs
}

func relPath(root, path string) string {
	if root == "" {
		return filepath.ToSlash(path)
	}

	rel, err := filepath.Rel(canonical(root), path)
	if err != nil {
		return filepath.ToSlash(path)
	}

	return filepath.ToSlash(rel)
}
