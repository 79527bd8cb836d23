package index

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/unsafe-docs/internal/annotation"
	"github.com/calvinalkan/unsafe-docs/internal/boundary"
	"github.com/calvinalkan/unsafe-docs/internal/example"
)

// ErrVersion is returned by Unmarshal for an index written by another
// format version.
var ErrVersion = errors.New("unsupported index version")

type fileDoc struct {
	Version               int                `yaml:"version"`
	Root                  string             `yaml:"root"`
	Category              string             `yaml:"category"`
	Namespace             string             `yaml:"namespace"`
	Examples              map[int]exampleDoc `yaml:"examples"`
	Attachments           map[string]string  `yaml:"attachments"`
	BuildSignature        string             `yaml:"build_signature"`
	LastReadmeFingerprint string             `yaml:"last_readme_fingerprint"`
}

type exampleDoc struct {
	ID          int               `yaml:"id"`
	Kind        string            `yaml:"kind"`
	Title       string            `yaml:"title"`
	Notes       string            `yaml:"notes"`
	HTTP        string            `yaml:"http"`
	Language    string            `yaml:"language"`
	Parts       []partDoc         `yaml:"parts"`
	FileHashes  map[string]string `yaml:"file_hashes"`
	Fingerprint string            `yaml:"fingerprint"`
}

type partDoc struct {
	Part          int    `yaml:"part"`
	File          string `yaml:"file"`
	CodeStartLine int    `yaml:"code_start_line"`
	CodeEndLine   int    `yaml:"code_end_line"`
}

// Marshal renders idx as index.yml. Map keys are emitted sorted, so equal
// indexes always produce identical bytes.
func Marshal(idx *Index) ([]byte, error) {
	doc := fileDoc{
		Version:               idx.Version,
		Root:                  ".",
		Category:              idx.Category,
		Namespace:             idx.Namespace,
		Examples:              make(map[int]exampleDoc, len(idx.Examples)),
		Attachments:           idx.Attachments,
		BuildSignature:        idx.BuildSignature,
		LastReadmeFingerprint: idx.LastReadmeFingerprint,
	}

	if doc.Attachments == nil {
		doc.Attachments = map[string]string{}
	}

	for id, ex := range idx.Examples {
		parts := make([]partDoc, len(ex.Parts))
		for i, p := range ex.Parts {
			parts[i] = partDoc{Part: p.Number, File: p.Rel, CodeStartLine: p.Span.Start, CodeEndLine: p.Span.End}
		}

		doc.Examples[id] = exampleDoc{
			ID:          ex.ID,
			Kind:        string(ex.Kind),
			Title:       ex.Title,
			Notes:       ex.Notes,
			HTTP:        ex.RequestDetails,
			Language:    ex.Language,
			Parts:       parts,
			FileHashes:  ex.FileHashes,
			Fingerprint: ex.Fingerprint,
		}
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	err := enc.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}

	return buf.Bytes(), nil
}

// Unmarshal parses index.yml content. dir is the directory the file lives
// in; it becomes Root and anchors part paths.
func Unmarshal(data []byte, dir string) (*Index, error) {
	var doc fileDoc

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, doc.Version)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	idx := &Index{
		Version:               doc.Version,
		Root:                  root,
		Category:              doc.Category,
		Namespace:             doc.Namespace,
		Examples:              make(map[int]*example.Example, len(doc.Examples)),
		Attachments:           doc.Attachments,
		BuildSignature:        doc.BuildSignature,
		LastReadmeFingerprint: doc.LastReadmeFingerprint,
	}

	if idx.Attachments == nil {
		idx.Attachments = map[string]string{}
	}

	for id, ed := range doc.Examples {
		ex := &example.Example{
			ID:             id,
			Kind:           annotation.Kind(ed.Kind),
			Title:          ed.Title,
			Notes:          ed.Notes,
			RequestDetails: ed.HTTP,
			Language:       ed.Language,
			FileHashes:     ed.FileHashes,
			Fingerprint:    ed.Fingerprint,
		}

		if ex.FileHashes == nil {
			ex.FileHashes = map[string]string{}
		}

		for _, p := range ed.Parts {
			ex.Parts = append(ex.Parts, example.Part{
				Number: p.Part,
				Path:   filepath.Join(root, filepath.FromSlash(p.File)),
				Rel:    p.File,
				Span:   boundary.Span{Start: p.CodeStartLine, End: p.CodeEndLine},
			})
		}

		idx.Examples[id] = ex
	}

	return idx, nil
}

// Load reads a prior index. A missing, unreadable or unparsable file is
// reported as absent rather than as an error.
func Load(path string) (*Index, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // caller controlled
	if err != nil {
		return nil, false
	}

	idx, err := Unmarshal(data, filepath.Dir(path))
	if err != nil {
		return nil, false
	}

	return idx, true
}
