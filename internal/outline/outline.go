// Package outline loads the declarative readme.yml that drives README
// rendering for one documentation directory.
package outline

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// FileName is the outline file looked for in every documentation directory.
const FileName = "readme.yml"

// tocMarker is the scalar outline entry that places the table of contents.
const tocMarker = "toc"

// Errors returned by Parse and Load.
var (
	ErrUnknownKey = errors.New("unknown key")
	ErrInvalid    = errors.New("invalid readme.yml")
	ErrNotFound   = errors.New("readme.yml not found")
)

var (
	topLevelKeys = []string{"title", "summary", "description", "category", "namespace", "toc", "outline"}
	sectionKeys  = []string{"title", "description", "examples", "toc"}
)

// Readme is the parsed readme.yml.
type Readme struct {
	Title       string
	Summary     string
	Description string
	Category    string
	Namespace   string
	TOC         bool
	Outline     []Entry
}

// Entry is either a section or a table-of-contents marker.
type Entry struct {
	TOC         bool
	Title       string
	Description string
	Examples    []int
}

// HasTOCMarker reports whether any outline entry places the TOC.
func (r *Readme) HasTOCMarker() bool {
	return slices.ContainsFunc(r.Outline, func(e Entry) bool { return e.TOC })
}

// ExampleIDs lists every referenced example id in outline order.
func (r *Readme) ExampleIDs() []int {
	var ids []int

	for _, entry := range r.Outline {
		ids = append(ids, entry.Examples...)
	}

	return ids
}

// Load reads and parses path. It also returns the raw bytes so callers can
// fingerprint the outline.
func Load(path string) (*Readme, []byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller controlled
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	readme, err := Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return readme, data, nil
}

// Parse decodes readme.yml content. Unknown keys are rejected.
func Parse(data []byte) (*Readme, error) {
	var doc yaml.Node

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	readme := &Readme{}

	if len(doc.Content) == 0 {
		return readme, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalid)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		if !slices.Contains(topLevelKeys, key.Value) {
			return nil, fmt.Errorf("%w %q (line %d)", ErrUnknownKey, key.Value, key.Line)
		}

		err := decodeTopLevel(readme, key.Value, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, key.Value, err)
		}
	}

	return readme, nil
}

func decodeTopLevel(readme *Readme, key string, value *yaml.Node) error {
	switch key {
	case "title":
		return value.Decode(&readme.Title)
	case "summary":
		return value.Decode(&readme.Summary)
	case "description":
		return value.Decode(&readme.Description)
	case "category":
		return value.Decode(&readme.Category)
	case "namespace":
		return value.Decode(&readme.Namespace)
	case "toc":
		return value.Decode(&readme.TOC)
	case "outline":
		entries, err := decodeOutline(value)
		if err != nil {
			return err
		}

		readme.Outline = entries
	}

	return nil
}

func decodeOutline(node *yaml.Node) ([]Entry, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, errors.New("must be a list")
	}

	entries := make([]Entry, 0, len(node.Content))

	for _, item := range node.Content {
		entry, err := decodeEntry(item)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func decodeEntry(node *yaml.Node) (Entry, error) {
	if node.Kind == yaml.ScalarNode {
		if node.Value == tocMarker {
			return Entry{TOC: true}, nil
		}

		return Entry{}, fmt.Errorf("unexpected entry %q (line %d)", node.Value, node.Line)
	}

	if node.Kind != yaml.MappingNode {
		return Entry{}, fmt.Errorf("entry must be a mapping (line %d)", node.Line)
	}

	var entry Entry

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		var err error

		switch key.Value {
		case "title":
			err = value.Decode(&entry.Title)
		case "description":
			err = value.Decode(&entry.Description)
		case "examples":
			err = value.Decode(&entry.Examples)
		case "toc":
			err = value.Decode(&entry.TOC)
		default:
			return Entry{}, fmt.Errorf("%w %q in outline (line %d); allowed: %v", ErrUnknownKey, key.Value, key.Line, sectionKeys)
		}

		if err != nil {
			return Entry{}, fmt.Errorf("%s: %w", key.Value, err)
		}
	}

	return entry, nil
}
