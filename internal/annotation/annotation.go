// Package annotation finds @unsafe[...] / @/unsafe marker pairs in source
// files and decodes the YAML metadata embedded between them.
//
// A marker pair looks like this in any supported comment style:
//
//	# @unsafe[function]
//	# id: 42
//	# title: Example
//	# notes: |
//	#   Free text.
//	# @/unsafe
//
// The closing marker must sit at the same indentation as the opening one.
package annotation

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the annotation kind named inside the opening marker.
type Kind string

// Supported kinds.
const (
	KindFunction Kind = "function"
	KindBlock    Kind = "block"
)

// Marker literals.
const (
	openFunction = "@unsafe[function]"
	openBlock    = "@unsafe[block]"
	closeMarker  = "@/unsafe"

	// BlockTerminator ends the code of a block annotation. It is never a
	// closing marker for the metadata section.
	BlockTerminator = "@/unsafe[block]"
)

// Errors returned (wrapped in *Error) by Parse.
var (
	ErrUnclosedMarker = errors.New("missing closing @/unsafe marker")
	ErrInvalidYAML    = errors.New("invalid annotation yaml")
	ErrNotMapping     = errors.New("annotation metadata must be a mapping")
	ErrMissingID      = errors.New("annotation metadata missing required id")
	ErrInvalidID      = errors.New("annotation id must be an integer")
	ErrInvalidPart    = errors.New("annotation part must be a positive integer")
)

// Error ties a parse failure to a file and 1-based line.
type Error struct {
	Path string
	Line int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Metadata is the decoded YAML between the markers.
type Metadata struct {
	ID             int
	Title          string
	Notes          string
	RequestDetails string
	Part           int
}

// RawAnnotation is one parsed marker pair. StartLine and EndLine are the
// 1-based lines of the opening and closing markers.
type RawAnnotation struct {
	Path      string
	StartLine int
	EndLine   int
	Kind      Kind
	Meta      Metadata
}

// CodeStart is the first line after the closing marker.
func (a RawAnnotation) CodeStart() int {
	return a.EndLine + 1
}

// Parse scans content for marker pairs. Any malformed annotation fails the
// whole file.
func Parse(path string, content []byte) ([]RawAnnotation, error) {
	lines := SplitLines(content)

	var out []RawAnnotation

	for i := 0; i < len(lines); i++ {
		kind, ok := openingKind(lines[i])
		if !ok {
			continue
		}

		indent := indentation(lines[i])

		closing := findClosing(lines, i+1, indent)
		if closing < 0 {
			return nil, &Error{Path: path, Line: i + 1, Err: ErrUnclosedMarker}
		}

		meta, err := decodeMetadata(lines[i+1 : closing])
		if err != nil {
			return nil, &Error{Path: path, Line: i + 1, Err: err}
		}

		out = append(out, RawAnnotation{
			Path:      path,
			StartLine: i + 1,
			EndLine:   closing + 1,
			Kind:      kind,
			Meta:      meta,
		})

		i = closing
	}

	return out, nil
}

// ParseFiles parses every path with read and concatenates the results in
// path order.
func ParseFiles(paths []string, read func(string) ([]byte, error)) ([]RawAnnotation, error) {
	var all []RawAnnotation

	for _, path := range paths {
		content, err := read(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		anns, err := Parse(path, content)
		if err != nil {
			return nil, err
		}

		all = append(all, anns...)
	}

	return all, nil
}

// SplitLines splits content on \n, dropping a trailing \r from each line
// and the empty element after a final newline.
func SplitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}

	text := string(bytes.TrimSuffix(content, []byte("\n")))
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return lines
}

func openingKind(line string) (Kind, bool) {
	trimmed := strings.TrimLeft(line, " \t")

	switch {
	case strings.Contains(trimmed, openFunction):
		return KindFunction, true
	case strings.Contains(trimmed, openBlock):
		return KindBlock, true
	}

	return "", false
}

func isClosing(line string) bool {
	rest := line

	for {
		idx := strings.Index(rest, closeMarker)
		if idx < 0 {
			return false
		}

		after := rest[idx+len(closeMarker):]
		if !strings.HasPrefix(after, "[") {
			return true
		}

		rest = after
	}
}

func findClosing(lines []string, from, indent int) int {
	for j := from; j < len(lines); j++ {
		if indentation(lines[j]) == indent && isClosing(lines[j]) {
			return j
		}
	}

	return -1
}

func indentation(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// commentPrefixes are tried in order; longer tokens come first so "*/"
// is not mistaken for "*".
var commentPrefixes = []string{"//", "/*", "*/", "#", "*"}

// StripComment removes leading whitespace, one comment token and at most
// one following space. The rest of the line, including relative
// indentation, is preserved.
func StripComment(line string) string {
	trimmed := strings.TrimLeft(line, " \t")

	for _, prefix := range commentPrefixes {
		if rest, ok := strings.CutPrefix(trimmed, prefix); ok {
			return strings.TrimPrefix(rest, " ")
		}
	}

	return trimmed
}

func decodeMetadata(lines []string) (Metadata, error) {
	stripped := make([]string, len(lines))
	for i, line := range lines {
		stripped[i] = StripComment(line)
	}

	var raw map[string]any

	err := yaml.Unmarshal([]byte(strings.Join(stripped, "\n")), &raw)
	if err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return Metadata{}, ErrNotMapping
		}

		return Metadata{}, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}

	idValue, ok := raw["id"]
	if !ok || idValue == nil {
		return Metadata{}, ErrMissingID
	}

	id, ok := coerceInt(idValue)
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %v", ErrInvalidID, idValue)
	}

	meta := Metadata{
		ID:    id,
		Title: coerceString(raw["title"]),
		Notes: coerceString(raw["notes"]),
		Part:  1,
	}

	meta.RequestDetails = coerceString(raw["request-details"])
	if meta.RequestDetails == "" {
		meta.RequestDetails = coerceString(raw["request_details"])
	}

	if partValue, ok := raw["part"]; ok && partValue != nil {
		part, ok := coerceInt(partValue)
		if !ok || part < 1 {
			return Metadata{}, fmt.Errorf("%w: %v", ErrInvalidPart, partValue)
		}

		meta.Part = part
	}

	return meta, nil
}

func coerceInt(v any) (int, bool) {
	switch typed := v.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case uint64:
		if typed > math.MaxInt {
			return 0, false
		}

		return int(typed), true
	case float64:
		if typed != math.Trunc(typed) {
			return 0, false
		}

		return int(typed), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return 0, false
		}

		return n, true
	}

	return 0, false
}

func coerceString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}
