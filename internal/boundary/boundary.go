// Package boundary decides where annotated code ends.
//
// Languages are looked up by file extension in a static registry. Each
// language carries one of two strategies: [Structural], which parses the
// file into a syntax tree, or [Braces], which balances curly braces. Files
// whose extension is not registered are not supported at all.
package boundary

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/smacker/go-tree-sitter/python"

	"github.com/calvinalkan/unsafe-docs/internal/annotation"
)

// Errors returned by Resolve.
var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNoCode              = errors.New("annotation is not followed by any code")
	ErrUnknownKind         = errors.New("unknown annotation kind")
)

// Span is a 1-based inclusive line range.
type Span struct {
	Start int
	End   int
}

// Lines reports how many lines the span covers.
func (s Span) Lines() int {
	return s.End - s.Start + 1
}

// Strategy finds the last line of a function that starts at or after a
// given line. The set of strategies is closed: [Structural] and [Braces].
type Strategy interface {
	functionEnd(lines []string, start int) int
}

// Language is one registry entry.
type Language struct {
	Name       string
	Extensions []string
	Strategy   Strategy
}

var registry = []Language{
	{
		Name:       "python",
		Extensions: []string{".py"},
		Strategy:   Structural{Grammar: python.GetLanguage()},
	},
	{
		Name:       "javascript",
		Extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
		Strategy:   Braces{Tokens: []string{"function", "=>"}},
	},
	{
		Name:       "typescript",
		Extensions: []string{".ts", ".tsx"},
		Strategy:   Braces{Tokens: []string{"function", "=>"}},
	},
	{
		Name:       "go",
		Extensions: []string{".go"},
		Strategy:   Braces{Tokens: []string{"func "}},
	},
}

// Lookup returns the language registered for path's extension.
func Lookup(path string) (Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Language{}, false
	}

	for _, lang := range registry {
		if slices.Contains(lang.Extensions, ext) {
			return lang, true
		}
	}

	return Language{}, false
}

// Supported reports whether path has a registered extension.
func Supported(path string) bool {
	_, ok := Lookup(path)

	return ok
}

// LanguageName returns the fence language for path, or "" if unsupported.
func LanguageName(path string) string {
	lang, _ := Lookup(path)

	return lang.Name
}

// Resolve returns the code span of an annotation of the given kind whose
// code begins at start (the line after the closing marker).
func Resolve(lang Language, kind annotation.Kind, lines []string, start int) (Span, error) {
	if lang.Strategy == nil {
		return Span{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang.Name)
	}

	if start < 1 || start > len(lines) {
		return Span{}, fmt.Errorf("%w (line %d)", ErrNoCode, start)
	}

	switch kind {
	case annotation.KindBlock:
		return blockSpan(lines, start), nil
	case annotation.KindFunction:
		end := lang.Strategy.functionEnd(lines, start)

		return Span{Start: start, End: max(end, start)}, nil
	default:
		return Span{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func blockSpan(lines []string, start int) Span {
	for i := start - 1; i < len(lines); i++ {
		if !strings.Contains(lines[i], annotation.BlockTerminator) {
			continue
		}

		// i is the 0-based terminator, so i is also the 1-based line before it.
		end := i
		for end >= start && isBlank(lines[end-1]) {
			end--
		}

		return Span{Start: start, End: max(end, start)}
	}

	return Span{Start: start, End: start}
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func indentation(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
