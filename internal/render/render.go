// Package render assembles README.md from an example index and the
// readme.yml outline. Rendering reads source and attachment files through
// an fs.FS rooted at the documentation directory and writes nothing.
package render

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/calvinalkan/unsafe-docs/internal/annotation"
	"github.com/calvinalkan/unsafe-docs/internal/example"
	"github.com/calvinalkan/unsafe-docs/internal/index"
	"github.com/calvinalkan/unsafe-docs/internal/outline"
)

// ErrUnknownExample is returned when the outline references an id the
// index does not contain.
var ErrUnknownExample = errors.New("outline references unknown example")

const requestDetailsOpen = "open"

// HTTPPath is the attachment holding the raw request for example id.
func HTTPPath(id int) string {
	return path.Join(index.HTTPDir, "exploit-"+strconv.Itoa(id)+".http")
}

// ImagePath is the attachment holding the screenshot for example id.
func ImagePath(id int) string {
	return path.Join(index.ImagesDir, "image-"+strconv.Itoa(id)+".png")
}

// document joins blocks with exactly one blank line.
type document struct {
	blocks []string
}

func (d *document) add(block string) {
	block = strings.Trim(block, "\n")
	if strings.TrimSpace(block) == "" {
		return
	}

	d.blocks = append(d.blocks, block)
}

func (d *document) String() string {
	return strings.Join(d.blocks, "\n\n") + "\n"
}

// Render returns the complete README.
func Render(idx *index.Index, readme *outline.Readme, files fs.FS) (string, error) {
	var doc document

	if readme.Title != "" {
		doc.add("# " + readme.Title)
	}

	doc.add(Fold(readme.Summary))
	doc.add(Fold(readme.Description))

	rows, err := tocRows(idx, readme)
	if err != nil {
		return "", err
	}

	if readme.TOC && !readme.HasTOCMarker() {
		doc.add(renderTOC(rows))
	}

	entries := readme.Outline
	if !hasSections(entries) {
		entries = append(slices.Clone(entries), outline.Entry{Examples: idx.SortedIDs()})
	}

	for _, entry := range entries {
		if entry.TOC {
			doc.add(renderTOC(rows))

			continue
		}

		if entry.Title != "" {
			doc.add("## " + entry.Title)
		}

		doc.add(Fold(entry.Description))

		for _, id := range entry.Examples {
			ex := idx.Examples[id]

			err := renderExample(&doc, ex, files)
			if err != nil {
				return "", err
			}
		}
	}

	return doc.String(), nil
}

func hasSections(entries []outline.Entry) bool {
	for _, e := range entries {
		if !e.TOC {
			return true
		}
	}

	return false
}

func renderExample(doc *document, ex *example.Example, files fs.FS) error {
	header := "### Example " + strconv.Itoa(ex.ID)
	if ex.Title != "" {
		header += ": " + ex.Title
	}

	doc.add(header)
	doc.add(Fold(ex.Notes))

	code, err := exampleCode(ex, files)
	if err != nil {
		return fmt.Errorf("example %d: %w", ex.ID, err)
	}

	doc.add(fenced(ex.Language, code))

	request, err := fs.ReadFile(files, HTTPPath(ex.ID))
	switch {
	case err == nil:
		doc.add(details(ex.RequestDetails == requestDetailsOpen, string(request)))
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("example %d: %w", ex.ID, err)
	}

	if _, err := fs.Stat(files, ImagePath(ex.ID)); err == nil {
		doc.add(fmt.Sprintf("![Example %d](%s)", ex.ID, ImagePath(ex.ID)))
	}

	return nil
}

// exampleCode joins every part's lines, with one blank line between parts.
func exampleCode(ex *example.Example, files fs.FS) (string, error) {
	chunks := make([]string, 0, len(ex.Parts))

	for _, part := range ex.Parts {
		content, err := fs.ReadFile(files, part.Rel)
		if err != nil {
			return "", err
		}

		lines := annotation.SplitLines(content)
		if part.Span.Start < 1 || part.Span.End > len(lines) || part.Span.End < part.Span.Start {
			return "", fmt.Errorf("%s: span %d-%d outside file", part.Rel, part.Span.Start, part.Span.End)
		}

		chunks = append(chunks, strings.Join(lines[part.Span.Start-1:part.Span.End], "\n"))
	}

	return strings.Join(chunks, "\n\n"), nil
}

func fenced(lang, body string) string {
	fence := fenceFor(body)

	return fence + lang + "\n" + strings.TrimRight(body, "\n") + "\n" + fence
}

// fenceFor returns a backtick fence longer than any backtick run in body.
func fenceFor(body string) string {
	longest, run := 0, 0

	for _, r := range body {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}

	return strings.Repeat("`", max(3, longest+1))
}

func details(open bool, request string) string {
	tag := "<details>"
	if open {
		tag = "<details open>"
	}

	return tag + "\n<summary>See HTTP Request</summary>\n\n" + fenced("http", request) + "\n\n</details>"
}
