package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/unsafe-docs/internal/example"
	"github.com/calvinalkan/unsafe-docs/internal/index"
	"github.com/calvinalkan/unsafe-docs/internal/outline"
)

// TOCRow is one table-of-contents line.
type TOCRow struct {
	ID      int
	Section string
	Title   string
	Link    string
}

// tocRows walks the outline in order. It also validates that every
// referenced example exists, so it runs even when no TOC is printed.
func tocRows(idx *index.Index, readme *outline.Readme) ([]TOCRow, error) {
	var rows []TOCRow

	for _, entry := range readme.Outline {
		for _, id := range entry.Examples {
			ex, ok := idx.Examples[id]
			if !ok {
				return nil, fmt.Errorf("%w: %d (section %q)", ErrUnknownExample, id, entry.Title)
			}

			rows = append(rows, TOCRow{
				ID:      id,
				Section: entry.Title,
				Title:   ex.DisplayTitle(),
				Link:    DeepLink(ex),
			})
		}
	}

	return rows, nil
}

// DeepLink points at the first part's file, with a line fragment.
func DeepLink(ex *example.Example) string {
	if len(ex.Parts) == 0 {
		return ""
	}

	part := ex.Parts[0]

	switch {
	case part.Span.End > part.Span.Start:
		return fmt.Sprintf("%s#L%d-L%d", part.Rel, part.Span.Start, part.Span.End)
	case part.Span.Start > 0:
		return fmt.Sprintf("%s#L%d", part.Rel, part.Span.Start)
	default:
		return part.Rel
	}
}

func renderTOC(rows []TOCRow) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString("## Table of Contents\n\n")
	b.WriteString("| ID | Section | Example | Source |\n")
	b.WriteString("|---|---|---|---|")

	for _, row := range rows {
		source := row.Link
		if source != "" {
			source = "[" + escapeCell(row.Link) + "](" + row.Link + ")"
		}

		b.WriteString("\n| " + strconv.Itoa(row.ID) + " | " + escapeCell(row.Section) + " | " +
			escapeCell(row.Title) + " | " + source + " |")
	}

	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
