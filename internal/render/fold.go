package render

import (
	"regexp"
	"strings"
)

var (
	listItem  = regexp.MustCompile(`^\s*([-*]\s|\d+\.\s)`)
	fenceLine = regexp.MustCompile("^\\s*```")
)

// Fold normalizes text that came out of a YAML block scalar so it reads
// like a folded scalar: consecutive lines of a paragraph are joined with a
// single space.
//
// Fenced code blocks pass through verbatim. List items, headings and table
// rows always stay on their own line. Runs of blank lines outside code
// blocks collapse to one, and leading/trailing blank lines are dropped.
func Fold(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		out       []string
		paragraph []string
		inFence   bool
	)

	flush := func() {
		if len(paragraph) > 0 {
			out = append(out, strings.Join(paragraph, " "))
			paragraph = nil
		}
	}

	blank := func() {
		if len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if inFence {
			out = append(out, line)

			if fenceLine.MatchString(line) {
				inFence = false
			}

			continue
		}

		trimmed := strings.TrimSpace(line)

		switch {
		case fenceLine.MatchString(line):
			flush()
			out = append(out, strings.TrimRight(line, " \t"))
			inFence = true
		case trimmed == "":
			flush()
			blank()
		case standalone(line, trimmed):
			flush()
			out = append(out, strings.TrimRight(line, " \t"))
		default:
			paragraph = append(paragraph, trimmed)
		}
	}

	flush()

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return strings.Join(out, "\n")
}

func standalone(line, trimmed string) bool {
	return listItem.MatchString(line) ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "|")
}
