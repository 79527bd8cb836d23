package boundary

import "strings"

const (
	// braceLookahead bounds how far past the start line the brace scan goes.
	braceLookahead = 400
	// braceFallbackSpan is the span length used when no balanced braces
	// are found inside the lookahead.
	braceFallbackSpan = 20
)

// Braces finds the first line holding one of Tokens and counts brace depth
// from there. The function ends on the line where the depth returns to zero
// after having been positive.
type Braces struct {
	Tokens []string
}

func (b Braces) functionEnd(lines []string, start int) int {
	limit := min(len(lines), start-1+braceLookahead)

	intro := b.introLine(lines, start-1, limit)
	if intro < 0 {
		return braceFallback(lines, start)
	}

	depth := 0
	opened := false

	for i := intro; i < limit; i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}

		if opened && depth <= 0 {
			return i + 1
		}

		// const f = x => x + 1;
		if !opened && i == intro && strings.HasSuffix(strings.TrimSpace(lines[i]), ";") {
			return i + 1
		}
	}

	return braceFallback(lines, start)
}

func (b Braces) introLine(lines []string, from, limit int) int {
	for i := from; i < limit; i++ {
		for _, tok := range b.Tokens {
			if strings.Contains(lines[i], tok) {
				return i
			}
		}
	}

	// Methods and handlers often have no keyword; settle for the first
	// opening brace.
	for i := from; i < limit; i++ {
		if strings.Contains(lines[i], "{") {
			return i
		}
	}

	return -1
}

func braceFallback(lines []string, start int) int {
	return min(start+braceFallbackSpan-1, len(lines))
}
