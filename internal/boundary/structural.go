package boundary

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Structural parses the whole file and picks the earliest function node
// that starts at or after the requested line. When there is no grammar or
// the file does not parse cleanly it falls back to an indentation scan.
type Structural struct {
	Grammar *sitter.Language
}

var functionNodeTypes = map[string]bool{
	"function_definition": true,
}

func (s Structural) functionEnd(lines []string, start int) int {
	if s.Grammar != nil {
		if end, ok := s.treeFunctionEnd(lines, start); ok {
			return end
		}
	}

	return indentFunctionEnd(lines, start)
}

func (s Structural) treeFunctionEnd(lines []string, start int) (int, bool) {
	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(s.Grammar)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(strings.Join(lines, "\n")))
	if err != nil || tree == nil {
		return 0, false
	}

	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return 0, false
	}

	var best *sitter.Node

	walk(root, func(n *sitter.Node) {
		if !functionNodeTypes[n.Type()] {
			return
		}

		row := int(n.StartPoint().Row) + 1
		if row < start {
			return
		}

		if best == nil || n.StartPoint().Row < best.StartPoint().Row {
			best = n
		}
	})

	if best == nil {
		return 0, false
	}

	endRow := int(best.EndPoint().Row)
	if best.EndPoint().Column == 0 && best.EndPoint().Row > best.StartPoint().Row {
		endRow--
	}

	end := endRow + 1
	for end > start && end <= len(lines) && isBlank(lines[end-1]) {
		end--
	}

	return min(end, len(lines)), true
}

func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)

	for i := range int(n.NamedChildCount()) {
		walk(n.NamedChild(i), visit)
	}
}

// indentFunctionEnd skips decorators to the first def line, then extends
// the span over every line indented deeper than the def. The result is the
// last non-blank line before the first line at or left of the def's
// indentation.
func indentFunctionEnd(lines []string, start int) int {
	defLine := -1

	for i := start - 1; i < len(lines); i++ {
		if isDefLine(lines[i]) {
			defLine = i

			break
		}
	}

	if defLine < 0 {
		return start
	}

	defIndent := indentation(lines[defLine])

	// A signature may wrap over several lines; its closing paren can sit at
	// the def's own indentation.
	bodyFrom := defLine
	depth := parenDelta(lines[defLine])

	for depth > 0 && !endsSignature(lines[bodyFrom]) && bodyFrom+1 < len(lines) {
		bodyFrom++
		depth += parenDelta(lines[bodyFrom])
	}

	end := bodyFrom

	for j := bodyFrom + 1; j < len(lines); j++ {
		if isBlank(lines[j]) {
			continue
		}

		if indentation(lines[j]) <= defIndent {
			break
		}

		end = j
	}

	return end + 1
}

func isDefLine(line string) bool {
	trimmed := strings.TrimSpace(line)

	return strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "async def ")
}

func endsSignature(line string) bool {
	return strings.HasSuffix(strings.TrimSpace(line), ":")
}

func parenDelta(line string) int {
	return strings.Count(line, "(") + strings.Count(line, "[") -
		strings.Count(line, ")") - strings.Count(line, "]")
}
