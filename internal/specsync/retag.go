package specsync

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

var metaLine = regexp.MustCompile(`^(\s*(?:#|//)\s*)@(\w+)(?:\s+(.*?))?\s*$`)

// region is one request block. Regions start at ### separator lines; the
// text before the first separator is a region of its own.
type region struct {
	start, end int // [start, end) line indexes
	separator  bool
	name       string
	refs       []string
	tagLine    int // -1 when absent
	tags       []string
	request    bool
}

func splitRegions(lines []string) []region {
	var regions []region

	current := region{tagLine: -1}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "###") {
			if i > 0 {
				current.end = i
				regions = append(regions, current)
			}

			current = region{start: i, separator: true, tagLine: -1}

			continue
		}

		if m := metaLine.FindStringSubmatch(line); m != nil {
			value := m[3]

			switch m[2] {
			case "name":
				current.name = firstField(value)
			case "ref", "forceRef":
				if ref := firstField(value); ref != "" {
					current.refs = append(current.refs, ref)
				}
			case "tag":
				if current.tagLine < 0 {
					current.tagLine = i
					current.tags = parseTags(value)
				}
			}

			continue
		}

		if isRequestLine(trimmed) {
			current.request = true
		}
	}

	current.end = len(lines)
	regions = append(regions, current)

	return regions
}

// isRequestLine is false for blanks, comments and @variable definitions.
func isRequestLine(trimmed string) bool {
	if trimmed == "" {
		return false
	}

	for _, prefix := range []string{"#", "//", "@"} {
		if strings.HasPrefix(trimmed, prefix) {
			return false
		}
	}

	return true
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

func parseTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
}

// References returns every name used as a @ref or @forceRef target.
func References(content []byte) []string {
	var refs []string

	for _, r := range splitRegions(strings.Split(string(content), "\n")) {
		refs = append(refs, r.refs...)
	}

	return refs
}

// Retag makes every leaf request carry all of tags and strips them from
// requests that other requests reference. A leaf is a request without a
// name or whose name is not in referenced. Other tags are preserved and
// content is returned unchanged when nothing needs to change.
func Retag(content []byte, tags []string, referenced map[string]bool) []byte {
	if len(tags) == 0 {
		return content
	}

	lines := strings.Split(string(content), "\n")
	regions := splitRegions(lines)

	// Applied back to front so earlier line indexes stay valid.
	for i := len(regions) - 1; i >= 0; i-- {
		r := regions[i]
		if !r.request {
			continue
		}

		leaf := r.name == "" || !referenced[r.name]

		var want []string

		if leaf {
			want = slices.Clone(r.tags)

			for _, tag := range tags {
				if !slices.Contains(want, tag) {
					want = append(want, tag)
				}
			}
		} else {
			want = slices.DeleteFunc(slices.Clone(r.tags), func(tag string) bool {
				return slices.Contains(tags, tag)
			})
		}

		if slices.Equal(want, r.tags) {
			continue
		}

		switch {
		case r.tagLine >= 0 && len(want) == 0:
			lines = slices.Delete(lines, r.tagLine, r.tagLine+1)
		case r.tagLine >= 0:
			prefix := metaLine.FindStringSubmatch(lines[r.tagLine])[1]
			lines[r.tagLine] = prefix + "@tag " + strings.Join(want, ", ")
		default:
			at := r.start
			if r.separator {
				at++
			}

			lines = slices.Insert(lines, at, "# @tag "+strings.Join(want, ", "))
		}
	}

	return []byte(strings.Join(lines, "\n"))
}
