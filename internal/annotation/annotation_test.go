package annotation_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/unsafe-docs/internal/annotation"
)

func lines(parts ...string) []byte {
	return []byte(strings.Join(parts, "\n") + "\n")
}

func Test_Parse_Returns_Function_Annotation_When_Python_Comment_Markers(t *testing.T) {
	t.Parallel()

	src := lines(
		"# @unsafe[function]",
		"# id: 42",
		"# title: Example",
		"# @/unsafe",
		"def f():",
		"    return 1",
	)

	got, err := annotation.Parse("app.py", src)
	require.NoError(t, err)

	want := []annotation.RawAnnotation{{
		Path:      "app.py",
		StartLine: 1,
		EndLine:   4,
		Kind:      annotation.KindFunction,
		Meta:      annotation.Metadata{ID: 42, Title: "Example", Part: 1},
	}}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("annotations mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 5, got[0].CodeStart())
}

func Test_Parse_Decodes_All_Metadata_When_Slash_Comments_And_Indented(t *testing.T) {
	t.Parallel()

	src := lines(
		"export const routes = {",
		"    // @unsafe[block]",
		"    // id: \"7\"",
		"    // part: 2",
		"    // title:   Spaced title  ",
		"    // request_details: open",
		"    // notes: |",
		"    //   first line",
		"    //     indented line",
		"    //",
		"    //   after blank",
		"    // @/unsafe",
		"    get(req) {}",
		"    // @/unsafe[block]",
		"}",
	)

	got, err := annotation.Parse("routes.js", src)
	require.NoError(t, err)
	require.Len(t, got, 1)

	meta := got[0].Meta
	assert.Equal(t, annotation.KindBlock, got[0].Kind)
	assert.Equal(t, 7, meta.ID)
	assert.Equal(t, 2, meta.Part)
	assert.Equal(t, "Spaced title", meta.Title)
	assert.Equal(t, "open", meta.RequestDetails)
	assert.Equal(t, "first line\n  indented line\n\nafter blank", meta.Notes)
	assert.Equal(t, 2, got[0].StartLine)
	assert.Equal(t, 12, got[0].EndLine)
}

func Test_Parse_Accepts_Block_Comment_Styles(t *testing.T) {
	t.Parallel()

	src := lines(
		"/* @unsafe[function]",
		" * id: 3",
		" * request-details: closed",
		" */",
		"/* @/unsafe */",
		"function f() {",
		"}",
	)

	got, err := annotation.Parse("f.ts", src)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Meta.ID)
	assert.Equal(t, "closed", got[0].Meta.RequestDetails)
	assert.Equal(t, 5, got[0].EndLine)
}

func Test_Parse_Ignores_Closing_Marker_At_Different_Indentation(t *testing.T) {
	t.Parallel()

	src := lines(
		"# @unsafe[function]",
		"# id: 1",
		"    # @/unsafe",
		"# @/unsafe",
		"def f(): pass",
	)

	_, err := annotation.Parse("x.py", src)
	require.Error(t, err, "nested closing marker must be inside the yaml and break it")

	src = lines(
		"# @unsafe[function]",
		"# id: 1",
		"# @/unsafe",
		"def f(): pass",
	)

	got, err := annotation.Parse("x.py", src)
	require.NoError(t, err)
	assert.Equal(t, 3, got[0].EndLine)
}

func Test_Parse_Returns_Multiple_Annotations_In_File_Order(t *testing.T) {
	t.Parallel()

	src := lines(
		"# @unsafe[block]",
		"# id: 2",
		"# @/unsafe",
		"x = 1",
		"# @/unsafe[block]",
		"# @unsafe[function]",
		"# id: 1",
		"# @/unsafe",
		"def f(): pass",
	)

	got, err := annotation.Parse("x.py", src)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Meta.ID)
	assert.Equal(t, 1, got[1].Meta.ID)
	assert.Equal(t, 6, got[1].StartLine)
}

func Test_Parse_Fails_Hard_When_Annotation_Malformed(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name     string
		src      []byte
		wantErr  error
		wantLine int
	}{
		{
			name:     "missing closing marker",
			src:      lines("x = 1", "# @unsafe[function]", "# id: 1", "def f(): pass"),
			wantErr:  annotation.ErrUnclosedMarker,
			wantLine: 2,
		},
		{
			name:     "block terminator is not a closing marker",
			src:      lines("# @unsafe[block]", "# id: 1", "# @/unsafe[block]"),
			wantErr:  annotation.ErrUnclosedMarker,
			wantLine: 1,
		},
		{
			name:     "missing id",
			src:      lines("# @unsafe[function]", "# title: no id", "# @/unsafe"),
			wantErr:  annotation.ErrMissingID,
			wantLine: 1,
		},
		{
			name:     "empty metadata",
			src:      lines("# @unsafe[function]", "# @/unsafe"),
			wantErr:  annotation.ErrMissingID,
			wantLine: 1,
		},
		{
			name:     "non integer id",
			src:      lines("# @unsafe[function]", "# id: abc", "# @/unsafe"),
			wantErr:  annotation.ErrInvalidID,
			wantLine: 1,
		},
		{
			name:     "invalid yaml",
			src:      lines("# @unsafe[function]", "# id: 1", "#   bad: [unclosed", "# @/unsafe"),
			wantErr:  annotation.ErrInvalidYAML,
			wantLine: 1,
		},
		{
			name:     "scalar metadata",
			src:      lines("# @unsafe[function]", "# just text", "# @/unsafe"),
			wantErr:  annotation.ErrNotMapping,
			wantLine: 1,
		},
		{
			name:     "zero part",
			src:      lines("# @unsafe[block]", "# id: 1", "# part: 0", "# @/unsafe"),
			wantErr:  annotation.ErrInvalidPart,
			wantLine: 1,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := annotation.Parse("bad.py", tt.src)
			require.ErrorIs(t, err, tt.wantErr)

			var annErr *annotation.Error
			require.True(t, errors.As(err, &annErr))
			assert.Equal(t, "bad.py", annErr.Path)
			assert.Equal(t, tt.wantLine, annErr.Line)
			assert.Contains(t, err.Error(), "bad.py:")
		})
	}
}

func Test_StripComment(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		in, want string
	}{
		{in: "# id: 1", want: "id: 1"},
		{in: "#id: 1", want: "id: 1"},
		{in: "    #   - item", want: "  - item"},
		{in: "// title: x", want: "title: x"},
		{in: "/* id: 2", want: "id: 2"},
		{in: " * id: 3", want: "id: 3"},
		{in: " */", want: ""},
		{in: "plain", want: "plain"},
	} {
		assert.Equal(t, tt.want, annotation.StripComment(tt.in), "input %q", tt.in)
	}
}

func Test_ParseFiles_Concatenates_In_Path_Order(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	b := filepath.Join(dir, "b.py")

	require.NoError(t, os.WriteFile(a, lines("# @unsafe[function]", "# id: 9", "# @/unsafe", "def a(): pass"), 0o600))
	require.NoError(t, os.WriteFile(b, lines("# @unsafe[function]", "# id: 1", "# @/unsafe", "def b(): pass"), 0o600))

	got, err := annotation.ParseFiles([]string{b, a}, os.ReadFile)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b, got[0].Path)
	assert.Equal(t, a, got[1].Path)

	_, err = annotation.ParseFiles([]string{filepath.Join(dir, "missing.py")}, os.ReadFile)
	require.ErrorIs(t, err, os.ErrNotExist)
}
