package example_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/unsafe-docs/internal/annotation"
	"github.com/calvinalkan/unsafe-docs/internal/boundary"
	"github.com/calvinalkan/unsafe-docs/internal/example"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func build(t *testing.T, dir string, paths ...string) (map[int]*example.Example, error) {
	t.Helper()

	anns, err := annotation.ParseFiles(paths, os.ReadFile)
	require.NoError(t, err)

	return example.Build(dir, anns, example.NewDiskFiles())
}

const scenario = `# @unsafe[function]
# id: 42
# title: Example
# @/unsafe
def f():
    return 1

def g():
    pass
`

func Test_Build_Returns_Single_Part_Example_When_Function_Annotation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "app.py", scenario)

	examples, err := build(t, dir, path)
	require.NoError(t, err)
	require.Len(t, examples, 1)

	ex := examples[42]
	require.NotNil(t, ex)
	assert.Equal(t, "Example", ex.Title)
	assert.Equal(t, annotation.KindFunction, ex.Kind)
	assert.Equal(t, "python", ex.Language)
	require.Len(t, ex.Parts, 1)
	assert.Equal(t, boundary.Span{Start: 5, End: 6}, ex.Parts[0].Span)
	assert.Equal(t, "app.py", ex.Parts[0].Rel)
	assert.Equal(t, []string{"def f():", "    return 1"}, ex.Parts[0].Code)
	assert.Len(t, ex.FileHashes, 1)
	assert.NotEmpty(t, ex.Fingerprint)
}

func Test_Build_Orders_Block_Parts_And_Uses_First_Part_Metadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.py", `# @unsafe[block]
# id: 5
# part: 2
# title: ignored
# @/unsafe
second = 2
# @/unsafe[block]
`)
	b := writeFile(t, dir, "sub/b.js", `// @unsafe[block]
// id: 5
// title: Split
// notes: first part notes
// request-details: open
// @/unsafe
const first = 1;

// @/unsafe[block]
`)

	examples, err := build(t, dir, a, b)
	require.NoError(t, err)

	ex := examples[5]
	require.Len(t, ex.Parts, 2)
	assert.Equal(t, 1, ex.Parts[0].Number)
	assert.Equal(t, "sub/b.js", ex.Parts[0].Rel)
	assert.Equal(t, boundary.Span{Start: 7, End: 7}, ex.Parts[0].Span)
	assert.Equal(t, "a.py", ex.Parts[1].Rel)
	assert.Equal(t, "Split", ex.Title)
	assert.Equal(t, "first part notes", ex.Notes)
	assert.Equal(t, "open", ex.RequestDetails)
	assert.Equal(t, "javascript", ex.Language)
	assert.Len(t, ex.FileHashes, 2)
}

func Test_Build_Dedupes_File_Hashes_When_Parts_Share_A_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "x.py", `# @unsafe[block]
# id: 1
# @/unsafe
a = 1
# @/unsafe[block]
# @unsafe[block]
# id: 1
# part: 2
# @/unsafe
b = 2
# @/unsafe[block]
`)

	// The same file reached through a different spelling of its path.
	alias := filepath.Join(dir, "..", filepath.Base(dir), "x.py")

	anns, err := annotation.ParseFiles([]string{path}, os.ReadFile)
	require.NoError(t, err)

	anns[1].Path = alias

	examples, err := example.Build(dir, anns, example.NewDiskFiles())
	require.NoError(t, err)
	assert.Len(t, examples[1].FileHashes, 1)
	assert.Len(t, examples[1].Parts, 2)
}

func Test_Build_Rejects_Inconsistent_Groups(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name    string
		src     string
		wantErr error
	}{
		{
			name: "block parts with gap",
			src: `# @unsafe[block]
# id: 9
# part: 1
# @/unsafe
a = 1
# @/unsafe[block]
# @unsafe[block]
# id: 9
# part: 3
# @/unsafe
b = 1
# @/unsafe[block]
`,
			wantErr: example.ErrPartSequence,
		},
		{
			name: "duplicate block parts",
			src: `# @unsafe[block]
# id: 9
# @/unsafe
a = 1
# @unsafe[block]
# id: 9
# @/unsafe
b = 1
`,
			wantErr: example.ErrPartSequence,
		},
		{
			name: "two function annotations",
			src: `# @unsafe[function]
# id: 9
# @/unsafe
def a(): pass
# @unsafe[function]
# id: 9
# part: 2
# @/unsafe
def b(): pass
`,
			wantErr: example.ErrFunctionParts,
		},
		{
			name: "mixed kinds",
			src: `# @unsafe[function]
# id: 9
# @/unsafe
def a(): pass
# @unsafe[block]
# id: 9
# part: 2
# @/unsafe
b = 1
`,
			wantErr: example.ErrMixedKinds,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := writeFile(t, dir, "bad.py", tt.src)

			_, err := build(t, dir, path)
			require.ErrorIs(t, err, tt.wantErr)

			var exErr *example.Error
			require.True(t, errors.As(err, &exErr))
			assert.Equal(t, 9, exErr.ID)
			assert.Contains(t, err.Error(), "example 9")
		})
	}
}

func Test_Build_Fails_When_Annotation_Has_No_Code(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "tail.py", "# @unsafe[function]\n# id: 3\n# @/unsafe\n")

	_, err := build(t, dir, path)
	require.ErrorIs(t, err, boundary.ErrNoCode)
	assert.Contains(t, err.Error(), "tail.py")
}

func Test_Fingerprint_Changes_When_Referenced_File_Byte_Changes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "app.py", scenario)
	other := writeFile(t, dir, "other.py", "x = 1\n")

	before, err := build(t, dir, path, other)
	require.NoError(t, err)

	writeFile(t, dir, "other.py", "x = 2\n")

	unrelated, err := build(t, dir, path, other)
	require.NoError(t, err)
	assert.Equal(t, before[42].Fingerprint, unrelated[42].Fingerprint)

	writeFile(t, dir, "app.py", strings.Replace(scenario, "pass", "pass ", 1))

	after, err := build(t, dir, path, other)
	require.NoError(t, err)
	assert.NotEqual(t, before[42].Fingerprint, after[42].Fingerprint)
	assert.Equal(t, before[42].Parts[0].Span, after[42].Parts[0].Span)
}

func Test_DisplayTitle_Falls_Back_To_Id(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Example 7", (&example.Example{ID: 7}).DisplayTitle())
	assert.Equal(t, "Named", (&example.Example{ID: 7, Title: "Named"}).DisplayTitle())
}
