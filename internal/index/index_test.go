package index_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/unsafe-docs/internal/example"
	"github.com/calvinalkan/unsafe-docs/internal/index"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

const appPy = `# @unsafe[function]
# id: 2
# title: Second
# notes: |
#   line one
#   line two
# @/unsafe
def f():
    return 1
`

const routesJS = `// @unsafe[block]
// id: 1
// request-details: open
// @/unsafe
const x = 1;
// @/unsafe[block]
`

func fixture(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, dir, "readme.yml", "title: T\n")
	writeFile(t, dir, "app.py", appPy)
	writeFile(t, dir, "web/routes.js", routesJS)
	writeFile(t, dir, "notes.txt", "# @unsafe[function] ignored, unsupported extension\n")
	writeFile(t, dir, "node_modules/lib.js", "// @unsafe[function]\n")
	writeFile(t, dir, ".hidden/x.py", "# @unsafe[function]\n")
	writeFile(t, dir, "nested/readme.yml", "title: nested\n")
	writeFile(t, dir, "nested/n.py", "# @unsafe[function]\n")
	writeFile(t, dir, "images/image-2.png", "png")
	writeFile(t, dir, "http/exploit-1.http", "GET / HTTP/1.1\n")

	return dir
}

func Test_Discover_Skips_Unsupported_Hidden_Excluded_And_Nested(t *testing.T) {
	t.Parallel()

	dir := fixture(t)

	files, err := index.Discover(dir, []string{"node_modules"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "app.py"),
		filepath.Join(dir, "web", "routes.js"),
	}, files)
}

func Test_Build_Collects_Examples_And_Attachments(t *testing.T) {
	t.Parallel()

	dir := fixture(t)

	idx, err := index.Build(dir, index.Options{Exclude: []string{"node_modules"}, Category: "c", Namespace: "n"})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, idx.SortedIDs())
	assert.Equal(t, "c", idx.Category)
	assert.Equal(t, []string{"http/exploit-1.http", "images/image-2.png"}, sortedKeys(idx.Attachments))
	assert.Equal(t, index.Signature(idx.Examples, idx.Attachments), idx.BuildSignature)
	assert.Equal(t, "open", idx.Examples[1].RequestDetails)
}

func Test_Build_Signature_Tracks_Examples_And_Attachments(t *testing.T) {
	t.Parallel()

	dir := fixture(t)
	opts := index.Options{Exclude: []string{"node_modules"}}

	first, err := index.Build(dir, opts)
	require.NoError(t, err)

	same, err := index.Build(dir, opts)
	require.NoError(t, err)
	assert.Equal(t, first.BuildSignature, same.BuildSignature)

	writeFile(t, dir, "images/image-2.png", "png2")

	attachmentChanged, err := index.Build(dir, opts)
	require.NoError(t, err)
	assert.NotEqual(t, first.BuildSignature, attachmentChanged.BuildSignature)
	assert.Equal(t, first.Examples[2].Fingerprint, attachmentChanged.Examples[2].Fingerprint)

	writeFile(t, dir, "app.py", appPy+"\n")

	codeChanged, err := index.Build(dir, opts)
	require.NoError(t, err)
	assert.NotEqual(t, attachmentChanged.BuildSignature, codeChanged.BuildSignature)
	assert.NotEqual(t, first.Examples[2].Fingerprint, codeChanged.Examples[2].Fingerprint)
	assert.Equal(t, first.Examples[1].Fingerprint, codeChanged.Examples[1].Fingerprint)
}

func Test_Build_Fails_When_Any_File_Has_Broken_Annotation(t *testing.T) {
	t.Parallel()

	dir := fixture(t)
	writeFile(t, dir, "broken.py", "# @unsafe[function]\n# id: 3\n")

	_, err := index.Build(dir, index.Options{Exclude: []string{"node_modules"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.py")
}

func Test_Marshal_Round_Trips_Through_Unmarshal(t *testing.T) {
	t.Parallel()

	dir := fixture(t)

	idx, err := index.Build(dir, index.Options{Exclude: []string{"node_modules"}, Category: "cat"})
	require.NoError(t, err)

	idx.LastReadmeFingerprint = "abc"

	data, err := index.Marshal(idx)
	require.NoError(t, err)
	assert.Contains(t, string(data), "root: .\n")

	back, err := index.Unmarshal(data, dir)
	require.NoError(t, err)

	opts := []cmp.Option{
		cmpopts.IgnoreFields(example.Part{}, "Code"),
		cmpopts.EquateEmpty(),
	}

	if diff := cmp.Diff(idx, back, opts...); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := index.Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func Test_Load_Treats_Missing_And_Garbage_As_Absent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, index.FileName)

	_, ok := index.Load(path)
	assert.False(t, ok)

	writeFile(t, dir, index.FileName, "version: [unclosed\n")

	_, ok = index.Load(path)
	assert.False(t, ok)

	writeFile(t, dir, index.FileName, "version: 99\n")

	_, ok = index.Load(path)
	assert.False(t, ok)
}

func Test_Decide(t *testing.T) {
	t.Parallel()

	fresh := &index.Index{BuildSignature: "sig"}
	applied := index.ReadmeFingerprint("sig", "outline")

	for _, tt := range []struct {
		name         string
		prior        *index.Index
		outlineHash  string
		force        bool
		readmeExists bool
		want         []index.Reason
	}{
		{
			name:         "no prior index",
			outlineHash:  "outline",
			readmeExists: true,
			want:         []index.Reason{index.ReasonNoIndex},
		},
		{
			name:         "up to date",
			prior:        &index.Index{BuildSignature: "sig", LastReadmeFingerprint: applied},
			outlineHash:  "outline",
			readmeExists: true,
		},
		{
			name:         "forced",
			prior:        &index.Index{BuildSignature: "sig", LastReadmeFingerprint: applied},
			outlineHash:  "outline",
			force:        true,
			readmeExists: true,
			want:         []index.Reason{index.ReasonForced},
		},
		{
			name:         "signature changed",
			prior:        &index.Index{BuildSignature: "old", LastReadmeFingerprint: applied},
			outlineHash:  "outline",
			readmeExists: true,
			want:         []index.Reason{index.ReasonSignatureChanged},
		},
		{
			name:         "outline changed",
			prior:        &index.Index{BuildSignature: "sig", LastReadmeFingerprint: applied},
			outlineHash:  "outline-v2",
			readmeExists: true,
			want:         []index.Reason{index.ReasonReadmeStale},
		},
		{
			name:        "readme deleted",
			prior:       &index.Index{BuildSignature: "sig", LastReadmeFingerprint: applied},
			outlineHash: "outline",
			want:        []index.Reason{index.ReasonReadmeMissing},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := index.Decide(tt.prior, fresh, tt.outlineHash, tt.force, tt.readmeExists)
			assert.Equal(t, tt.want, d.Reasons)
			assert.Equal(t, len(tt.want) > 0, d.Regenerate)
			assert.Equal(t, index.ReadmeFingerprint("sig", tt.outlineHash), d.ReadmeFingerprint)
		})
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
