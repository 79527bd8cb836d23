package outline_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/unsafe-docs/internal/outline"
)

func Test_Parse_Decodes_Sections_And_TOC_Markers(t *testing.T) {
	t.Parallel()

	readme, err := outline.Parse([]byte(`title: Parameter confusion
summary: >
  Short intro.
description: |
  Longer text.
category: confusion
namespace: r01
toc: true
outline:
  - toc
  - title: Basics
    description: First steps.
    examples: [1, 2]
  - toc: true
  - title: Advanced
    examples:
      - 3
`))
	require.NoError(t, err)

	want := &outline.Readme{
		Title:       "Parameter confusion",
		Summary:     "Short intro.\n",
		Description: "Longer text.\n",
		Category:    "confusion",
		Namespace:   "r01",
		TOC:         true,
		Outline: []outline.Entry{
			{TOC: true},
			{Title: "Basics", Description: "First steps.", Examples: []int{1, 2}},
			{TOC: true},
			{Title: "Advanced", Examples: []int{3}},
		},
	}

	if diff := cmp.Diff(want, readme); diff != "" {
		t.Fatalf("readme mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, readme.HasTOCMarker())
	assert.Equal(t, []int{1, 2, 3}, readme.ExampleIDs())
}

func Test_Parse_Rejects_Unknown_Keys(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name    string
		src     string
		wantKey string
	}{
		{name: "top level", src: "title: x\nauthor: me\n", wantKey: `"author"`},
		{name: "section", src: "outline:\n  - title: x\n    exmaples: [1]\n", wantKey: `"exmaples"`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := outline.Parse([]byte(tt.src))
			require.ErrorIs(t, err, outline.ErrUnknownKey)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func Test_Parse_Rejects_Malformed_Documents(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"- just\n- a list\n",
		"outline: nope\n",
		"outline:\n  - bogus\n",
		"outline:\n  - examples: [a]\n",
		"title: [unclosed\n",
	} {
		_, err := outline.Parse([]byte(src))
		require.ErrorIs(t, err, outline.ErrInvalid, src)
	}
}

func Test_Parse_Returns_Empty_Readme_When_Document_Empty(t *testing.T) {
	t.Parallel()

	readme, err := outline.Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, readme.Outline)
}

func Test_Load_Returns_Raw_Bytes_And_NotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, err := outline.Load(filepath.Join(dir, outline.FileName))
	require.ErrorIs(t, err, outline.ErrNotFound)

	path := filepath.Join(dir, outline.FileName)
	require.NoError(t, os.WriteFile(path, []byte("title: T\n"), 0o600))

	readme, raw, err := outline.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "T", readme.Title)
	assert.Equal(t, "title: T\n", string(raw))
}
