package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type entryPoint func(in io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int

// CLI drives one of the program entry points from tests, rooted in a
// temp directory that is passed as --cwd.
type CLI struct {
	t     *testing.T
	entry entryPoint

	Dir string
	Env map[string]string
}

// NewCLI returns a harness for unsafe-docs.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	return newCLI(t, Run)
}

// NewSyncCLI returns a harness for spec-sync.
func NewSyncCLI(t *testing.T) *CLI {
	t.Helper()

	return newCLI(t, RunSync)
}

func newCLI(t *testing.T, entry entryPoint) *CLI {
	return &CLI{t: t, entry: entry, Dir: t.TempDir(), Env: map[string]string{}}
}

// Run returns stdout, stderr and the exit code of one invocation.
func (r *CLI) Run(args ...string) (string, string, int) {
	return r.RunWithInput("", args...)
}

// RunWithInput is Run with stdin.
func (r *CLI) RunWithInput(stdin string, args ...string) (string, string, int) {
	var stdout, stderr bytes.Buffer

	argv := make([]string, 0, len(args)+3)
	argv = append(argv, "prog", "--cwd", r.Dir)
	argv = append(argv, args...)

	code := r.entry(strings.NewReader(stdin), &stdout, &stderr, argv, r.Env, nil)

	return stdout.String(), stderr.String(), code
}

// MustRun requires exit code 0 and returns trimmed stdout.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	require.Zero(r.t, code, "%v exited %d\nstderr: %s", args, code, stderr)

	return strings.TrimSpace(stdout)
}

// MustFail requires a non-zero exit code with nothing on stdout and
// returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	require.NotZero(r.t, code, "%v succeeded\nstdout: %s", args, stdout)
	require.Empty(r.t, stdout, "%v failed with stdout", args)

	return strings.TrimSpace(stderr)
}

func (r *CLI) path(name string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(name))
}

// WriteFile writes a slash-separated path below Dir, creating parents.
func (r *CLI) WriteFile(name, content string) {
	r.t.Helper()

	path := r.path(name)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o600))
}

// ReadFile reads a slash-separated path below Dir.
func (r *CLI) ReadFile(name string) string {
	r.t.Helper()

	content, err := os.ReadFile(r.path(name))
	require.NoError(r.t, err)

	return string(content)
}

// AssertContains reports a failure when substr is absent from content.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("missing %q in:\n%s", substr, content)
	}
}

// AssertNotContains reports a failure when substr occurs in content.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("unexpected %q in:\n%s", substr, content)
	}
}
