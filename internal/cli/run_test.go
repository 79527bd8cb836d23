package cli_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/unsafe-docs/internal/cli"
)

func Test_Invalid_Global_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("--invalid-flag", "list")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "unknown flag")
	cli.AssertContains(t, stderr, "--invalid-flag")
	cli.AssertContains(t, stderr, "Global flags:")
	cli.AssertContains(t, stderr, "--cwd")
	cli.AssertContains(t, stderr, "--config")
}

func Test_Bare_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	exitCode := cli.Run(nil, &stdout, &stderr, []string{"unsafe-docs"}, nil, nil)

	if got, want := exitCode, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stderr.String(), ""; got != want {
		t.Errorf("stderr=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stdout.String(), "unsafe-docs - index annotated examples")
	cli.AssertContains(t, stdout.String(), "generate [target] [flags]")
	cli.AssertContains(t, stdout.String(), "show <target> [id] [flags]")
}

func Test_Unknown_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("frobnicate")

	cli.AssertContains(t, stderr, "unknown command: frobnicate")
	cli.AssertContains(t, stderr, "Commands:")
}

func Test_Command_Help_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("generate", "--help")

	cli.AssertContains(t, stdout, "Usage: unsafe-docs generate [target] [flags]")
	cli.AssertContains(t, stdout, "--dry-run")
	cli.AssertContains(t, stdout, "--force")
}

func Test_Invalid_Config_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".unsafe-docs.json", `{"colour": "never"}`)

	stderr := c.MustFail("list")
	cli.AssertContains(t, stderr, "unknown config key: colour")
}

func Test_Print_Config_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "root="+c.Dir)
	cli.AssertContains(t, stdout, "watch_interval=2s")
	cli.AssertContains(t, stdout, "(defaults only)")

	c.WriteFile(".unsafe-docs.json", `{
		// docs live below examples/
		"root": "examples",
		"lock_timeout": "1s",
	}`)

	stdout = c.MustRun("print-config")
	cli.AssertContains(t, stdout, "root="+filepath.Join(c.Dir, "examples"))
	cli.AssertContains(t, stdout, "lock_timeout=1s")
	cli.AssertContains(t, stdout, "project_config="+filepath.Join(c.Dir, ".unsafe-docs.json"))

	stdout = c.MustRun("--root", "other", "print-config")
	cli.AssertContains(t, stdout, "root="+filepath.Join(c.Dir, "other"))
}

func Test_Spec_Sync_Bare_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	exitCode := cli.RunSync(nil, &stdout, &stderr, []string{"spec-sync", "--help"}, nil, nil)

	if got, want := exitCode, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stdout.String(), "spec-sync - materialize inherited HTTP specs")
	cli.AssertContains(t, stdout.String(), "migrate [versions...] [flags]")
}
