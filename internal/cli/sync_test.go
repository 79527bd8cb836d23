package cli_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calvinalkan/unsafe-docs/internal/cli"
)

const specYML = `v1:
  specs: [login]
v2:
  inherits: v1
  tags: [v2]
  specs: [admin]
`

func syncProject(t *testing.T) *cli.CLI {
	t.Helper()

	c := cli.NewSyncCLI(t)
	c.WriteFile("spec.yml", specYML)
	c.WriteFile("v1/login.http", "### login\n# @name login\nPOST /login\n")
	c.WriteFile("v2/admin.http", "### admin\n# @ref login\nGET /admin\n")

	return c
}

func Test_Sync_Generate_Then_Status(t *testing.T) {
	t.Parallel()

	c := syncProject(t)

	stdout := c.MustRun("generate")
	cli.AssertContains(t, stdout, "v1: up to date")
	cli.AssertContains(t, stdout, "v2: write "+filepath.Join("v2", "_inherited_login.http"))
	cli.AssertContains(t, stdout, "v2: retag "+filepath.Join("v2", "admin.http"))

	assert.Equal(t, "### login\n# @name login\nPOST /login\n", c.ReadFile("v2/_inherited_login.http"))
	assert.Equal(t, "### admin\n# @tag v2\n# @ref login\nGET /admin\n", c.ReadFile("v2/admin.http"))

	stdout = c.MustRun("generate", "v2")
	assert.Equal(t, "v2: up to date", stdout)

	stdout = c.MustRun("status", "v2")
	cli.AssertContains(t, stdout, "own: admin")
	cli.AssertContains(t, stdout, "inherited: login from v1 (fresh)")
}

func Test_Sync_Dry_Run_And_Clean(t *testing.T) {
	t.Parallel()

	c := syncProject(t)

	c.MustRun("generate", "--dry-run", "v2")
	assert.NoFileExists(t, filepath.Join(c.Dir, "v2", "_inherited_login.http"))

	c.MustRun("generate", "v2")

	stdout := c.MustRun("clean", "v2")
	assert.Equal(t, "v2: delete "+filepath.Join("v2", "_inherited_login.http"), stdout)
	assert.NoFileExists(t, filepath.Join(c.Dir, "v2", "_inherited_login.http"))
}

func Test_Sync_Migrate_And_Diff(t *testing.T) {
	t.Parallel()

	c := syncProject(t)
	c.WriteFile("v2/login.http", "### login\n# @name login\nPOST /login\n")

	stdout := c.MustRun("migrate", "v2")
	assert.Equal(t, "v2: migrate login", stdout)
	assert.NoFileExists(t, filepath.Join(c.Dir, "v2", "login.http"))

	c.WriteFile("spec.yml", specYML+"v3:\n  inherits: v2\n  specs: [login]\n")
	c.WriteFile("v3/login.http", "### login\n# @name login\nPOST /v3/login\n")

	stdout = c.MustRun("diff", "v3")
	cli.AssertContains(t, stdout, "--- "+filepath.Join("v1", "login.http"))
	cli.AssertContains(t, stdout, "+++ "+filepath.Join("v3", "login.http"))
	cli.AssertContains(t, stdout, "+POST /v3/login")
}

func Test_Sync_Reports_Bad_Versions(t *testing.T) {
	t.Parallel()

	c := syncProject(t)

	stderr := c.MustFail("status", "v9")
	cli.AssertContains(t, stderr, `unknown version: "v9"`)

	c.WriteFile("spec.yml", specYML+"v3:\n  inherits: v2\n  specs: [missing]\n")

	stdout, stderr, code := c.Run("generate")
	assert.Equal(t, 1, code)
	cli.AssertContains(t, stdout, "v1: up to date")
	cli.AssertContains(t, stderr, "error: v3:")
	cli.AssertContains(t, stderr, "declared spec has no file")
}

func Test_Sync_Missing_Spec_File(t *testing.T) {
	t.Parallel()

	c := cli.NewSyncCLI(t)

	stderr := c.MustFail("status")
	cli.AssertContains(t, stderr, "spec.yml")
}

func Test_Sync_Status_Warns_About_Orphans(t *testing.T) {
	t.Parallel()

	c := syncProject(t)
	c.MustRun("generate", "v2")
	c.WriteFile("v2/_inherited_gone.http", "### gone\nGET /gone\n")

	stdout, stderr, code := c.Run("status", "v2")
	assert.Equal(t, 1, code)
	cli.AssertContains(t, stdout, "orphan: gone")
	cli.AssertContains(t, stderr, "warning: v2: orphaned inherited copy gone: run spec-sync generate v2 to remove it")

	c.MustRun("generate", "v2")
	assert.NoFileExists(t, filepath.Join(c.Dir, "v2", "_inherited_gone.http"))
	c.MustRun("status", "v2")
}
