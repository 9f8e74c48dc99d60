package cli_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monoctl/monoctl/pkg/cli"
)

// The command tree is package state, so these tests run sequentially and
// only the last one parses flags that reach buildApp.

func TestExecuteMissingTask(t *testing.T) {
	err := cli.Execute([]string{}, &bytes.Buffer{})

	require.ErrorIs(t, err, cli.ErrMissingTask)
}

func TestExecuteUnknownCommand(t *testing.T) {
	err := cli.Execute([]string{"frobnicate"}, &bytes.Buffer{})

	require.ErrorContains(t, err, "unknown command")
}

func TestExecuteHelpListsCommands(t *testing.T) {
	out := &bytes.Buffer{}

	err := cli.Execute([]string{"--help"}, out)

	require.NoError(t, err)

	for _, command := range []string{"bootstrap", "reset", "release", "testRelease", "publish", "run", "npm"} {
		assert.Contains(t, out.String(), command)
	}
}

func TestExecuteRunRequiresScript(t *testing.T) {
	err := cli.Execute([]string{"run"}, &bytes.Buffer{})

	require.ErrorContains(t, err, "accepts 1 arg")
}

func TestExecuteNpmRequiresArgs(t *testing.T) {
	err := cli.Execute([]string{"npm"}, &bytes.Buffer{})

	require.ErrorContains(t, err, "requires at least 1 arg")
}

func TestExecuteTestRelease(t *testing.T) {
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	manifestPath := filepath.Join(dir, "packages", "lib", "package.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(manifestPath), 0o750))
	require.NoError(t, os.WriteFile(manifestPath, []byte(`{"name": "lib", "version": "0.1.0"}`), 0o600))

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	_, err = worktree.Add("packages/lib/package.json")
	require.NoError(t, err)

	_, err = worktree.Commit("feat(lib): initial import", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	registry := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(registry.Close)

	out := &bytes.Buffer{}

	err = cli.Execute([]string{"testRelease", "--root", dir, "--registry", registry.URL}, out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "release required")
	assert.Contains(t, out.String(), "0.1.0")
}
