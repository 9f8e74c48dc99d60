package release_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"
	"github.com/monoctl/monoctl/pkg/config"
	"github.com/monoctl/monoctl/pkg/graph"
	"github.com/monoctl/monoctl/pkg/manifest"
	"github.com/monoctl/monoctl/pkg/registry"
	"github.com/monoctl/monoctl/pkg/release"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	work *git.Worktree
	when time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	work, err := repo.Worktree()
	require.NoError(t, err)

	return &fixture{t, dir, repo, work, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fixture) write(relPath, content string) {
	f.t.Helper()

	fullPath := filepath.Join(f.dir, filepath.FromSlash(relPath))
	require.NoError(f.t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(f.t, os.WriteFile(fullPath, []byte(content), 0o644))

	_, err := f.work.Add(relPath)
	require.NoError(f.t, err)
}

func (f *fixture) commit(message string) string {
	f.t.Helper()

	f.when = f.when.Add(time.Minute)

	hash, err := f.work.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: f.when},
	})
	require.NoError(f.t, err)

	return hash.String()
}

func (f *fixture) resolver(metadata map[string]string) *release.Resolver {
	f.t.Helper()

	return f.resolverWithLogger(zerolog.Nop(), metadata)
}

func (f *fixture) resolverWithLogger(logger zerolog.Logger, metadata map[string]string) *release.Resolver {
	f.t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, ok := metadata[strings.TrimPrefix(request.URL.EscapedPath(), "/")]
		if !ok {
			writer.WriteHeader(http.StatusNotFound)

			return
		}

		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(body))
	}))
	f.t.Cleanup(server.Close)

	commitParser := parser.NewMachine(parser.WithTypes(conventionalcommits.TypesConventional))
	commitParser.WithBestEffort()

	return release.New(logger, config.New(), f.repo, registry.New(server.URL, time.Second), commitParser)
}

func appPackage(version string) *graph.Package {
	return &graph.Package{
		Dir:      "app",
		Path:     "packages/app",
		Manifest: &manifest.Manifest{Name: "app", Version: version},
	}
}

func manifestJSON(name, version string) string {
	return fmt.Sprintf("{\n  \"name\": %q,\n  \"version\": %q\n}\n", name, version)
}

func publishedMetadata(name, version, gitHead string) string {
	return fmt.Sprintf(
		`{"name":%[1]q,"dist-tags":{"latest":%[2]q},"versions":{%[2]q:{"name":%[1]q,"version":%[2]q,"gitHead":%[3]q}}}`,
		name, version, gitHead,
	)
}

func TestResolveNeverPublished(t *testing.T) {
	t.Parallel()

	fix := newFixture(t)
	fix.write("packages/app/package.json", manifestJSON("app", "0.1.0"))
	first := fix.commit("feat(app): bootstrap the app")
	fix.write("packages/app/index.js", "module.exports = 1\n")
	fix.commit("fix(app): stop exporting undefined")

	state, err := fix.resolver(nil).Resolve(appPackage("0.1.0"))
	require.NoError(t, err)

	assert.True(t, state.ReleaseRequired)
	assert.Equal(t, "latest", state.DistTag)
	assert.Equal(t, "", state.LastPublishedVersion)
	assert.Equal(t, first, state.LastReleasedCommit)
	assert.Equal(t, "0.1.0", state.NextVersion)
	assert.Equal(t, release.BumpMinor, state.Bump)
	require.Len(t, state.Commits, 2)

	releaseCommit, ok := state.ReleaseCommit()
	require.True(t, ok)
	assert.Equal(t, first, releaseCommit.Hash)
	assert.True(t, releaseCommit.TouchesManifest)
	assert.True(t, state.HasSubject("feat(app): bootstrap"))
	assert.False(t, state.HasSubject("chore(app): release"))
}

func TestResolvePublished(t *testing.T) {
	t.Parallel()

	fix := newFixture(t)
	fix.write("packages/app/package.json", manifestJSON("app", "1.0.0"))
	first := fix.commit("feat(app): bootstrap the app")
	fix.write("packages/app/index.js", "module.exports = 2\n")
	second := fix.commit("fix(app): correct rounding")

	resolver := fix.resolver(map[string]string{"app": publishedMetadata("app", "1.0.0", first)})

	state, err := resolver.Resolve(appPackage("1.0.0"))
	require.NoError(t, err)

	assert.True(t, state.ReleaseRequired)
	assert.Equal(t, "1.0.0", state.LastPublishedVersion)
	assert.Equal(t, first, state.LastReleasedCommit)
	assert.Equal(t, "1.0.1", state.NextVersion)
	assert.Equal(t, release.BumpPatch, state.Bump)
	require.Len(t, state.Commits, 1)
	assert.Equal(t, second, state.Commits[0].Hash)
	assert.Equal(t, second[:7], state.Commits[0].ShortHash)
	assert.Equal(t, "fix(app): correct rounding", state.Commits[0].Subject)
	assert.False(t, state.Commits[0].TouchesManifest)

	_, ok := state.ReleaseCommit()
	assert.False(t, ok)
}

func TestResolveBumps(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		message  string
		bump     release.BumpKind
		breaking bool
		next     string
	}{
		{
			name:     "exclamation marks breaking",
			message:  "feat(app)!: drop support for old clients",
			bump:     release.BumpMajor,
			breaking: true,
			next:     "2.0.0",
		},
		{
			name:     "breaking change footer",
			message:  "fix(app): rework storage layout\n\nBREAKING CHANGE: the on-disk format changed",
			bump:     release.BumpMajor,
			breaking: true,
			next:     "2.0.0",
		},
		{
			name:    "feature",
			message: "feat(app): add csv export",
			bump:    release.BumpMinor,
			next:    "1.3.0",
		},
		{
			name:    "fix",
			message: "fix(app): correct rounding",
			bump:    release.BumpPatch,
			next:    "1.2.4",
		},
		{
			name:    "chore floors at patch",
			message: "chore(app): tidy tooling",
			bump:    release.BumpPatch,
			next:    "1.2.4",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fix := newFixture(t)
			fix.write("packages/app/package.json", manifestJSON("app", "1.2.3"))
			first := fix.commit("feat(app): bootstrap the app")
			fix.write("packages/app/index.js", "module.exports = 3\n")
			fix.commit(tc.message)

			resolver := fix.resolver(map[string]string{"app": publishedMetadata("app", "1.2.3", first)})

			state, err := resolver.Resolve(appPackage("1.2.3"))
			require.NoError(t, err)

			assert.True(t, state.ReleaseRequired)
			assert.Equal(t, tc.bump, state.Bump)
			assert.Equal(t, tc.next, state.NextVersion)
			require.Len(t, state.Commits, 1)
			assert.Equal(t, tc.breaking, state.Commits[0].Breaking)
		})
	}
}

func TestResolveIgnoresForeignScopes(t *testing.T) {
	t.Parallel()

	fix := newFixture(t)
	fix.write("packages/app/package.json", manifestJSON("app", "1.0.0"))
	first := fix.commit("feat(app): bootstrap the app")
	fix.write("packages/app/shared.js", "module.exports = 4\n")
	fix.commit("feat(lib): move shared helpers around")
	fix.write("packages/app/notes.txt", "wip\n")
	fix.commit("feat: repo wide cleanup")
	fix.write("packages/app/more.txt", "wip\n")
	fix.commit("checkpoint before lunch")

	resolver := fix.resolver(map[string]string{"app": publishedMetadata("app", "1.0.0", first)})

	state, err := resolver.Resolve(appPackage("1.0.0"))
	require.NoError(t, err)

	assert.False(t, state.ReleaseRequired)
	assert.Empty(t, state.Commits)
	assert.Equal(t, "", state.NextVersion)
}

func TestResolveUpToDate(t *testing.T) {
	t.Parallel()

	fix := newFixture(t)
	fix.write("packages/app/package.json", manifestJSON("app", "1.0.0"))
	first := fix.commit("feat(app): bootstrap the app")

	resolver := fix.resolver(map[string]string{"app": publishedMetadata("app", "1.0.0", first)})

	state, err := resolver.Resolve(appPackage("1.0.0"))
	require.NoError(t, err)

	assert.False(t, state.ReleaseRequired)
	assert.Equal(t, "1.0.0", state.LastPublishedVersion)
	assert.Empty(t, state.Commits)
}

func TestResolveTagBaseline(t *testing.T) {
	t.Parallel()

	fix := newFixture(t)
	fix.write("packages/app/package.json", manifestJSON("app", "1.0.0"))
	first := fix.commit("feat(app): bootstrap the app")

	head, err := fix.repo.Head()
	require.NoError(t, err)

	_, err = fix.repo.CreateTag("app-1.0.0", head.Hash(), nil)
	require.NoError(t, err)

	fix.write("packages/app/index.js", "module.exports = 5\n")
	fix.commit("fix(app): correct rounding")

	metadata := `{"name":"app","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"name":"app","version":"1.0.0"}}}`
	resolver := fix.resolver(map[string]string{"app": metadata})

	state, err := resolver.Resolve(appPackage("1.0.0"))
	require.NoError(t, err)

	assert.True(t, state.ReleaseRequired)
	assert.Equal(t, first, state.LastReleasedCommit)
	assert.Equal(t, "1.0.1", state.NextVersion)
	require.Len(t, state.Commits, 1)
}

func TestResolveMissingPublishedCommitFallsToTag(t *testing.T) {
	t.Parallel()

	fix := newFixture(t)
	fix.write("packages/app/package.json", manifestJSON("app", "1.0.0"))
	first := fix.commit("feat(app): bootstrap the app")

	head, err := fix.repo.Head()
	require.NoError(t, err)

	_, err = fix.repo.CreateTag("app-1.0.0", head.Hash(), nil)
	require.NoError(t, err)

	fix.write("packages/app/index.js", "module.exports = 7\n")
	second := fix.commit("fix(app): correct rounding")

	gone := strings.Repeat("a", 40)
	logs := &bytes.Buffer{}
	resolver := fix.resolverWithLogger(zerolog.New(logs), map[string]string{"app": publishedMetadata("app", "1.0.0", gone)})

	state, err := resolver.Resolve(appPackage("1.0.0"))
	require.NoError(t, err)

	assert.True(t, state.ReleaseRequired)
	assert.Equal(t, first, state.LastReleasedCommit)
	assert.Equal(t, "1.0.1", state.NextVersion)
	require.Len(t, state.Commits, 1)
	assert.Equal(t, second, state.Commits[0].Hash)

	assert.Contains(t, logs.String(), "published commit not found locally")
	assert.Contains(t, logs.String(), gone)
}

func TestResolveMissingBaselineFallsToFirstCommit(t *testing.T) {
	t.Parallel()

	fix := newFixture(t)
	fix.write("packages/app/package.json", manifestJSON("app", "1.0.0"))
	first := fix.commit("feat(app): bootstrap the app")
	fix.write("packages/app/index.js", "module.exports = 8\n")
	fix.commit("fix(app): correct rounding")

	gone := strings.Repeat("b", 40)
	logs := &bytes.Buffer{}
	resolver := fix.resolverWithLogger(zerolog.New(logs), map[string]string{"app": publishedMetadata("app", "1.0.0", gone)})

	state, err := resolver.Resolve(appPackage("1.0.0"))
	require.NoError(t, err)

	assert.True(t, state.ReleaseRequired)
	assert.Equal(t, first, state.LastReleasedCommit)
	assert.Equal(t, "1.1.0", state.NextVersion)
	require.Len(t, state.Commits, 2)

	assert.Contains(t, logs.String(), "published commit not found locally")
	assert.Contains(t, logs.String(), "no tag for published version, scanning from first commit")
}

func TestResolveBaselineOutsidePackageHistory(t *testing.T) {
	t.Parallel()

	fix := newFixture(t)
	fix.write("packages/app/package.json", manifestJSON("app", "1.0.0"))
	fix.commit("feat(app): bootstrap the app")
	fix.write("README.md", "# monorepo\n")
	docs := fix.commit("docs: describe the layout")
	fix.write("packages/app/index.js", "module.exports = 9\n")
	fix.commit("fix(app): correct rounding")

	logs := &bytes.Buffer{}
	resolver := fix.resolverWithLogger(zerolog.New(logs), map[string]string{"app": publishedMetadata("app", "1.0.0", docs)})

	state, err := resolver.Resolve(appPackage("1.0.0"))
	require.NoError(t, err)

	assert.True(t, state.ReleaseRequired)
	assert.Equal(t, docs, state.LastReleasedCommit)
	assert.Equal(t, "1.1.0", state.NextVersion)
	require.Len(t, state.Commits, 2)

	assert.Contains(t, logs.String(), "baseline does not touch the package, scanning full history")
}

func TestResolveDistTagFromPublishConfig(t *testing.T) {
	t.Parallel()

	fix := newFixture(t)
	fix.write("packages/app/package.json", manifestJSON("app", "1.5.0"))
	first := fix.commit("feat(app): bootstrap the app")
	fix.write("packages/app/index.js", "module.exports = 6\n")
	fix.commit("feat(app): add csv export")

	metadata := fmt.Sprintf(
		`{"name":"app","dist-tags":{"latest":"9.9.9","next":"1.5.0"},"versions":{"1.5.0":{"name":"app","version":"1.5.0","gitHead":%q}}}`,
		first,
	)
	resolver := fix.resolver(map[string]string{"app": metadata})

	pkg := appPackage("1.5.0")
	pkg.Manifest.PublishConfig = &manifest.PublishConfig{Tag: "next"}

	state, err := resolver.Resolve(pkg)
	require.NoError(t, err)

	assert.Equal(t, "next", state.DistTag)
	assert.Equal(t, "1.5.0", state.LastPublishedVersion)
	assert.Equal(t, "1.6.0", state.NextVersion)
}

func TestBumpKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", release.BumpNone.String())
	assert.Equal(t, "patch", release.BumpPatch.String())
	assert.Equal(t, "minor", release.BumpMinor.String())
	assert.Equal(t, "major", release.BumpMajor.String())
}
