package monorepo

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	cc "github.com/leodido/go-conventionalcommits"
	"github.com/monoctl/monoctl/pkg/changelog"
	"github.com/monoctl/monoctl/pkg/command"
	"github.com/monoctl/monoctl/pkg/config"
	"github.com/monoctl/monoctl/pkg/graph"
	"github.com/monoctl/monoctl/pkg/manifest"
	"github.com/monoctl/monoctl/pkg/npm"
	"github.com/monoctl/monoctl/pkg/publish"
	"github.com/monoctl/monoctl/pkg/registry"
	"github.com/monoctl/monoctl/pkg/release"
	"github.com/monoctl/monoctl/pkg/runner"
	"github.com/rs/zerolog"
)

// Monorepo runs the bulk operations over every package, strictly one
// package at a time in dependency order. Later packages may rely on side
// effects of earlier ones, so nothing here runs concurrently.
type Monorepo struct {
	logger       zerolog.Logger
	conf         *config.Config
	repo         *git.Repository
	registry     *registry.Client
	commitParser cc.Machine
}

// New creates a new Monorepo instance.
func New(
	logger zerolog.Logger, conf *config.Config, repo *git.Repository, registryClient *registry.Client,
	commitParser cc.Machine,
) *Monorepo {
	return &Monorepo{logger, conf, repo, registryClient, commitParser}
}

// Bootstrap installs every package's registry dependencies. Sibling
// packages are stripped from each manifest while npm runs, because they are
// linked locally and cannot be fetched from a registry.
func (m *Monorepo) Bootstrap(npmClient npm.Client) error {
	packageGraph, worktree, ordered, err := m.packages()
	if err != nil {
		return err
	}

	rootDir := worktree.Filesystem.Root()

	result, err := runner.Run(ordered, packageName, func(pkg *graph.Package) (string, error) {
		m.logger.Info().Str("package", pkg.Dir).Msg("installing dependencies")

		manifestPath := filepath.Join(rootDir, filepath.FromSlash(pkg.ManifestPath()))

		err := manifest.WithLocalDepsStripped(manifestPath, packageGraph.IsLocal, func() error {
			return npmClient.Install(filepath.Join(rootDir, filepath.FromSlash(pkg.Path)))
		})
		if err != nil {
			return "", err
		}

		return pkg.Dir, nil
	})
	if err != nil {
		return err
	}

	m.reportSkipped(result.Skipped)

	return nil
}

// Reset removes every package's node_modules directory.
func (m *Monorepo) Reset() error {
	_, worktree, ordered, err := m.packages()
	if err != nil {
		return err
	}

	rootDir := worktree.Filesystem.Root()

	result, err := runner.Run(ordered, packageName, func(pkg *graph.Package) (string, error) {
		nodeModules := filepath.Join(rootDir, filepath.FromSlash(pkg.Path), "node_modules")

		if err := os.RemoveAll(nodeModules); err != nil {
			return "", fmt.Errorf("failed to remove %s: %w", nodeModules, err)
		}

		m.logger.Info().Str("package", pkg.Dir).Msg("removed node_modules")

		return pkg.Dir, nil
	})
	if err != nil {
		return err
	}

	m.reportSkipped(result.Skipped)

	return nil
}

// Release writes changelogs, bumps manifests and creates one release commit
// per package that has unreleased changes. It refuses to start on a dirty
// worktree because it stages and commits files itself.
func (m *Monorepo) Release() error {
	packageGraph, worktree, ordered, err := m.packages()
	if err != nil {
		return err
	}

	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}

	if !status.IsClean() {
		return ErrDirtyWorktree
	}

	if err := m.runHook("preRelease", m.conf.Hooks.PreRelease); err != nil {
		return err
	}

	resolver := release.New(m.logger, m.conf, m.repo, m.registry, m.commitParser)

	result, err := runner.Run(ordered, packageName, func(pkg *graph.Package) (string, error) {
		return m.releasePackage(resolver, packageGraph, worktree, pkg)
	})
	if err != nil {
		return err
	}

	m.reportSkipped(result.Skipped)

	return m.runHook("postRelease", m.conf.Hooks.PostRelease)
}

// TestRelease reports what Release would do without touching the worktree.
func (m *Monorepo) TestRelease() error {
	_, _, ordered, err := m.packages()
	if err != nil {
		return err
	}

	resolver := release.New(m.logger, m.conf, m.repo, m.registry, m.commitParser)

	result, err := runner.Run(ordered, packageName, func(pkg *graph.Package) (string, error) {
		logger := m.logger.With().Str("package", pkg.Dir).Logger()

		state, err := resolver.Resolve(pkg)
		if err != nil {
			return "", err
		}

		if !state.ReleaseRequired {
			logger.Info().Msg("no release required")

			return "", nil
		}

		logger.Info().
			Str("bump", state.Bump.String()).
			Str("version", state.NextVersion).
			Int("commits", len(state.Commits)).
			Msg("release required")

		return state.NextVersion, nil
	})
	if err != nil {
		return err
	}

	m.reportSkipped(result.Skipped)

	return nil
}

// Publish tags and publishes every released but unpublished package.
// Private packages are reported and left out instead of failing the run.
func (m *Monorepo) Publish(npmClient npm.Client) error {
	_, _, ordered, err := m.packages()
	if err != nil {
		return err
	}

	if err := m.runHook("prePublish", m.conf.Hooks.PrePublish); err != nil {
		return err
	}

	resolver := release.New(m.logger, m.conf, m.repo, m.registry, m.commitParser)
	publisher := publish.New(m.logger, m.conf, m.repo, npmClient)

	result, err := runner.Run(ordered, packageName, func(pkg *graph.Package) (string, error) {
		if pkg.Manifest.Private {
			m.logger.Info().Str("package", pkg.Dir).Msg("private package, not published")

			return "", nil
		}

		state, err := resolver.Resolve(pkg)
		if err != nil {
			return "", err
		}

		if err := publisher.Publish(pkg, state); err != nil {
			return "", err
		}

		return pkg.Manifest.Version, nil
	})
	if err != nil {
		return err
	}

	m.reportSkipped(result.Skipped)

	return m.runHook("postPublish", m.conf.Hooks.PostPublish)
}

// RunScript runs the named npm script in every package that declares it.
func (m *Monorepo) RunScript(npmClient npm.Client, script string) error {
	_, worktree, ordered, err := m.packages()
	if err != nil {
		return err
	}

	rootDir := worktree.Filesystem.Root()

	result, err := runner.Run(ordered, packageName, func(pkg *graph.Package) (string, error) {
		logger := m.logger.With().Str("package", pkg.Dir).Logger()

		if !pkg.Manifest.HasScript(script) {
			logger.Debug().Str("script", script).Msg("script not declared, skipping")

			return "", nil
		}

		logger.Info().Str("script", script).Msg("running script")

		return npmClient.RunScript(filepath.Join(rootDir, filepath.FromSlash(pkg.Path)), script)
	})
	if err != nil {
		return err
	}

	m.reportSkipped(result.Skipped)

	return nil
}

// Npm runs a raw npm invocation in every package directory.
func (m *Monorepo) Npm(npmClient npm.Client, args []string) error {
	_, worktree, ordered, err := m.packages()
	if err != nil {
		return err
	}

	rootDir := worktree.Filesystem.Root()

	result, err := runner.Run(ordered, packageName, func(pkg *graph.Package) (string, error) {
		m.logger.Info().Str("package", pkg.Dir).Strs("args", args).Msg("running npm")

		return npmClient.Exec(filepath.Join(rootDir, filepath.FromSlash(pkg.Path)), args...)
	})
	if err != nil {
		return err
	}

	m.reportSkipped(result.Skipped)

	return nil
}

// packages discovers the package set fresh and linearizes it. Every
// operation starts from this call, never from a cached set, because
// manifests change mid-pipeline.
func (m *Monorepo) packages() (*graph.Graph, *git.Worktree, []*graph.Package, error) {
	worktree, err := m.repo.Worktree()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	packageGraph, err := graph.Discover(worktree.Filesystem, m.conf.PackagesDir)
	if err != nil {
		return nil, nil, nil, err
	}

	ordered, err := packageGraph.Order()
	if err != nil {
		return nil, nil, nil, err
	}

	return packageGraph, worktree, ordered, nil
}

func (m *Monorepo) releasePackage(
	resolver *release.Resolver, packageGraph *graph.Graph, worktree *git.Worktree, pkg *graph.Package,
) (string, error) {
	logger := m.logger.With().Str("package", pkg.Dir).Logger()

	state, err := resolver.Resolve(pkg)
	if err != nil {
		return "", err
	}

	if !state.ReleaseRequired {
		logger.Info().Msg("no release required")

		return "", nil
	}

	if state.HasSubject(fmt.Sprintf("chore(%s): release %s", pkg.Dir, state.NextVersion)) {
		logger.Info().Str("version", state.NextVersion).Msg("release commit already present")

		return state.NextVersion, nil
	}

	logger.Info().Str("version", state.NextVersion).Msg("releasing package")

	changes := m.changelogFor(pkg, state)

	rootDir := worktree.Filesystem.Root()

	if err := manifest.SetVersion(filepath.Join(rootDir, filepath.FromSlash(pkg.ManifestPath())), state.NextVersion); err != nil {
		return "", err
	}

	if err := m.pinLocalDependencies(packageGraph, rootDir, pkg); err != nil {
		return "", err
	}

	if err := writeChangelog(filepath.Join(rootDir, filepath.FromSlash(pkg.Path), "CHANGELOG.md"), changes); err != nil {
		return "", err
	}

	if err := m.commitRelease(worktree, pkg, state.NextVersion, changes); err != nil {
		return "", err
	}

	logger.Info().Str("version", state.NextVersion).Msg("released")

	return state.NextVersion, nil
}

func (m *Monorepo) changelogFor(pkg *graph.Package, state *release.State) *changelog.Changelog {
	changes := changelog.New()
	changes.SetNewVersion(state.NextVersion)

	if state.LastPublishedVersion != "" {
		changes.SetOldVersion(state.LastPublishedVersion)
		changes.SetCompareTags(
			m.conf.TagFor(pkg.Manifest.Name, state.LastPublishedVersion),
			m.conf.TagFor(pkg.Manifest.Name, state.NextVersion),
		)
	}

	if remote, err := m.repo.Remote(m.conf.Remote); err == nil {
		changes.SetRemote(remote.Config().URLs[0])
	}

	for _, commit := range state.Commits {
		switch commit.Bump {
		case release.BumpMajor:
			changes.AddBreaking(commit.Subject, commit.ShortHash)
		case release.BumpMinor:
			changes.AddFeature(commit.Subject, commit.ShortHash)
		case release.BumpPatch:
			changes.AddFix(commit.Subject, commit.ShortHash)
		case release.BumpNone:
		}
	}

	return changes
}

// pinLocalDependencies rewrites the manifest's entries for sibling packages
// to their current versions, read fresh from disk because earlier releases
// in the same run may have bumped them.
func (m *Monorepo) pinLocalDependencies(packageGraph *graph.Graph, rootDir string, pkg *graph.Package) error {
	manifestPath := filepath.Join(rootDir, filepath.FromSlash(pkg.ManifestPath()))

	for _, depName := range pkg.Manifest.DependencyNames() {
		dep, ok := packageGraph.Lookup(depName)
		if !ok {
			continue
		}

		depManifest, err := manifest.Load(filepath.Join(rootDir, filepath.FromSlash(dep.ManifestPath())))
		if err != nil {
			return err
		}

		if err := manifest.SetDependencyVersion(manifestPath, depName, depManifest.Version); err != nil {
			return err
		}
	}

	return nil
}

func (m *Monorepo) commitRelease(
	worktree *git.Worktree, pkg *graph.Package, version string, changes *changelog.Changelog,
) error {
	if _, err := worktree.Add(pkg.ManifestPath()); err != nil {
		return fmt.Errorf("failed to add %s: %w", manifest.Filename, err)
	}

	if _, err := worktree.Add(path.Join(pkg.Path, "CHANGELOG.md")); err != nil {
		return fmt.Errorf("failed to add CHANGELOG.md: %w", err)
	}

	summary := ""
	if changes.Len() > 0 {
		summary = "\n\n" + changes.String()
	}

	message := fmt.Sprintf("chore(%s): release %s [skip ci]%s", pkg.Dir, version, summary)

	if _, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: false,
	}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

func (m *Monorepo) runHook(name, hookCommand string) error {
	if hookCommand == "" {
		return nil
	}

	m.logger.Info().Str("hook", name).Msg("running hook")

	output, err := command.Run(hookCommand, m.conf.RootDir, m.conf.Env)
	if err != nil {
		return fmt.Errorf("failed to run %s hook: %w", name, err)
	}

	if output != "" {
		m.logger.Debug().Str("hook", name).Msg(output)
	}

	return nil
}

func (m *Monorepo) reportSkipped(skipped []string) {
	if len(skipped) > 0 {
		m.logger.Warn().Strs("packages", skipped).Msg("skipped remaining packages")
	}
}

func writeChangelog(changelogPath string, changes *changelog.Changelog) error {
	file, err := os.OpenFile(changelogPath, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open changelog: %w", err)
	}
	defer file.Close()

	if err := changes.WriteTo(file); err != nil {
		return fmt.Errorf("failed to write changelog: %w", err)
	}

	return nil
}

func packageName(pkg *graph.Package) string {
	return pkg.Dir
}
