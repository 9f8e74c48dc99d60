package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	cc "github.com/leodido/go-conventionalcommits"
	"github.com/monoctl/monoctl/pkg/config"
	"github.com/monoctl/monoctl/pkg/graph"
	"github.com/monoctl/monoctl/pkg/registry"
	"github.com/rs/zerolog"
)

// Resolver computes release states for packages by combining registry
// metadata with the package's conventional commit history.
type Resolver struct {
	logger       zerolog.Logger
	conf         *config.Config
	repo         *git.Repository
	registry     *registry.Client
	commitParser cc.Machine
}

// New creates a new Resolver instance.
func New(
	logger zerolog.Logger, conf *config.Config, repo *git.Repository, registryClient *registry.Client,
	commitParser cc.Machine,
) *Resolver {
	return &Resolver{logger, conf, repo, registryClient, commitParser}
}

// Resolve determines whether pkg needs a release and which version it would
// carry. It never modifies the repository or the registry.
func (r *Resolver) Resolve(pkg *graph.Package) (*State, error) {
	logger := r.logger.With().Str("package", pkg.Dir).Logger()

	state := &State{DistTag: pkg.Manifest.DistTag(r.conf.DistTag)}

	metadata, err := r.registry.Fetch(pkg.Manifest.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to query registry for %s: %w", pkg.Manifest.Name, err)
	}

	state.LastPublishedVersion = metadata.Published(state.DistTag)

	baseline, inclusive, err := r.baseline(logger, pkg, metadata, state.LastPublishedVersion)
	if err != nil {
		return nil, err
	}

	if baseline.IsZero() {
		logger.Debug().Msg("no commits touch this package yet")

		return state, nil
	}

	state.LastReleasedCommit = baseline.String()

	state.Commits, err = r.commitsSince(logger, pkg, baseline, inclusive)
	if err != nil {
		return nil, err
	}

	if len(state.Commits) == 0 {
		logger.Info().Str("version", state.LastPublishedVersion).Msg("up to date")

		return state, nil
	}

	state.ReleaseRequired = true
	state.Bump = foldBump(state.Commits)

	state.NextVersion, err = r.nextVersion(pkg, state)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("version", state.NextVersion).Msg("commits detected")

	return state, nil
}

// baseline locates the commit the history scan stops at. Published packages
// anchor on the published version's commit and the scan excludes it, like
// git's A..B range. Never published packages anchor on their first commit
// and the scan includes it, so the commit introducing the manifest stays
// part of the release.
func (r *Resolver) baseline(
	logger zerolog.Logger, pkg *graph.Package, metadata *registry.Metadata, published string,
) (plumbing.Hash, bool, error) {
	if published == "" {
		first, err := r.firstCommit(pkg)

		return first, true, err
	}

	if gitHead := metadata.GitHead(published); gitHead != "" {
		hash := plumbing.NewHash(gitHead)
		if _, err := r.repo.CommitObject(hash); err == nil {
			return hash, false, nil
		}

		logger.Warn().Str("commit", gitHead).Msg("published commit not found locally")
	}

	tagName := r.conf.TagFor(pkg.Manifest.Name, published)

	tag, err := r.repo.Tag(tagName)
	if err == nil {
		hash := tag.Hash()
		if tagObject, err := r.repo.TagObject(hash); err == nil {
			hash = tagObject.Target
		}

		return hash, false, nil
	}

	if !errors.Is(err, git.ErrTagNotFound) {
		return plumbing.ZeroHash, false, fmt.Errorf("failed to look up tag %s: %w", tagName, err)
	}

	logger.Warn().Str("tag", tagName).Msg("no tag for published version, scanning from first commit")

	first, err := r.firstCommit(pkg)

	return first, true, err
}

// firstCommit returns the oldest commit touching the package directory, or
// the zero hash when no commit does.
func (r *Resolver) firstCommit(pkg *graph.Package) (plumbing.Hash, error) {
	iter, err := r.history(pkg)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	first := plumbing.ZeroHash

	if err := iter.ForEach(func(commit *object.Commit) error {
		first = commit.Hash

		return nil
	}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to walk history of %s: %w", pkg.Dir, err)
	}

	return first, nil
}

func (r *Resolver) commitsSince(
	logger zerolog.Logger, pkg *graph.Package, baseline plumbing.Hash, inclusive bool,
) ([]Commit, error) {
	iter, err := r.history(pkg)
	if err != nil {
		return nil, err
	}

	var commits []Commit

	baselineSeen := false

	if err := iter.ForEach(func(commit *object.Commit) error {
		atBaseline := commit.Hash == baseline
		if atBaseline {
			baselineSeen = true
		}

		if atBaseline && !inclusive {
			return storer.ErrStop
		}

		if kept, ok := r.keep(logger, pkg, commit); ok {
			commits = append(commits, kept)
		}

		if atBaseline {
			return storer.ErrStop
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to walk history of %s: %w", pkg.Dir, err)
	}

	if !baselineSeen {
		logger.Debug().Str("commit", baseline.String()).Msg("baseline does not touch the package, scanning full history")
	}

	return commits, nil
}

func (r *Resolver) history(pkg *graph.Package) (object.CommitIter, error) {
	iter, err := r.repo.Log(&git.LogOptions{
		PathFilter: func(path string) bool {
			return strings.HasPrefix(path, pkg.Path+"/")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get log: %w", err)
	}

	return iter, nil
}

// keep parses the commit message and keeps the commit when its scope names
// the package directory. The full message is parsed, not only the subject,
// so breaking changes declared in footers are detected.
func (r *Resolver) keep(logger zerolog.Logger, pkg *graph.Package, commit *object.Commit) (Commit, bool) {
	subject, _, _ := strings.Cut(commit.Message, "\n")

	message, _ := r.commitParser.Parse([]byte(commit.Message))

	conventional, ok := message.(*cc.ConventionalCommit)
	if !ok || conventional.Scope == nil || *conventional.Scope != pkg.Dir {
		logger.Debug().Str("message", subject).Msg("SKIP")

		return Commit{}, false
	}

	touches, statsErr := touchesManifest(pkg, commit)
	if statsErr != nil {
		logger.Warn().Err(statsErr).Str("commit", commit.Hash.String()).Msg("failed to diff commit")
	}

	kept := Commit{
		Hash:            commit.Hash.String(),
		ShortHash:       commit.Hash.String()[:7],
		Type:            conventional.Type,
		Scope:           *conventional.Scope,
		Subject:         subject,
		Breaking:        conventional.IsBreakingChange(),
		Bump:            bumpOf(message),
		TouchesManifest: touches,
	}

	switch kept.Bump {
	case BumpMajor:
		logger.Info().Str("message", subject).Msg("MAJOR")
	case BumpMinor:
		logger.Info().Str("message", subject).Msg("MINOR")
	case BumpPatch:
		logger.Info().Str("message", subject).Msg("PATCH")
	case BumpNone:
		logger.Info().Str("message", subject).Msg("SKIP")
	}

	return kept, true
}

func touchesManifest(pkg *graph.Package, commit *object.Commit) (bool, error) {
	stats, err := commit.Stats()
	if err != nil {
		return false, fmt.Errorf("failed to get commit stats: %w", err)
	}

	for _, stat := range stats {
		if stat.Name == pkg.ManifestPath() {
			return true, nil
		}
	}

	return false, nil
}

func (r *Resolver) nextVersion(pkg *graph.Package, state *State) (string, error) {
	if state.LastPublishedVersion == "" {
		if _, err := semver.NewVersion(pkg.Manifest.Version); err != nil {
			return "", fmt.Errorf("failed to parse version of %s: %w", pkg.Manifest.Name, err)
		}

		return pkg.Manifest.Version, nil
	}

	published, err := semver.NewVersion(state.LastPublishedVersion)
	if err != nil {
		return "", fmt.Errorf("failed to parse published version of %s: %w", pkg.Manifest.Name, err)
	}

	next := increment(published, state.Bump)

	return next.String(), nil
}

func bumpOf(message cc.Message) BumpKind {
	switch message.VersionBump(cc.DefaultStrategy) {
	case cc.MajorVersion:
		return BumpMajor
	case cc.MinorVersion:
		return BumpMinor
	case cc.PatchVersion:
		return BumpPatch
	default:
		return BumpNone
	}
}

// foldBump takes the strongest bump of the kept commits, floored at patch
// so a release always moves the version.
func foldBump(commits []Commit) BumpKind {
	bump := BumpPatch

	for _, commit := range commits {
		if commit.Bump > bump {
			bump = commit.Bump
		}
	}

	return bump
}

// increment applies bump to version, defaulting to a patch increment.
func increment(version *semver.Version, bump BumpKind) semver.Version {
	switch bump {
	case BumpMajor:
		return version.IncMajor()
	case BumpMinor:
		return version.IncMinor()
	default:
		return version.IncPatch()
	}
}
