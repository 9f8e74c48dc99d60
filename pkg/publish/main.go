package publish

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/monoctl/monoctl/pkg/config"
	"github.com/monoctl/monoctl/pkg/graph"
	"github.com/monoctl/monoctl/pkg/npm"
	"github.com/monoctl/monoctl/pkg/release"
	"github.com/rs/zerolog"
)

// Publisher tags a resolved release, pushes the tag and publishes the
// package from an isolated clone of the remote. Every step is skipped when
// its outcome already exists, so interrupted runs can be repeated.
type Publisher struct {
	logger zerolog.Logger
	conf   *config.Config
	repo   *git.Repository
	npm    npm.Client
}

// New creates a new Publisher instance.
func New(logger zerolog.Logger, conf *config.Config, repo *git.Repository, npmClient npm.Client) *Publisher {
	return &Publisher{logger, conf, repo, npmClient}
}

// Publish brings the registry up to date with the version currently in the
// package manifest. state must come from a resolve over the same worktree.
func (p *Publisher) Publish(pkg *graph.Package, state *release.State) error {
	logger := p.logger.With().Str("package", pkg.Dir).Logger()

	version := pkg.Manifest.Version
	if state.LastPublishedVersion == version {
		logger.Info().Str("version", version).Msg("already published")

		return nil
	}

	tagName := p.conf.TagFor(pkg.Manifest.Name, version)

	tag, err := p.repo.Tag(tagName)
	if err == nil {
		logger.Info().Str("tag", tagName).Str("commit", tag.Hash().String()).Msg("already tagged")

		return nil
	}

	if !errors.Is(err, git.ErrTagNotFound) {
		return fmt.Errorf("failed to look up tag %s: %w", tagName, err)
	}

	releaseCommit, ok := state.ReleaseCommit()
	if !ok {
		return fmt.Errorf("%w for %s %s", ErrNoReleaseCommit, pkg.Manifest.Name, version)
	}

	logger.Info().Str("tag", tagName).Str("commit", releaseCommit.ShortHash).Msg("tagging release")

	if _, err := p.repo.CreateTag(tagName, plumbing.NewHash(releaseCommit.Hash), nil); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", tagName, err)
	}

	if err := p.pushTag(tagName); err != nil {
		return err
	}

	return p.publishFromClone(logger, pkg, state.DistTag, tagName)
}

func (p *Publisher) pushTag(tagName string) error {
	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", tagName, tagName))

	err := p.repo.Push(&git.PushOptions{
		RemoteName: p.conf.Remote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push tag %s: %w", tagName, err)
	}

	return nil
}

// publishFromClone clones the remote at the release tag into a temporary
// directory and publishes from there. The live worktree never feeds the
// published artifact, so uncommitted local state cannot leak into it.
func (p *Publisher) publishFromClone(
	logger zerolog.Logger, pkg *graph.Package, distTag, tagName string,
) (err error) {
	remote, err := p.repo.Remote(p.conf.Remote)
	if err != nil {
		return fmt.Errorf("failed to get remote %s: %w", p.conf.Remote, err)
	}

	cloneDir, err := os.MkdirTemp("", "monoctl-publish-")
	if err != nil {
		return fmt.Errorf("failed to create clone directory: %w", err)
	}

	defer func() {
		if removeErr := os.RemoveAll(cloneDir); removeErr != nil && err == nil {
			err = fmt.Errorf("failed to remove clone directory: %w", removeErr)
		}
	}()

	remoteURL := remote.Config().URLs[0]

	logger.Info().Str("tag", tagName).Msg("publishing from isolated clone")

	_, err = git.PlainClone(cloneDir, false, &git.CloneOptions{
		URL:           remoteURL,
		ReferenceName: plumbing.NewTagReferenceName(tagName),
		SingleBranch:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to clone %s at %s: %w", remoteURL, tagName, err)
	}

	packageDir := filepath.Join(cloneDir, filepath.FromSlash(pkg.Path))

	if err := p.npm.Install(packageDir); err != nil {
		return fmt.Errorf("failed to install dependencies of %s: %w", pkg.Manifest.Name, err)
	}

	if err := p.npm.Publish(packageDir, distTag); err != nil {
		return fmt.Errorf("failed to publish %s: %w", pkg.Manifest.Name, err)
	}

	logger.Info().Str("version", pkg.Manifest.Version).Str("dist-tag", distTag).Msg("published")

	return nil
}
