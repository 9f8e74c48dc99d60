package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/monoctl/monoctl/pkg/config"
	"github.com/monoctl/monoctl/pkg/monorepo"
	"github.com/monoctl/monoctl/pkg/npm"
	"github.com/monoctl/monoctl/pkg/registry"
)

// app holds the fully wired state every command runs against.
type app struct {
	logger zerolog.Logger
	conf   *config.Config
	mono   *monorepo.Monorepo
}

// buildApp resolves the configuration and opens the repository. Values are
// layered in increasing precedence: defaults, the repo's config file,
// MONOCTL_* environment variables, then flags that were set on the command
// line.
func buildApp(cmd *cobra.Command) (*app, error) {
	conf := config.New()

	// The root decides where the repository and its config file live, so it
	// is resolved before anything else.
	if root, ok := os.LookupEnv("MONOCTL_ROOT"); ok {
		conf.RootDir = root
	}

	if cmd.Flags().Changed("root") {
		conf.RootDir = flagRoot
	}

	repo, err := git.PlainOpen(conf.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", conf.RootDir, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := conf.LoadFile(worktree.Filesystem); err != nil {
		return nil, err
	}

	conf.ApplyEnv()
	applyFlags(cmd, conf)

	logger := newLogger(cmd.OutOrStdout())
	if conf.Verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	commitParser := parser.NewMachine(parser.WithTypes(conventionalcommits.TypesConventional))
	commitParser.WithBestEffort()

	registryClient := registry.New(conf.RegistryURL, conf.FetchTimeout)

	return &app{
		logger: logger,
		conf:   conf,
		mono:   monorepo.New(logger, conf, repo, registryClient, commitParser),
	}, nil
}

// npm builds the client commands use to shell out to npm.
func (a *app) npm() (npm.BinaryClient, error) {
	return npm.New(a.conf.NpmBinaryPath, a.conf.RegistryURL, a.conf.Env)
}

func applyFlags(cmd *cobra.Command, conf *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("packages-dir") {
		conf.PackagesDir = flagPackagesDir
	}

	if flags.Changed("registry") {
		conf.RegistryURL = flagRegistry
	}

	if flags.Changed("dist-tag") {
		conf.DistTag = flagDistTag
	}

	if flags.Changed("tag-pattern") {
		conf.TagPattern = flagTagPattern
	}

	if flags.Changed("remote") {
		conf.Remote = flagRemote
	}

	if flags.Changed("npm-binary-path") {
		conf.NpmBinaryPath = flagNpmBinary
	}

	if flags.Changed("fetch-timeout") {
		conf.FetchTimeout = flagFetchTimeout
	}

	if flags.Changed("verbose") {
		conf.Verbose = flagVerbose
	}
}

func newLogger(out io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}

	return zerolog.New(output).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}
