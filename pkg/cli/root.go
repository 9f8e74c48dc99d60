// Package cli wires up the monoctl command tree.
package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/monoctl/monoctl/pkg/registry"
)

var (
	flagRoot         string
	flagPackagesDir  string
	flagRegistry     string
	flagDistTag      string
	flagTagPattern   string
	flagRemote       string
	flagNpmBinary    string
	flagFetchTimeout time.Duration
	flagVerbose      bool
)

var rootCmd = &cobra.Command{
	Use:           "monoctl",
	Short:         "Maintenance tasks for npm package monorepos",
	Long:          "monoctl discovers the packages of an npm monorepo and runs maintenance tasks\nagainst them in dependency order: installing, releasing and publishing.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		return ErrMissingTask
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagRoot, "root", ".", "repository root directory")
	flags.StringVar(&flagPackagesDir, "packages-dir", "packages", "directory the packages live in, relative to the root")
	flags.StringVar(&flagRegistry, "registry", registry.DefaultURL, "npm registry base URL")
	flags.StringVar(&flagDistTag, "dist-tag", "latest", "npm dist-tag used to look up published versions")
	flags.StringVar(&flagTagPattern, "tag-pattern", "{name}-{version}", "pattern for release tag names")
	flags.StringVar(&flagRemote, "remote", "origin", "git remote release tags are pushed to")
	flags.StringVar(&flagNpmBinary, "npm-binary-path", "", "path to the npm binary (default: npm from PATH)")
	flags.DurationVar(&flagFetchTimeout, "fetch-timeout", 5*time.Second, "timeout for registry metadata requests")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the command selected by args, writing logs and command output
// to out.
func Execute(args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	return rootCmd.Execute()
}
