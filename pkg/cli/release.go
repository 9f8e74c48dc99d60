package cli

import "github.com/spf13/cobra"

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Commit version bumps and changelogs for every changed package",
	Args:  cobra.NoArgs,
	RunE:  runRelease,
}

var testReleaseCmd = &cobra.Command{
	Use:   "testRelease",
	Short: "Show what release would do without changing anything",
	Args:  cobra.NoArgs,
	RunE:  runTestRelease,
}

func init() {
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(testReleaseCmd)
}

func runRelease(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(cmd)
	if err != nil {
		return err
	}

	return app.mono.Release()
}

func runTestRelease(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(cmd)
	if err != nil {
		return err
	}

	return app.mono.TestRelease()
}
