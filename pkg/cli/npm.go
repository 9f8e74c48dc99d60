package cli

import "github.com/spf13/cobra"

var npmCmd = &cobra.Command{
	Use:   "npm <args...>",
	Short: "Run a raw npm command in every package directory",
	// Flags after "npm" belong to npm, not to monoctl.
	DisableFlagParsing: true,
	Args:               cobra.MinimumNArgs(1),
	RunE:               runNpm,
}

func init() {
	rootCmd.AddCommand(npmCmd)
}

func runNpm(cmd *cobra.Command, args []string) error {
	app, err := buildApp(cmd)
	if err != nil {
		return err
	}

	npmClient, err := app.npm()
	if err != nil {
		return err
	}

	return app.mono.Npm(npmClient, args)
}
