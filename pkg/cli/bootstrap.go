package cli

import "github.com/spf13/cobra"

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Install the dependencies of every package in dependency order",
	Args:  cobra.NoArgs,
	RunE:  runBootstrap,
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(cmd)
	if err != nil {
		return err
	}

	npmClient, err := app.npm()
	if err != nil {
		return err
	}

	return app.mono.Bootstrap(npmClient)
}
