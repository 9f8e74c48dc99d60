package cli

import "github.com/spf13/cobra"

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the node_modules directory of every package",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(cmd)
	if err != nil {
		return err
	}

	return app.mono.Reset()
}
