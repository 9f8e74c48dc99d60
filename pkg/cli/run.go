package cli

import "github.com/spf13/cobra"

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run an npm script in every package that declares it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	app, err := buildApp(cmd)
	if err != nil {
		return err
	}

	npmClient, err := app.npm()
	if err != nil {
		return err
	}

	return app.mono.RunScript(npmClient, args[0])
}
