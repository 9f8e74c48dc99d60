package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/monoctl/monoctl/pkg/cli"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, logWriter *os.File) int {
	if err := cli.Execute(args, logWriter); err != nil {
		output := zerolog.ConsoleWriter{Out: logWriter, TimeFormat: time.RFC3339}
		logger := zerolog.New(output).With().Timestamp().Logger()

		logger.Err(err).Msg("failed to run monoctl")

		return 1
	}

	return 0
}
