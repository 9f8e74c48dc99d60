package cli

import "errors"

// ErrMissingTask is returned when no command is given on the command line.
var ErrMissingTask = errors.New("missing task")
