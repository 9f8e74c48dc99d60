package runner

import "errors"

// ErrSkipRemaining stops a sequential run early without failing it. Tasks
// return it, possibly wrapped, when the remaining items must not run.
var ErrSkipRemaining = errors.New("skip remaining items")
