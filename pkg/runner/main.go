package runner

import (
	"errors"
	"fmt"
)

// Result reports how far a sequential run got.
type Result[R any] struct {
	// Last is the value returned by the last task that completed.
	Last R
	// Ran counts the tasks that were invoked, including one that stopped
	// the run.
	Ran int
	// Skipped names the items that never ran because a task asked to stop.
	Skipped []string
}

// Run invokes task on every item strictly in order, one at a time. A task
// returning ErrSkipRemaining stops the run without error and the names of
// the unprocessed items are reported, never silently dropped. Any other
// error aborts the run immediately.
func Run[T, R any](items []T, name func(T) string, task func(T) (R, error)) (Result[R], error) {
	var result Result[R]

	for i, item := range items {
		value, err := task(item)

		switch {
		case errors.Is(err, ErrSkipRemaining):
			result.Ran++

			for _, rest := range items[i+1:] {
				result.Skipped = append(result.Skipped, name(rest))
			}

			return result, nil
		case err != nil:
			return result, fmt.Errorf("failed to process %s: %w", name(item), err)
		}

		result.Last = value
		result.Ran++
	}

	return result, nil
}
