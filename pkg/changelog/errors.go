package changelog

import "errors"

// ErrMissingPlaceholder is returned when an existing changelog has no
// insertion marker to anchor the new release section.
var ErrMissingPlaceholder = errors.New("changelog file does not contain " + Placeholder)
