package publish

import "errors"

// ErrNoReleaseCommit means no kept commit touched the package manifest, so
// there is no commit to tag.
var ErrNoReleaseCommit = errors.New("no release commit found")
