package monorepo

import "errors"

// ErrDirtyWorktree blocks a release while uncommitted changes are present.
var ErrDirtyWorktree = errors.New("worktree has uncommitted changes")
