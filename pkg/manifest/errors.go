package manifest

import "errors"

// ErrManifestNotFound is returned when a directory has no package.json.
var ErrManifestNotFound = errors.New("package.json not found")
