package graph

import "errors"

var (
	// ErrDependencyCycle is returned when local dependencies form a loop.
	ErrDependencyCycle = errors.New("dependency cycle between packages")

	// ErrMissingManifest is returned when a dependency names a sibling
	// directory that has no package.json.
	ErrMissingManifest = errors.New("missing manifest for declared dependency")

	// ErrDuplicatePackageName is returned when two package directories
	// declare the same manifest name.
	ErrDuplicatePackageName = errors.New("duplicate package name")
)
