package graph

import (
	"path"

	"github.com/monoctl/monoctl/pkg/manifest"
)

// Package is one directory under the packages root carrying a manifest.
type Package struct {
	// Dir is the directory name. Conventional commit scopes refer to it.
	Dir string
	// Path is the repo-relative, slash-separated package directory path.
	Path string
	// Manifest is the decoded package.json as discovered. Operations that
	// mutate manifests reload from disk instead of trusting this snapshot.
	Manifest *manifest.Manifest
}

// ManifestPath returns the repo-relative path of the package's manifest,
// slash-separated to match git's path reporting.
func (p *Package) ManifestPath() string {
	return path.Join(p.Path, manifest.Filename)
}
