package graph

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/monoctl/monoctl/pkg/manifest"
)

// Graph holds the discovered packages in directory order plus the indexes
// needed to linearize them.
type Graph struct {
	packages []*Package
	byName   map[string]int
	bare     map[string]struct{}
}

// Discover lists the packages directory and decodes one manifest per
// subdirectory. Subdirectories without a manifest are remembered so that a
// sibling dependency on them fails loudly instead of passing as external.
func Discover(fsys billy.Filesystem, dir string) (*Graph, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages directory %s: %w", dir, err)
	}

	g := &Graph{
		byName: map[string]int{},
		bare:   map[string]struct{}{},
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		manifestPath := path.Join(dir, entry.Name(), manifest.Filename)
		if _, err := fsys.Stat(manifestPath); err != nil {
			g.bare[entry.Name()] = struct{}{}

			continue
		}

		m, err := readManifest(fsys, manifestPath)
		if err != nil {
			return nil, err
		}

		if previous, ok := g.byName[m.Name]; ok {
			return nil, fmt.Errorf("%w: %s declared by %s and %s",
				ErrDuplicatePackageName, m.Name, g.packages[previous].Dir, entry.Name())
		}

		g.byName[m.Name] = len(g.packages)
		g.packages = append(g.packages, &Package{
			Dir:      entry.Name(),
			Path:     path.Join(dir, entry.Name()),
			Manifest: m,
		})
	}

	return g, nil
}

func readManifest(fsys billy.Filesystem, manifestPath string) (*manifest.Manifest, error) {
	file, err := fsys.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", manifestPath, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", manifestPath, err)
	}

	m, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", manifestPath, err)
	}

	return m, nil
}

// Packages returns the packages in discovery order.
func (g *Graph) Packages() []*Package {
	return g.packages
}

// Len returns the number of discovered packages.
func (g *Graph) Len() int {
	return len(g.packages)
}

// Lookup finds a package by its manifest name.
func (g *Graph) Lookup(name string) (*Package, bool) {
	idx, ok := g.byName[name]
	if !ok {
		return nil, false
	}

	return g.packages[idx], true
}

// IsLocal reports whether name is the manifest name of a sibling package.
func (g *Graph) IsLocal(name string) bool {
	_, ok := g.byName[name]

	return ok
}

// Order linearizes the packages so every local dependency comes before its
// dependents, considering dependencies and devDependencies alike. Ready
// packages are emitted in discovery order.
func (g *Graph) Order() ([]*Package, error) {
	n := len(g.packages)
	inDegree := make([]int, n)
	dependents := make([][]int, n)

	for i, pkg := range g.packages {
		for _, dep := range pkg.Manifest.DependencyNames() {
			j, ok := g.byName[dep]
			if !ok {
				if _, bare := g.bare[dep]; bare {
					return nil, fmt.Errorf("%w: %s required by %s",
						ErrMissingManifest, dep, pkg.Manifest.Name)
				}

				continue
			}

			if j == i {
				continue
			}

			inDegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	ready := make([]int, 0, n)

	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]*Package, 0, n)

	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]

		order = append(order, g.packages[next])

		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = insertSorted(ready, dependent)
			}
		}
	}

	if len(order) != n {
		remaining := make([]string, 0, n-len(order))

		for i, pkg := range g.packages {
			if inDegree[i] > 0 {
				remaining = append(remaining, pkg.Manifest.Name)
			}
		}

		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(remaining, ", "))
	}

	return order, nil
}

func insertSorted(ready []int, idx int) []int {
	at := sort.SearchInts(ready, idx)
	ready = append(ready, 0)
	copy(ready[at+1:], ready[at:])
	ready[at] = idx

	return ready
}
