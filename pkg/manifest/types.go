package manifest

import "sort"

// Manifest models the package.json fields the tool reads. Unknown fields
// survive untouched because rewrites are textual, not re-serializations.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Private         bool              `json:"private,omitempty"`
	Description     string            `json:"description,omitempty"`
	Scripts         map[string]string `json:"scripts,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
	PublishConfig   *PublishConfig    `json:"publishConfig,omitempty"`
}

type PublishConfig struct {
	Tag      string `json:"tag,omitempty"`
	Access   string `json:"access,omitempty"`
	Registry string `json:"registry,omitempty"`
}

// HasScript reports whether the manifest declares the named script.
func (m *Manifest) HasScript(name string) bool {
	_, ok := m.Scripts[name]

	return ok
}

// DistTag returns publishConfig.tag, or fallback when unset.
func (m *Manifest) DistTag(fallback string) string {
	if m.PublishConfig != nil && m.PublishConfig.Tag != "" {
		return m.PublishConfig.Tag
	}

	return fallback
}

// DependencyNames returns the union of dependencies and devDependencies,
// sorted for deterministic iteration.
func (m *Manifest) DependencyNames() []string {
	seen := make(map[string]struct{}, len(m.Dependencies)+len(m.DevDependencies))
	names := make([]string, 0, len(m.Dependencies)+len(m.DevDependencies))

	for name := range m.Dependencies {
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for name := range m.DevDependencies {
		if _, ok := seen[name]; ok {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
