package registry

// Metadata is the registry document for one package, reduced to the fields
// release resolution needs. A nil Metadata means the package was never
// published.
type Metadata struct {
	Name     string                 `json:"name"`
	DistTags map[string]string      `json:"dist-tags"`
	Versions map[string]VersionInfo `json:"versions"`
}

// VersionInfo is one published version's metadata.
type VersionInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	GitHead string `json:"gitHead,omitempty"`
}

// Published returns the version published under tag, or "" when the tag is
// unknown or the package was never published.
func (m *Metadata) Published(tag string) string {
	if m == nil {
		return ""
	}

	return m.DistTags[tag]
}

// GitHead returns the commit hash recorded for version, or "".
func (m *Metadata) GitHead(version string) string {
	if m == nil {
		return ""
	}

	return m.Versions[version].GitHead
}
