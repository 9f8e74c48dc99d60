package release

import "strings"

// BumpKind orders release impact so folding over commits can take the
// maximum.
type BumpKind int

const (
	BumpNone BumpKind = iota
	BumpPatch
	BumpMinor
	BumpMajor
)

func (b BumpKind) String() string {
	switch b {
	case BumpPatch:
		return "patch"
	case BumpMinor:
		return "minor"
	case BumpMajor:
		return "major"
	default:
		return "none"
	}
}

// Commit is one kept conventional commit scoped to a package, newest first
// in State.Commits.
type Commit struct {
	Hash            string
	ShortHash       string
	Type            string
	Scope           string
	Subject         string
	Breaking        bool
	Bump            BumpKind
	TouchesManifest bool
}

// State is the resolved release picture for one package.
type State struct {
	// DistTag is the npm dist-tag consulted and published under.
	DistTag string
	// LastPublishedVersion is empty when the package was never published
	// under DistTag.
	LastPublishedVersion string
	// LastReleasedCommit is the scan baseline: the published version's
	// commit, or the package's first commit when never published. Empty
	// when the package has no history yet.
	LastReleasedCommit string
	// Commits are the kept commits since the baseline.
	Commits []Commit
	// ReleaseRequired is true when at least one commit was kept.
	ReleaseRequired bool
	// Bump is the folded impact of the kept commits, floored at patch
	// whenever a commit was kept.
	Bump BumpKind
	// NextVersion is the version a release would carry.
	NextVersion string
}

// ReleaseCommit returns the newest kept commit that touched the manifest.
func (s *State) ReleaseCommit() (Commit, bool) {
	for _, commit := range s.Commits {
		if commit.TouchesManifest {
			return commit, true
		}
	}

	return Commit{}, false
}

// HasSubject reports whether any kept commit's subject starts with prefix.
func (s *State) HasSubject(prefix string) bool {
	for _, commit := range s.Commits {
		if strings.HasPrefix(commit.Subject, prefix) {
			return true
		}
	}

	return false
}
