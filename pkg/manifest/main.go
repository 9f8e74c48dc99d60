package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
)

// Filename is the manifest file name inside every package directory.
const Filename = "package.json"

// BackupSuffix is appended to the manifest path while a scoped patch is
// active.
const BackupSuffix = ".orig"

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}

		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return Parse(data)
}

// Parse decodes raw manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	return m, nil
}

// versionLine matches a line assigning a plain numeric version to key. The
// narrowing to digit groups is intentional: prerelease and range strings
// must never be rewritten.
func versionLine(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^(\s*"` + regexp.QuoteMeta(key) + `"\s*:\s*)"\d+(?:\.\d+){0,2}"(,?)$`)
}

// SetVersion rewrites the manifest's own version line in place, leaving
// every other byte of the file untouched.
func SetVersion(path, version string) error {
	return rewrite(path, "version", version)
}

// SetDependencyVersion rewrites every line pinning name to a plain numeric
// version, covering dependencies and devDependencies alike.
func SetDependencyVersion(path, name, version string) error {
	return rewrite(path, name, version)
}

func rewrite(path, key, version string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	patched := versionLine(key).ReplaceAll(data, []byte(`${1}"`+version+`"${2}`))
	if bytes.Equal(data, patched) {
		return nil
	}

	if err := os.WriteFile(path, patched, 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// dependencyBlocks matches the dependencies and devDependencies objects.
// Their values are flat string maps, so the first closing brace ends the
// block.
var dependencyBlocks = regexp.MustCompile(`(?s)"(?:dependencies|devDependencies)"\s*:\s*\{.*?\}`)

// dependencyEntries returns the patterns that remove name from a dependency
// block, tried in order. The first two claim an adjacent comma so the block
// stays valid JSON; the third handles a lone entry.
func dependencyEntries(name string) []*regexp.Regexp {
	quoted := regexp.QuoteMeta(name)

	return []*regexp.Regexp{
		regexp.MustCompile(`"` + quoted + `"\s*:\s*"[^"]*"\s*,\s*`),
		regexp.MustCompile(`,\s*"` + quoted + `"\s*:\s*"[^"]*"`),
		regexp.MustCompile(`\s*"` + quoted + `"\s*:\s*"[^"]*"\s*`),
	}
}

func removeDependency(block []byte, name string) []byte {
	for _, re := range dependencyEntries(name) {
		if stripped := re.ReplaceAll(block, nil); !bytes.Equal(stripped, block) {
			return stripped
		}
	}

	return block
}

// WithLocalDepsStripped replaces the manifest with a copy whose local
// sibling entries are removed from dependencies and devDependencies, runs
// fn, and restores the original bytes on every exit path. The removal is
// textual, so every byte outside the two dependency blocks survives the
// stripped window. The backup lives next to the manifest for the duration
// of fn and never survives it.
func WithLocalDepsStripped(path string, isLocal func(string) bool, fn func() error) (err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return err
	}

	stripped := data

	for _, name := range m.DependencyNames() {
		if !isLocal(name) {
			continue
		}

		stripped = dependencyBlocks.ReplaceAllFunc(stripped, func(block []byte) []byte {
			return removeDependency(block, name)
		})
	}

	backupPath := path + BackupSuffix
	if err := os.WriteFile(backupPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to back up manifest: %w", err)
	}

	defer func() {
		if restoreErr := os.Rename(backupPath, path); restoreErr != nil && err == nil {
			err = fmt.Errorf("failed to restore manifest: %w", restoreErr)
		}
	}()

	if err := os.WriteFile(path, stripped, 0o600); err != nil {
		return fmt.Errorf("failed to write stripped manifest: %w", err)
	}

	return fn()
}
