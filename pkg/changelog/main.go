package changelog

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Placeholder marks the line after which new release sections are inserted.
const Placeholder = "<!-- INSERT COMMENT -->"

const fileHeader = "# Changelog\n\nAll notable changes to this project will be documented in this file.\n\n" + Placeholder + "\n"

var prRef = regexp.MustCompile(`\(#(\d+)\)`)

// File is the handle WriteTo rewrites in place. *os.File satisfies it.
type File interface {
	io.ReadWriteSeeker
	Truncate(size int64) error
}

type entry struct {
	message string
	hash    string
}

type Changelog struct {
	newVersion string
	oldVersion string
	remote     string
	oldTag     string
	newTag     string
	breaking   []entry
	features   []entry
	fixes      []entry
}

func New() *Changelog {
	return &Changelog{}
}

func (c *Changelog) Len() int {
	return len(c.breaking) + len(c.features) + len(c.fixes)
}

func (c *Changelog) SetOldVersion(version string) {
	c.oldVersion = version
}

func (c *Changelog) SetNewVersion(version string) {
	c.newVersion = version
}

// SetRemote derives the https browse URL from a git remote URL, accepting
// both https and scp-like ssh forms.
func (c *Changelog) SetRemote(remote string) {
	remote = strings.TrimSuffix(remote, ".git")

	if rest, found := strings.CutPrefix(remote, "git@"); found {
		host, path, _ := strings.Cut(rest, ":")
		remote = "https://" + host + "/" + path
	}

	c.remote = remote
}

// SetCompareTags overrides the refs used in the compare link for
// repositories whose release tags are not named after the bare version.
func (c *Changelog) SetCompareTags(oldTag, newTag string) {
	c.oldTag = oldTag
	c.newTag = newTag
}

func (c *Changelog) AddBreaking(msg, hash string) {
	c.breaking = append(c.breaking, entry{message: msg, hash: hash})
}

func (c *Changelog) AddFeature(msg, hash string) {
	c.features = append(c.features, entry{message: msg, hash: hash})
}

func (c *Changelog) AddFix(msg, hash string) {
	c.fixes = append(c.fixes, entry{message: msg, hash: hash})
}

// String renders the release section. Patch releases get a smaller heading
// than feature or breaking releases, matching conventional-changelog output.
func (c *Changelog) String() string {
	if c.Len() == 0 {
		return ""
	}

	sb := &strings.Builder{}
	date := time.Now().Format("2006-01-02")

	level := "##"
	if version, err := semver.NewVersion(c.newVersion); err == nil && version.Patch() != 0 {
		level = "###"
	}

	if link := c.compareLink(); link != "" {
		fmt.Fprintf(sb, "%s [%s](%s) (%s)\n\n", level, c.newVersion, link, date)
	} else {
		fmt.Fprintf(sb, "%s %s (%s)\n\n", level, c.newVersion, date)
	}

	c.writeSection(sb, "⚠ BREAKING CHANGES", c.breaking)
	c.writeSection(sb, "Features", c.features)
	c.writeSection(sb, "Bug Fixes", c.fixes)

	return sb.String()
}

func (c *Changelog) compareLink() string {
	if c.remote == "" || c.oldVersion == "" {
		return ""
	}

	oldRef, newRef := c.oldVersion, c.newVersion
	if c.oldTag != "" && c.newTag != "" {
		oldRef, newRef = c.oldTag, c.newTag
	}

	return fmt.Sprintf("%s/compare/%s...%s", c.remote, oldRef, newRef)
}

func (c *Changelog) writeSection(sb *strings.Builder, title string, entries []entry) {
	if len(entries) == 0 {
		return
	}

	sb.WriteString("### ")
	sb.WriteString(title)
	sb.WriteString("\n\n")

	for _, e := range entries {
		sb.WriteString("* ")
		sb.WriteString(c.formatEntry(e))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
}

func (c *Changelog) formatEntry(e entry) string {
	if c.remote == "" {
		return fmt.Sprintf("%s (%s)", e.message, e.hash)
	}

	message := prRef.ReplaceAllString(e.message, fmt.Sprintf("([#$1](%s/pull/$1))", c.remote))

	return fmt.Sprintf("%s ([%s](%s/commit/%s))", message, e.hash, c.remote, e.hash)
}

// WriteTo inserts the rendered section below the placeholder line, creating
// the changelog scaffold when the file is empty. The file is rewritten in
// place, newest release first.
func (c *Changelog) WriteTo(file File) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read changelog: %w", err)
	}

	var content string

	switch {
	case len(data) == 0:
		content = fileHeader + c.String()
	case !strings.Contains(string(data), Placeholder):
		return ErrMissingPlaceholder
	default:
		idx := strings.Index(string(data), Placeholder)
		head := string(data[:idx]) + Placeholder + "\n"
		tail := strings.TrimPrefix(string(data[idx+len(Placeholder):]), "\n")

		insert := c.String()
		if tail != "" {
			insert += "\n"
		}

		content = head + insert + tail
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind changelog: %w", err)
	}

	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate changelog: %w", err)
	}

	if _, err := file.Write([]byte(content)); err != nil {
		return fmt.Errorf("failed to write changelog: %w", err)
	}

	return nil
}
