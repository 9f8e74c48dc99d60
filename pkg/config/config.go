package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"gopkg.in/yaml.v3"

	"github.com/monoctl/monoctl/pkg/registry"
)

// FileName is the optional repo-level configuration file.
const FileName = ".monoctl.yaml"

type Config struct {
	RootDir       string
	PackagesDir   string
	RegistryURL   string
	DistTag       string
	TagPattern    string
	Remote        string
	NpmBinaryPath string
	FetchTimeout  time.Duration
	Verbose       bool
	Hooks         Hooks

	// Env is the environment handed to every subprocess. Call sites never
	// read the ambient environment themselves.
	Env []string
}

// Hooks are shell commands run in the repository root around the release
// and publish operations.
type Hooks struct {
	PreRelease  string `yaml:"preRelease"`
	PostRelease string `yaml:"postRelease"`
	PrePublish  string `yaml:"prePublish"`
	PostPublish string `yaml:"postPublish"`
}

func New() *Config {
	return &Config{
		RootDir:      ".",
		PackagesDir:  "packages",
		RegistryURL:  registry.DefaultURL,
		DistTag:      "latest",
		TagPattern:   "{name}-{version}",
		Remote:       "origin",
		FetchTimeout: 5 * time.Second,
		Env:          os.Environ(),
	}
}

type fileConfig struct {
	PackagesDir   string `yaml:"packagesDir"`
	Registry      string `yaml:"registry"`
	DistTag       string `yaml:"distTag"`
	TagPattern    string `yaml:"tagPattern"`
	Remote        string `yaml:"remote"`
	NpmBinaryPath string `yaml:"npmBinaryPath"`
	FetchTimeout  string `yaml:"fetchTimeout"`
	Hooks         Hooks  `yaml:"hooks"`
}

// LoadFile overlays values from the repo's config file when it exists. The
// filesystem is the repository worktree, so the file is looked up at the
// repo root.
func (c *Config) LoadFile(fsys billy.Filesystem) error {
	file, err := fsys.Open(FileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to open %s: %w", FileName, err)
	}
	defer file.Close()

	fc := fileConfig{}
	if err := yaml.NewDecoder(file).Decode(&fc); err != nil {
		return fmt.Errorf("failed to YAML decode %s: %w", FileName, err)
	}

	applyString(&c.PackagesDir, fc.PackagesDir)
	applyString(&c.RegistryURL, fc.Registry)
	applyString(&c.DistTag, fc.DistTag)
	applyString(&c.TagPattern, fc.TagPattern)
	applyString(&c.Remote, fc.Remote)
	applyString(&c.NpmBinaryPath, fc.NpmBinaryPath)
	applyString(&c.Hooks.PreRelease, fc.Hooks.PreRelease)
	applyString(&c.Hooks.PostRelease, fc.Hooks.PostRelease)
	applyString(&c.Hooks.PrePublish, fc.Hooks.PrePublish)
	applyString(&c.Hooks.PostPublish, fc.Hooks.PostPublish)

	if fc.FetchTimeout != "" {
		timeout, err := time.ParseDuration(fc.FetchTimeout)
		if err != nil {
			return fmt.Errorf("failed to parse fetchTimeout: %w", err)
		}

		c.FetchTimeout = timeout
	}

	return nil
}

// ApplyEnv overlays MONOCTL_* environment variables. It runs after the
// config file so the environment wins over it.
func (c *Config) ApplyEnv() {
	c.RootDir = lookupEnvOrString("MONOCTL_ROOT", c.RootDir)
	c.PackagesDir = lookupEnvOrString("MONOCTL_PACKAGES_DIR", c.PackagesDir)
	c.RegistryURL = lookupEnvOrString("MONOCTL_REGISTRY", c.RegistryURL)
	c.DistTag = lookupEnvOrString("MONOCTL_DIST_TAG", c.DistTag)
	c.TagPattern = lookupEnvOrString("MONOCTL_TAG_PATTERN", c.TagPattern)
	c.Remote = lookupEnvOrString("MONOCTL_REMOTE", c.Remote)
	c.NpmBinaryPath = lookupEnvOrString("MONOCTL_NPM_BINARY_PATH", c.NpmBinaryPath)
	c.FetchTimeout = lookupEnvOrDuration("MONOCTL_FETCH_TIMEOUT", c.FetchTimeout)
	c.Verbose = lookupEnvOrBool("MONOCTL_VERBOSE", c.Verbose)
}

// TagFor renders the release tag for a package version.
func (c *Config) TagFor(name, version string) string {
	return strings.NewReplacer("{name}", name, "{version}", version).Replace(c.TagPattern)
}

func applyString(target *string, value string) {
	if value != "" {
		*target = value
	}
}
