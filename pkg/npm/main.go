package npm

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
)

// BinaryClient shells out to the npm binary.
type BinaryClient struct {
	binary      string
	registryURL string
	env         []string
}

// Client is the npm surface the bulk operations need.
type Client interface {
	Install(dir string) error
	Publish(dir, distTag string) error
	RunScript(dir, script string) (string, error)
	Exec(dir string, args ...string) (string, error)
}

// New locates the npm binary. An explicit path wins over PATH lookup. A
// non-empty registryURL is passed to install and publish invocations.
func New(npmPath, registryURL string, env []string) (BinaryClient, error) {
	if npmPath != "" {
		if _, err := os.Stat(npmPath); err != nil {
			return BinaryClient{}, fmt.Errorf("npm binary not found: %w", err)
		}

		return BinaryClient{binary: npmPath, registryURL: registryURL, env: env}, nil
	}

	if _, err := exec.LookPath("npm"); err != nil {
		return BinaryClient{}, fmt.Errorf("npm not found in PATH: %w", err)
	}

	return BinaryClient{binary: "npm", registryURL: registryURL, env: env}, nil
}

func (c BinaryClient) Install(dir string) error {
	_, err := c.run(dir, c.withRegistry("install")...)

	return err
}

func (c BinaryClient) Publish(dir, distTag string) error {
	args := []string{"publish"}
	if distTag != "" {
		args = append(args, "--tag", distTag)
	}

	_, err := c.run(dir, c.withRegistry(args...)...)

	return err
}

func (c BinaryClient) RunScript(dir, script string) (string, error) {
	return c.run(dir, "run", script)
}

func (c BinaryClient) Exec(dir string, args ...string) (string, error) {
	return c.run(dir, args...)
}

func (c BinaryClient) withRegistry(args ...string) []string {
	if c.registryURL == "" {
		return args
	}

	return append(args, "--registry", c.registryURL)
}

func (c BinaryClient) run(dir string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.Command(c.binary, args...) //nolint:gosec
	cmd.Env = c.env
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run npm %s: %w\n\nSTDOUT:\n\n%s\n\nSTDERR:\n\n%s", args[0], err, stdout.String(), stderr.String())
	}

	return stdout.String(), nil
}
