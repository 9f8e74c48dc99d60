package command

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
)

// Run executes a shell command in dir with the given environment and
// returns its captured stdout. Failures embed both output streams.
func Run(command, dir string, env []string) (string, error) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/C", command)
	default:
		cmd = exec.Command("sh", "-c", command)
	}

	var stdout, stderr bytes.Buffer

	cmd.Env = env
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run %q: %w\n\nSTDOUT:\n\n%s\n\nSTDERR:\n\n%s", command, err, stdout.String(), stderr.String())
	}

	return stdout.String(), nil
}
