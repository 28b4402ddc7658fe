package adapter

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// ToolRunnerAdapter abstracts invocation of the external analysis tool.
type ToolRunnerAdapter interface {
	// Run executes the tool in workDir with args followed by files.
	// Returns the combined stdout/stderr output and any error.
	Run(ctx context.Context, workDir string, args, files []string) (output string, err error)
}

// LocalToolRunnerAdapter runs the tool as a child process.
type LocalToolRunnerAdapter struct {
	command string
	timeout time.Duration
}

// DefaultToolTimeout bounds a single tool invocation.
const DefaultToolTimeout = 2 * time.Minute

// NewLocalToolRunnerAdapter constructs a LocalToolRunnerAdapter. A non-positive
// timeout falls back to DefaultToolTimeout.
func NewLocalToolRunnerAdapter(command string, timeout time.Duration) *LocalToolRunnerAdapter {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}

	return &LocalToolRunnerAdapter{
		command: command,
		timeout: timeout,
	}
}

// Run executes the configured command.
func (a *LocalToolRunnerAdapter) Run(ctx context.Context, workDir string, args, files []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	argv := make([]string, 0, len(args)+len(files))
	argv = append(argv, args...)
	argv = append(argv, files...)

	// #nosec G204 - the command comes from the user's own configuration
	cmd := exec.CommandContext(ctx, a.command, argv...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String() + stderr.String()

	return output, err
}
