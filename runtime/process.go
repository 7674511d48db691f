package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Process abstracts the rclone process lifecycle for testing.
type Process interface {
	Start(ctx context.Context) error
	Stderr() io.Reader
	Wait() (*ProcessResult, error)
	Kill() error
}

// ProcessFactory creates a Process. Used for test injection.
type ProcessFactory func(config *ProcessConfig) Process

// ProcessConfig configures one rclone invocation.
type ProcessConfig struct {
	// ExePath is the rclone executable.
	ExePath string
	// Args are the arguments after the executable.
	Args []string
}

// CommandLine returns the executable followed by its arguments.
func (c *ProcessConfig) CommandLine() []string {
	return append([]string{c.ExePath}, c.Args...)
}

// ProcessResult represents the result of a finished process.
type ProcessResult struct {
	// ExitCode is the process exit code, -1 if it was killed by a signal.
	ExitCode int
}

// ProcessManager runs rclone via os/exec.
type ProcessManager struct {
	config *ProcessConfig
	cmd    *exec.Cmd
	stderr io.ReadCloser
}

// NewProcessManager creates a new process manager.
func NewProcessManager(config *ProcessConfig) *ProcessManager {
	return &ProcessManager{
		config: config,
	}
}

// Start starts rclone.
// Stdin and stdout are not connected: stdout of the agent belongs to git-lfs.
// Stderr carries rclone's JSON log and must be drained through Stderr()
// before calling Wait.
func (m *ProcessManager) Start(ctx context.Context) error {
	m.cmd = exec.CommandContext(ctx, m.config.ExePath, m.config.Args...)

	stderr, err := m.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	m.stderr = stderr

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start rclone: %w", err)
	}

	return nil
}

// Stderr returns the stderr reader carrying rclone's log stream.
func (m *ProcessManager) Stderr() io.Reader {
	return m.stderr
}

// Wait waits for rclone to exit and returns the result.
// Must be called after Start, once Stderr has reached EOF.
func (m *ProcessManager) Wait() (*ProcessResult, error) {
	if m.cmd == nil {
		return nil, errors.New("process not started")
	}

	err := m.cmd.Wait()
	if err == nil {
		return &ProcessResult{ExitCode: 0}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ProcessResult{ExitCode: exitErr.ExitCode()}, nil
	}
	return nil, fmt.Errorf("rclone wait failed: %w", err)
}

// Kill terminates rclone.
func (m *ProcessManager) Kill() error {
	if m.cmd != nil && m.cmd.Process != nil {
		return m.cmd.Process.Kill()
	}
	return nil
}
