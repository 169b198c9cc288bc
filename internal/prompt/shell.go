package prompt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

const defaultShell = "/bin/sh"

// CommandRunner executes a before: step and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, command string, env []string) (string, error)
}

// ShellRunner runs commands through a shell with -c
type ShellRunner struct {
	Shell   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewShellRunner creates a runner using shell, falling back to $SHELL and
// then /bin/sh
func NewShellRunner(shell string, timeout time.Duration, logger *zap.Logger) *ShellRunner {
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = defaultShell
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShellRunner{Shell: shell, Timeout: timeout, Logger: logger}
}

// Run executes command with env appended to the process environment.
// Output is returned even when the command fails.
func (r *ShellRunner) Run(ctx context.Context, command string, env []string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Shell, "-c", command)
	cmd.Env = append(os.Environ(), env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	r.Logger.Debug("before step finished",
		zap.String("shell", r.Shell),
		zap.String("command", command),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		return out.String(), fmt.Errorf("command %q failed: %w", command, err)
	}
	return out.String(), nil
}
