package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ===================
// Command Execution Utilities
// ===================

// CommandError describes a failed external command. Stderr is kept so that
// callers can classify the failure by the tool's own message.
type CommandError struct {
	Name   string
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	cmd := strings.TrimSpace(e.Name + " " + strings.Join(e.Args, " "))
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", cmd, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", cmd, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// StderrContains reports whether err is a CommandError whose stderr contains
// any of the given substrings, ignoring case.
func StderrContains(err error, subs ...string) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	stderr := strings.ToLower(cmdErr.Stderr)
	for _, s := range subs {
		if strings.Contains(stderr, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// ExecContext executes a command with timeout and context support.
//
// Example:
//
//	output, err := ExecContext(ctx, 30*time.Second, mirror, "git", "status", "--porcelain")
func ExecContext(ctx context.Context, timeout time.Duration, workDir string, name string, args ...string) ([]byte, error) {
	return ExecEnvContext(ctx, timeout, workDir, nil, name, args...)
}

// ExecEnvContext is ExecContext with extra environment entries appended to
// the current process environment.
//
// A command killed by its own timeout yields an error matching ErrTimeout.
// A missing binary yields an error matching ErrVCSNotAvailable.
func ExecEnvContext(ctx context.Context, timeout time.Duration, workDir string, env []string, name string, args ...string) ([]byte, error) {
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	cmdErr := &CommandError{
		Name:   name,
		Args:   args,
		Stderr: strings.TrimSpace(stderr.String()),
		Err:    err,
	}
	switch {
	case errors.Is(err, exec.ErrNotFound):
		cmdErr.Err = fmt.Errorf("%w: %v", ErrVCSNotAvailable, err)
	case ctx.Err() == context.DeadlineExceeded && parent.Err() == nil:
		cmdErr.Err = fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case parent.Err() != nil:
		cmdErr.Err = parent.Err()
	}
	return stdout.Bytes(), cmdErr
}

// ===================
// Output Parsing Utilities
// ===================

// ParseLines splits command output into non-empty lines.
func ParseLines(output []byte) []string {
	if len(output) == 0 {
		return nil
	}

	lines := strings.Split(string(output), "\n")
	result := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}

	return result
}

// TrimOutput trims whitespace and trailing newlines from command output.
func TrimOutput(output []byte) string {
	return strings.TrimSpace(string(output))
}

// FirstWord returns the first whitespace-separated word from output.
func FirstWord(output []byte) string {
	fields := strings.Fields(TrimOutput(output))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ===================
// Error Utilities
// ===================

// IsExitError returns true if the error is an exit error with non-zero status.
func IsExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// GetExitCode returns the exit code from an error, or -1 if not an exit error.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}
