// Package git provides a git implementation of the vcs.Remote contract.
//
// The remote is driven entirely through the git binary against a dedicated
// mirror working copy. Every invocation runs with a timeout, with terminal
// prompts disabled and ssh in batch mode, so a missing credential fails fast
// instead of hanging the session.
//
// Usage:
//
//	import _ "github.com/disoardi/sshmenuc/internal/vcs/git" // registers vcs.BackendGit
//
//	remote, err := vcs.Open(vcs.BackendGit, vcs.Options{})
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/disoardi/sshmenuc/internal/vcs"
)

// CommitMessage is used for every commit the mirror creates.
const CommitMessage = "sync: update config"

// Fallback identity for mirrors on machines without a configured git user.
const (
	fallbackName  = "sshmenuc"
	fallbackEmail = "sshmenuc@localhost"
)

// Git implements vcs.Remote by shelling out to git.
type Git struct {
	// binary is the git executable name or path
	binary string

	timeouts vcs.Timeouts
	log      *zap.Logger
}

var _ vcs.Remote = (*Git)(nil)

// init registers the git backend with the vcs registry.
func init() {
	vcs.Register(vcs.BackendGit, func(opts vcs.Options) (vcs.Remote, error) {
		return New(opts), nil
	})
}

// New creates a git backend. Zero timeouts take their defaults.
func New(opts vcs.Options) *Git {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Git{
		binary:   "git",
		timeouts: opts.Timeouts.WithDefaults(),
		log:      log.Named("git"),
	}
}

// nonInteractiveEnv keeps git from ever waiting on a human.
func nonInteractiveEnv() []string {
	env := []string{"GIT_TERMINAL_PROMPT=0", "GCM_INTERACTIVE=never"}
	if os.Getenv("GIT_SSH_COMMAND") == "" {
		env = append(env, "GIT_SSH_COMMAND=ssh -o BatchMode=yes")
	}
	return env
}

// run executes git in dir with the given timeout.
func (g *Git) run(ctx context.Context, timeout time.Duration, dir string, args ...string) ([]byte, error) {
	start := time.Now()
	out, err := vcs.ExecEnvContext(ctx, timeout, dir, nonInteractiveEnv(), g.binary, args...)
	g.log.Debug("git",
		zap.Strings("args", args),
		zap.String("dir", dir),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))
	return out, err
}

// Version returns the git version string
func (g *Git) Version(ctx context.Context) (string, error) {
	output, err := g.run(ctx, g.timeouts.Probe, "", "--version")
	if err != nil {
		return "", fmt.Errorf("failed to get git version: %w", err)
	}

	// Output format: "git version 2.39.0"
	return strings.TrimPrefix(vcs.TrimOutput(output), "git version "), nil
}

// transportErr tags a failed network operation as ErrTransport unless it
// already carries a more specific classification.
func transportErr(op string, err error) error {
	if vcs.IsTransient(err) || vcs.IsFatal(err) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("git %s: %w", op, err)
	}
	return fmt.Errorf("git %s: %w: %w", op, vcs.ErrTransport, err)
}
