package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/disoardi/sshmenuc/internal/vcs"
)

// EnsureInitialized creates the mirror on first use. It shallow-clones the
// target branch; when the remote has no such branch yet (a fresh, empty
// repository) it initializes an empty working copy pointing at origin
// instead. An existing mirror is left alone apart from re-pointing origin
// when the configured URL changed.
func (g *Git) EnsureInitialized(ctx context.Context, t vcs.Target) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if isMirror(t.MirrorPath) {
		return g.syncOrigin(ctx, t)
	}

	if entries, err := os.ReadDir(t.MirrorPath); err == nil && len(entries) > 0 {
		return fmt.Errorf("%w: %s exists and is not a git working copy", vcs.ErrInvalidTarget, t.MirrorPath)
	}
	parent := filepath.Dir(t.MirrorPath)
	if err := os.MkdirAll(parent, 0o700); err != nil {
		return fmt.Errorf("create mirror parent: %w", err)
	}

	_, err := g.run(ctx, g.timeouts.Clone, parent,
		"clone", "--branch", t.Branch, "--depth", "1", "--single-branch", t.URL, t.MirrorPath)
	if err == nil {
		g.log.Info("cloned sync mirror", zap.String("path", t.MirrorPath), zap.String("branch", t.Branch))
		return g.pinUnbornHead(ctx, t)
	}
	if !isMissingBranch(err) {
		return transportErr("clone", err)
	}

	g.log.Info("remote branch missing, initializing empty mirror",
		zap.String("path", t.MirrorPath), zap.String("branch", t.Branch))
	return g.initEmpty(ctx, t)
}

// isMissingBranch recognises clone failures caused by the remote branch
// (or any branch at all) not existing yet.
func isMissingBranch(err error) bool {
	return vcs.StderrContains(err,
		"not found in upstream",
		"could not find remote branch",
		"empty repository",
	)
}

func (g *Git) initEmpty(ctx context.Context, t vcs.Target) error {
	if err := os.MkdirAll(t.MirrorPath, 0o700); err != nil {
		return fmt.Errorf("create mirror: %w", err)
	}
	if _, err := g.run(ctx, g.timeouts.Commit, t.MirrorPath, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	// same as "init -b", which needs git 2.28
	if _, err := g.run(ctx, g.timeouts.Commit, t.MirrorPath, "symbolic-ref", "HEAD", "refs/heads/"+t.Branch); err != nil {
		return fmt.Errorf("set initial branch: %w", err)
	}
	if _, err := g.run(ctx, g.timeouts.Commit, t.MirrorPath, "remote", "add", "origin", t.URL); err != nil {
		return fmt.Errorf("git remote add: %w", err)
	}
	return nil
}

// pinUnbornHead points an unborn HEAD at the target branch. Some git
// versions clone an empty repository successfully but leave HEAD on their
// own default branch.
func (g *Git) pinUnbornHead(ctx context.Context, t vcs.Target) error {
	head, err := g.resolve(ctx, t.MirrorPath, "HEAD")
	if err != nil || head != "" {
		return err
	}
	if _, err := g.run(ctx, g.timeouts.Commit, t.MirrorPath, "symbolic-ref", "HEAD", "refs/heads/"+t.Branch); err != nil {
		return fmt.Errorf("set initial branch: %w", err)
	}
	return nil
}

// syncOrigin points origin at t.URL, adding it if missing.
func (g *Git) syncOrigin(ctx context.Context, t vcs.Target) error {
	current := g.originURL(ctx, t.MirrorPath)
	switch current {
	case t.URL:
		return nil
	case "":
		_, err := g.run(ctx, g.timeouts.Commit, t.MirrorPath, "remote", "add", "origin", t.URL)
		if err != nil {
			return fmt.Errorf("git remote add: %w", err)
		}
	default:
		g.log.Warn("sync remote changed, re-pointing mirror",
			zap.String("from", current), zap.String("to", t.URL))
		_, err := g.run(ctx, g.timeouts.Commit, t.MirrorPath, "remote", "set-url", "origin", t.URL)
		if err != nil {
			return fmt.Errorf("git remote set-url: %w", err)
		}
	}
	return nil
}
