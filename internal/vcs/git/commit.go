package git

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/disoardi/sshmenuc/internal/document"
	"github.com/disoardi/sshmenuc/internal/vcs"
)

// Push writes data as the blob, commits it if the tree changed, and pushes
// the branch. A clean tree with nothing unpublished returns nil without
// touching the remote.
func (g *Git) Push(ctx context.Context, t vcs.Target, data []byte) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if !isMirror(t.MirrorPath) {
		return vcs.ErrNotInitialized
	}
	dir := t.MirrorPath

	if err := document.WriteFile(t.BlobPath(), data); err != nil {
		return fmt.Errorf("write blob to mirror: %w", err)
	}
	rel := filepath.ToSlash(t.RemoteFile)
	if _, err := g.run(ctx, g.timeouts.Commit, dir, "add", "--", rel); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	changed, err := g.hasChanges(ctx, dir, rel)
	if err != nil {
		return err
	}
	if changed {
		if err := g.commit(ctx, dir); err != nil {
			return err
		}
	} else {
		pending, err := g.hasUnpublished(ctx, dir, t.Branch)
		if err != nil {
			return err
		}
		if !pending {
			g.log.Debug("nothing to push", zap.String("branch", t.Branch))
			return nil
		}
	}

	_, err = g.run(ctx, g.timeouts.Push, dir,
		"push", "--quiet", "--set-upstream", "origin", "HEAD:refs/heads/"+t.Branch)
	if err != nil {
		if vcs.StderrContains(err, "rejected", "non-fast-forward", "fetch first") {
			return fmt.Errorf("%w: %w", vcs.ErrPushRejected, err)
		}
		return transportErr("push", err)
	}
	g.log.Info("pushed encrypted config", zap.String("branch", t.Branch))
	return nil
}

// hasChanges returns true if there are staged or unstaged changes to paths.
func (g *Git) hasChanges(ctx context.Context, dir string, paths ...string) (bool, error) {
	args := append([]string{"status", "--porcelain", "--"}, paths...)
	output, err := g.run(ctx, g.timeouts.Commit, dir, args...)
	if err != nil {
		return false, fmt.Errorf("git status failed: %w", err)
	}
	return len(vcs.ParseLines(output)) > 0, nil
}

// hasUnpublished reports whether HEAD holds commits the remote branch does
// not, as left behind by an earlier failed push.
func (g *Git) hasUnpublished(ctx context.Context, dir, branch string) (bool, error) {
	head, err := g.resolve(ctx, dir, "HEAD")
	if err != nil || head == "" {
		return false, err
	}
	tip, err := g.resolve(ctx, dir, remoteRef(branch))
	if err != nil {
		return false, err
	}
	if tip == "" {
		return true, nil
	}
	if tip == head {
		return false, nil
	}
	contained, err := g.isAncestor(ctx, dir, head, tip)
	if err != nil {
		return false, err
	}
	return !contained, nil
}

func (g *Git) commit(ctx context.Context, dir string) error {
	var args []string
	if !g.hasIdentity(ctx, dir) {
		args = append(args, "-c", "user.name="+fallbackName, "-c", "user.email="+fallbackEmail)
	}
	args = append(args, "commit", "--quiet", "--no-verify", "-m", CommitMessage)

	if _, err := g.run(ctx, g.timeouts.Commit, dir, args...); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}
