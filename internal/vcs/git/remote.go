package git

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/disoardi/sshmenuc/internal/vcs"
)

// IsReachable lists the remote's heads under the probe timeout. An empty
// repository is reachable.
func (g *Git) IsReachable(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}
	_, err := g.run(ctx, g.timeouts.Probe, "", "ls-remote", "--quiet", "--heads", url)
	if err != nil {
		g.log.Info("remote unreachable", zap.String("url", url), zap.Error(err))
		return false
	}
	return true
}

// Pull fetches the target branch and moves the mirror to the remote tip.
//
// Only fast-forwards are applied to the mirror. When the mirror holds local
// commits the remote has superseded, it is reset to the remote tip: the
// mirror only ever caches ciphertext that also lives in the local backup.
// When the mirror is strictly ahead (an earlier push failed) it is left as
// is and the blob at the remote tip is returned.
func (g *Git) Pull(ctx context.Context, t vcs.Target) (vcs.PullResult, error) {
	offline := vcs.PullResult{Status: vcs.PullOffline}
	if err := t.Validate(); err != nil {
		return offline, err
	}
	if !isMirror(t.MirrorPath) {
		return offline, vcs.ErrNotInitialized
	}
	dir := t.MirrorPath

	refspec := fmt.Sprintf("+refs/heads/%s:%s", t.Branch, remoteRef(t.Branch))
	if _, err := g.run(ctx, g.timeouts.Fetch, dir, "fetch", "--quiet", "origin", refspec); err != nil {
		if vcs.StderrContains(err, "couldn't find remote ref") {
			return vcs.PullResult{Status: vcs.PullNoChange}, nil
		}
		return offline, transportErr("fetch", err)
	}

	tip, err := g.resolve(ctx, dir, remoteRef(t.Branch))
	if err != nil {
		return offline, err
	}
	if tip == "" {
		return vcs.PullResult{Status: vcs.PullNoChange}, nil
	}
	head, err := g.resolve(ctx, dir, "HEAD")
	if err != nil {
		return offline, err
	}

	switch {
	case head == tip:
		// already current
	case head == "":
		if err := g.resetTo(ctx, dir, tip); err != nil {
			return offline, err
		}
	default:
		behind, err := g.isAncestor(ctx, dir, head, tip)
		if err != nil {
			return offline, err
		}
		if behind {
			if _, err := g.run(ctx, g.timeouts.Merge, dir, "merge", "--ff-only", "--quiet", tip); err != nil {
				return offline, fmt.Errorf("%w: fast-forward to %s: %w", vcs.ErrDiverged, short(tip), err)
			}
			break
		}

		ahead, err := g.isAncestor(ctx, dir, tip, head)
		if err != nil {
			return offline, err
		}
		if ahead {
			data, err := g.showFile(ctx, dir, tip, t.RemoteFile)
			if err != nil {
				return offline, err
			}
			return blobResult(data), nil
		}

		g.log.Warn("sync mirror diverged from remote, resetting to remote tip",
			zap.String("head", short(head)), zap.String("remote", short(tip)))
		if err := g.resetTo(ctx, dir, tip); err != nil {
			return offline, err
		}
	}

	data, err := os.ReadFile(t.BlobPath())
	if errors.Is(err, os.ErrNotExist) {
		return vcs.PullResult{Status: vcs.PullNoChange}, nil
	}
	if err != nil {
		return offline, fmt.Errorf("read mirrored blob: %w", err)
	}
	return blobResult(data), nil
}

func (g *Git) resetTo(ctx context.Context, dir, commit string) error {
	if _, err := g.run(ctx, g.timeouts.Merge, dir, "reset", "--hard", "--quiet", commit); err != nil {
		return fmt.Errorf("%w: reset to %s: %w", vcs.ErrDiverged, short(commit), err)
	}
	return nil
}

func blobResult(data []byte) vcs.PullResult {
	if len(data) == 0 {
		return vcs.PullResult{Status: vcs.PullNoChange}
	}
	return vcs.PullResult{Status: vcs.PullUpdated, Data: data}
}

func short(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
