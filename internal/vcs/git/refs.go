package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disoardi/sshmenuc/internal/vcs"
)

// remoteRef is the remote-tracking ref for branch.
func remoteRef(branch string) string {
	return "refs/remotes/origin/" + branch
}

// isMirror reports whether dir is a git working copy.
func isMirror(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// resolve returns the commit id ref points to, or "" if it does not exist
// (including an unborn HEAD).
func (g *Git) resolve(ctx context.Context, dir, ref string) (string, error) {
	out, err := g.run(ctx, g.timeouts.Probe, dir, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		if vcs.GetExitCode(err) == 1 {
			return "", nil
		}
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	return vcs.FirstWord(out), nil
}

// isAncestor reports whether commit a is an ancestor of (or equal to) b.
func (g *Git) isAncestor(ctx context.Context, dir, a, b string) (bool, error) {
	_, err := g.run(ctx, g.timeouts.Probe, dir, "merge-base", "--is-ancestor", a, b)
	if err == nil {
		return true, nil
	}
	if vcs.GetExitCode(err) == 1 {
		return false, nil
	}
	return false, fmt.Errorf("merge-base %s %s: %w", a, b, err)
}

// showFile returns the content of path at commit, or nil if the commit does
// not contain it.
func (g *Git) showFile(ctx context.Context, dir, commit, path string) ([]byte, error) {
	object := commit + ":" + filepath.ToSlash(path)
	if _, err := g.run(ctx, g.timeouts.Probe, dir, "cat-file", "-e", object); err != nil {
		if vcs.IsExitError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cat-file %s: %w", object, err)
	}
	out, err := g.run(ctx, g.timeouts.Probe, dir, "show", object)
	if err != nil {
		return nil, fmt.Errorf("show %s: %w", object, err)
	}
	return out, nil
}

// originURL returns the configured origin URL, or "" when there is none.
func (g *Git) originURL(ctx context.Context, dir string) string {
	out, err := g.run(ctx, g.timeouts.Probe, dir, "config", "--get", "remote.origin.url")
	if err != nil {
		return ""
	}
	return vcs.TrimOutput(out)
}

// hasIdentity reports whether commits in dir have a configured author email.
func (g *Git) hasIdentity(ctx context.Context, dir string) bool {
	if os.Getenv("GIT_AUTHOR_EMAIL") != "" && os.Getenv("GIT_COMMITTER_EMAIL") != "" {
		return true
	}
	out, err := g.run(ctx, g.timeouts.Probe, dir, "config", "--get", "user.email")
	return err == nil && vcs.TrimOutput(out) != ""
}
