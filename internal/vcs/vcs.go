// Package vcs defines how the sync engine talks to the remote store that
// holds the encrypted connection book.
//
// The remote is a version-controlled repository used purely as a blob store:
// one encrypted file on one branch, mirrored into a dedicated local working
// copy. The engine never sees plaintext cross this boundary.
//
// # Usage
//
//	remote, err := vcs.Open(vcs.BackendGit, vcs.Options{Logger: log})
//	if err != nil {
//	    return err
//	}
//	if !remote.IsReachable(ctx, target.URL) {
//	    // fall back to the local backup
//	}
//	if err := remote.EnsureInitialized(ctx, target); err != nil {
//	    return err
//	}
//	res, err := remote.Pull(ctx, target)
//
// # Implementations
//
//   - internal/vcs/git: shells out to the git binary
package vcs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Backend names a registered Remote implementation.
type Backend string

// BackendGit is the git shell-out backend.
const BackendGit Backend = "git"

func (b Backend) String() string {
	return string(b)
}

// Remote is the contract every backend satisfies. All methods that touch the
// network honour ctx and their own timeout from Timeouts; none of them may
// block on a credential prompt.
type Remote interface {
	// IsReachable probes url with a short bounded request. The answer is
	// advisory: a reachable remote can still fail the next operation.
	IsReachable(ctx context.Context, url string) bool

	// EnsureInitialized makes sure the local mirror exists and tracks the
	// target remote and branch. Idempotent.
	EnsureInitialized(ctx context.Context, t Target) error

	// Pull brings the mirror up to date with the remote branch and returns
	// the encrypted blob. It never merges divergent histories.
	//
	// A PullOffline result always comes with a non-nil error describing
	// the failure; PullNoChange and PullUpdated come with a nil error.
	Pull(ctx context.Context, t Target) (PullResult, error)

	// Push replaces the blob in the mirror and publishes it. When nothing
	// changed and nothing is waiting to be published it returns nil without
	// creating a commit. Push never rewrites remote history.
	Push(ctx context.Context, t Target, data []byte) error
}

// Target identifies the remote branch and file, and the local mirror that
// tracks them.
type Target struct {
	// URL is the remote repository URL (ssh, https, or a local path).
	URL string

	// Branch is the remote branch holding the blob.
	Branch string

	// RemoteFile is the blob's path relative to the repository root.
	RemoteFile string

	// MirrorPath is the local working copy. It only ever holds ciphertext.
	MirrorPath string
}

// BlobPath returns the on-disk location of the blob inside the mirror.
func (t Target) BlobPath() string {
	return filepath.Join(t.MirrorPath, filepath.FromSlash(t.RemoteFile))
}

// Validate reports whether every field required to reach the remote is set.
func (t Target) Validate() error {
	switch {
	case t.URL == "":
		return fmt.Errorf("%w: remote url is empty", ErrInvalidTarget)
	case t.Branch == "":
		return fmt.Errorf("%w: branch is empty", ErrInvalidTarget)
	case t.RemoteFile == "":
		return fmt.Errorf("%w: remote file is empty", ErrInvalidTarget)
	case t.MirrorPath == "":
		return fmt.Errorf("%w: mirror path is empty", ErrInvalidTarget)
	}
	return nil
}

// PullStatus classifies the outcome of Pull.
type PullStatus int

const (
	// PullOffline means the remote could not be read.
	PullOffline PullStatus = iota

	// PullNoChange means the branch or the blob does not exist remotely yet.
	PullNoChange

	// PullUpdated means Data holds the blob at the remote tip.
	PullUpdated
)

func (s PullStatus) String() string {
	switch s {
	case PullOffline:
		return "offline"
	case PullNoChange:
		return "no-change"
	case PullUpdated:
		return "updated"
	default:
		return fmt.Sprintf("PullStatus(%d)", int(s))
	}
}

// PullResult is what Pull hands back to the engine.
type PullResult struct {
	Status PullStatus

	// Data is the encrypted blob. Only set when Status is PullUpdated.
	Data []byte
}

// Timeouts bounds each class of remote operation.
type Timeouts struct {
	Probe  time.Duration // reachability check
	Clone  time.Duration
	Fetch  time.Duration
	Merge  time.Duration // fast-forward or reset of the mirror
	Commit time.Duration
	Push   time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Probe:  10 * time.Second,
		Clone:  60 * time.Second,
		Fetch:  30 * time.Second,
		Merge:  30 * time.Second,
		Commit: 15 * time.Second,
		Push:   30 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultTimeouts.
func (t Timeouts) WithDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Probe <= 0 {
		t.Probe = d.Probe
	}
	if t.Clone <= 0 {
		t.Clone = d.Clone
	}
	if t.Fetch <= 0 {
		t.Fetch = d.Fetch
	}
	if t.Merge <= 0 {
		t.Merge = d.Merge
	}
	if t.Commit <= 0 {
		t.Commit = d.Commit
	}
	if t.Push <= 0 {
		t.Push = d.Push
	}
	return t
}

// Options configure a backend constructed through Open.
type Options struct {
	Timeouts Timeouts

	// Logger receives one debug line per external command. Nil disables it.
	Logger *zap.Logger
}
