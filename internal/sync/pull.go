package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/disoardi/sshmenuc/internal/conflict"
	"github.com/disoardi/sshmenuc/internal/crypto"
	"github.com/disoardi/sshmenuc/internal/document"
	"github.com/disoardi/sshmenuc/internal/journal"
	"github.com/disoardi/sshmenuc/internal/profile"
	"github.com/disoardi/sshmenuc/internal/vcs"
)

// StartupPull brings the plaintext up to date with the remote at session
// start. The returned error is informational: the state is always usable,
// and the plaintext is never left damaged.
func (e *Engine) StartupPull(ctx context.Context) (State, error) {
	unlock, err := e.acquire()
	if err != nil {
		return e.State(), err
	}
	defer unlock()

	st, status, err := e.startupPull(ctx)
	e.setState(st)
	e.record(ctx, journal.OpStartupPull, st, status, err)
	return st, err
}

func (e *Engine) startupPull(ctx context.Context) (State, string, error) {
	p := e.Profile()
	if !p.Enabled() {
		return NoSync, "", nil
	}
	if !p.AutoPull {
		return SyncOK, "", nil
	}

	t := p.Target()
	if !e.opts.Remote.IsReachable(ctx, t.URL) {
		return e.offline("unreachable"), "", nil
	}
	if err := e.opts.Remote.EnsureInitialized(ctx, t); err != nil {
		st := e.offline("mirror init failed: " + err.Error())
		if vcs.IsFatal(err) {
			return st, "", err
		}
		return st, "", nil
	}

	pass, err := e.opts.Passphrase.GetOrPrompt(PromptPassphrase)
	if err != nil {
		return e.offline("no passphrase"), "", err
	}

	res, err := e.opts.Remote.Pull(ctx, t)
	if err != nil || res.Status == vcs.PullOffline {
		st := e.offline(fmt.Sprintf("pull: %v", err))
		if err != nil && !vcs.IsTransient(err) {
			return st, "", fmt.Errorf("pull: %w", err)
		}
		return st, "", nil
	}
	if res.Status == vcs.PullNoChange || len(res.Data) == 0 {
		e.log.Info("remote has no config yet")
		return SyncOK, "", nil
	}

	remote, pass, err := e.decrypt(res.Data, pass)
	if err != nil {
		if errors.Is(err, crypto.ErrAuth) {
			// A wrong passphrase must not be used to re-encrypt the backup
			// on the next save.
			e.opts.Passphrase.Clear()
		}
		return e.offline("decrypt failed"), "", fmt.Errorf("decrypt remote config: %w", err)
	}

	local, found, err := document.Read(e.opts.ConfigFile)
	if err != nil {
		return e.offline("local read failed"), "", err
	}
	localHash := ""
	if found {
		localHash = document.Sum(local)
	}

	if !found || p.LastConfigHash == "" || localHash == p.LastConfigHash {
		if err := e.adoptRemote(local, found, remote, pass); err != nil {
			return e.offline("local write failed"), "", err
		}
		e.saveMeta(document.Sum(remote), profile.StatusOK)
		return SyncOK, profile.StatusOK, nil
	}

	return e.resolve(ctx, t, p, local, remote, pass)
}

// decrypt opens data, asking for another passphrase after each
// authentication failure up to the configured number of attempts. It
// returns the passphrase that worked.
func (e *Engine) decrypt(data []byte, pass string) ([]byte, string, error) {
	for attempt := 1; ; attempt++ {
		plain, err := e.opts.Codec.Decrypt(data, pass)
		if err == nil {
			return plain, pass, nil
		}
		if !errors.Is(err, crypto.ErrAuth) || attempt >= e.opts.PassphraseAttempts {
			return nil, "", err
		}
		e.log.Warn("remote config did not decrypt", zap.Int("attempt", attempt))
		e.opts.Passphrase.Clear()
		next, perr := e.opts.Passphrase.GetOrPrompt(PromptRetry)
		if perr != nil {
			return nil, "", fmt.Errorf("%w (%v)", err, perr)
		}
		pass = next
	}
}

// adoptRemote writes the remote document over the plaintext and refreshes
// the backup. Identical bytes are not rewritten.
func (e *Engine) adoptRemote(local []byte, found bool, remote []byte, pass string) error {
	if !found || !bytes.Equal(local, remote) {
		if err := document.WriteFile(e.opts.ConfigFile, remote); err != nil {
			e.log.Error("cannot write config", zap.Error(err))
			return err
		}
		e.log.Info("config updated from remote")
	}
	if _, err := e.refreshBackup(remote, pass); err != nil {
		e.log.Warn("cannot refresh local backup", zap.Error(err))
	}
	return nil
}

// resolve handles a document that changed on both sides since the last
// sync.
func (e *Engine) resolve(ctx context.Context, t vcs.Target, p profile.Profile, local, remote []byte, pass string) (State, string, error) {
	c := conflict.New(p.Name, local, remote)

	choice := conflict.Remote
	if c.HasChanges() {
		e.log.Warn("config changed locally and remotely")
		choice = conflict.Abort
		if e.opts.Resolver != nil {
			var err error
			choice, err = e.opts.Resolver.Resolve(ctx, c)
			if err != nil {
				e.abortConflict(p)
				return SyncOK, profile.StatusConflictAborted, fmt.Errorf("resolve conflict: %w", err)
			}
		}
	}
	e.log.Info("conflict resolved", zap.Stringer("choice", choice))

	switch choice {
	case conflict.Remote:
		if err := e.adoptRemote(local, true, remote, pass); err != nil {
			return e.offline("local write failed"), "", err
		}
		e.saveMeta(document.Sum(remote), profile.StatusConflictResolvedRemote)
		return SyncOK, profile.StatusConflictResolvedRemote, nil

	case conflict.Local:
		enc, err := e.refreshBackup(local, pass)
		if err != nil {
			return e.offline("backup failed"), "", err
		}
		if err := e.opts.Remote.Push(ctx, t, enc); err != nil {
			e.saveMeta(p.LastConfigHash, profile.StatusPushFailed)
			return SyncOffline, profile.StatusPushFailed, fmt.Errorf("%w: %w", ErrPushFailed, err)
		}
		e.saveMeta(document.Sum(local), profile.StatusConflictResolvedLocal)
		return SyncOK, profile.StatusConflictResolvedLocal, nil

	default:
		e.abortConflict(p)
		return SyncOK, profile.StatusConflictAborted, nil
	}
}

// abortConflict leaves both sides and the stored hash untouched, so the
// conflict comes back on the next sync.
func (e *Engine) abortConflict(p profile.Profile) {
	e.mu.Lock()
	e.aborted = true
	e.mu.Unlock()
	e.saveMeta(p.LastConfigHash, profile.StatusConflictAborted)
}
