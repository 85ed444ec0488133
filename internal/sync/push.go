package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/disoardi/sshmenuc/internal/document"
	"github.com/disoardi/sshmenuc/internal/journal"
	"github.com/disoardi/sshmenuc/internal/profile"
)

// PostSavePush runs after every local save. It refreshes the local backup
// and pushes it when auto_push is on and a passphrase is cached. It never
// prompts. A failed push leaves the engine offline and is not fatal.
// Without a cached passphrase the backup cannot be re-encrypted either, so
// it stays at its last content until a passphrase is cached.
func (e *Engine) PostSavePush(ctx context.Context) (State, error) {
	unlock, err := e.acquire()
	if err != nil {
		return e.State(), err
	}
	defer unlock()

	before := e.State()
	st, status, err := e.postSavePush(ctx, before)
	e.setState(st)
	if st != before || status != "" || err != nil {
		e.record(ctx, journal.OpPostSavePush, st, status, err)
	}
	return st, err
}

func (e *Engine) postSavePush(ctx context.Context, st State) (State, string, error) {
	p := e.Profile()
	if st == NoSync || !p.Enabled() {
		return st, "", nil
	}

	pass, ok := e.opts.Passphrase.Peek()
	if !ok {
		e.log.Debug("no cached passphrase, skipping backup and push")
		return st, "", nil
	}
	local, found, err := document.Read(e.opts.ConfigFile)
	if err != nil {
		return st, "", err
	}
	if !found {
		return st, "", nil
	}

	enc, err := e.refreshBackup(local, pass)
	if err != nil {
		e.log.Error("cannot refresh local backup", zap.Error(err))
		return st, "", err
	}

	if !p.AutoPush {
		return st, "", nil
	}
	if e.ConflictPending() {
		e.log.Info("conflict aborted this session, not pushing")
		return st, "", nil
	}

	t := p.Target()
	if err := e.opts.Remote.EnsureInitialized(ctx, t); err != nil {
		e.saveMeta(p.LastConfigHash, profile.StatusPushFailed)
		return SyncOffline, profile.StatusPushFailed, fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	if err := e.opts.Remote.Push(ctx, t, enc); err != nil {
		e.log.Warn("push failed, local backup updated", zap.Error(err))
		e.saveMeta(p.LastConfigHash, profile.StatusPushFailed)
		return SyncOffline, profile.StatusPushFailed, fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	e.saveMeta(document.Sum(local), profile.StatusOK)
	e.log.Info("config pushed")
	return SyncOK, profile.StatusOK, nil
}

// Publish encrypts the plaintext and pushes it, prompting for the
// passphrase if needed. It is the explicit "push local over remote" used by
// the setup wizard and the push command, so it ignores auto_push and clears
// an aborted conflict. The push still fails if the remote moved since the
// mirror was last updated.
func (e *Engine) Publish(ctx context.Context) (State, error) {
	unlock, err := e.acquire()
	if err != nil {
		return e.State(), err
	}
	defer unlock()

	st, status, err := e.publish(ctx)
	e.setState(st)
	e.record(ctx, journal.OpPublish, st, status, err)
	return st, err
}

func (e *Engine) publish(ctx context.Context) (State, string, error) {
	p := e.Profile()
	if !p.Enabled() {
		return NoSync, "", ErrNoRemote
	}
	local, found, err := document.Read(e.opts.ConfigFile)
	if err != nil {
		return e.State(), "", err
	}
	if !found {
		return e.State(), "", fmt.Errorf("%w: %s", ErrNoConfig, e.opts.ConfigFile)
	}
	pass, err := e.opts.Passphrase.GetOrPrompt(PromptPassphrase)
	if err != nil {
		return e.State(), "", err
	}

	enc, err := e.refreshBackup(local, pass)
	if err != nil {
		return e.State(), "", err
	}

	t := p.Target()
	if err := e.opts.Remote.EnsureInitialized(ctx, t); err != nil {
		e.saveMeta(p.LastConfigHash, profile.StatusPushFailed)
		return SyncOffline, profile.StatusPushFailed, fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	if err := e.opts.Remote.Push(ctx, t, enc); err != nil {
		e.saveMeta(p.LastConfigHash, profile.StatusPushFailed)
		return SyncOffline, profile.StatusPushFailed, fmt.Errorf("%w: %w", ErrPushFailed, err)
	}

	e.mu.Lock()
	e.aborted = false
	e.mu.Unlock()
	e.saveMeta(document.Sum(local), profile.StatusOK)
	return SyncOK, profile.StatusOK, nil
}
