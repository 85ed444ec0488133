// Package sync keeps one plaintext connection book consistent with its
// encrypted copy in a git remote.
//
// An Engine is built for one profile. StartupPull runs once at session
// start and decides whether the remote copy may overwrite the plaintext,
// whether the user has to pick a side, or whether the session continues
// offline. PostSavePush runs after every local save: it always refreshes
// the local encrypted backup and pushes when a passphrase is cached.
//
// Every path that cannot complete leaves the plaintext as it was. The
// plaintext is only overwritten when its hash proves it has not changed
// since the last sync, or when the user picked the remote side of a
// conflict.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	gosync "sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/disoardi/sshmenuc/internal/conflict"
	"github.com/disoardi/sshmenuc/internal/crypto"
	"github.com/disoardi/sshmenuc/internal/document"
	"github.com/disoardi/sshmenuc/internal/journal"
	"github.com/disoardi/sshmenuc/internal/passphrase"
	"github.com/disoardi/sshmenuc/internal/profile"
	"github.com/disoardi/sshmenuc/internal/vcs"
)

// Prompts shown when the engine needs the passphrase.
const (
	PromptPassphrase = "Enter sync passphrase: "
	PromptRetry      = "Wrong passphrase, try again: "
	PromptExport     = "Enter sync passphrase to export: "
)

// DefaultPassphraseAttempts is how many passphrases StartupPull tries
// before falling back to the local backup.
const DefaultPassphraseAttempts = 3

// Codec encrypts and decrypts documents. crypto.Codec implements it.
type Codec interface {
	Encrypt(doc []byte, passphrase string) ([]byte, error)
	Decrypt(data []byte, passphrase string) ([]byte, error)
}

// Recorder stores sync outcomes. *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
}

// Options wires an Engine.
type Options struct {
	Profile profile.Profile

	// ConfigFile is the plaintext document. Its backup lives next to it.
	ConfigFile string

	Remote     vcs.Remote
	Codec      Codec
	Passphrase *passphrase.Cache

	// Resolver decides conflicts. Nil aborts every conflict.
	Resolver conflict.Resolver

	// SaveMeta persists the profile's sync metadata. Nil keeps it in
	// memory only.
	SaveMeta func(profile.Meta) error

	// Journal is optional.
	Journal Recorder

	Logger *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time

	PassphraseAttempts int

	// LockFile defaults to ConfigFile + ".sync.lock".
	LockFile string
}

// Engine runs the sync state machine for one profile.
type Engine struct {
	opts Options
	log  *zap.Logger
	lock *flock.Flock

	mu      gosync.Mutex
	profile profile.Profile
	state   State

	// aborted is set when the user aborted a conflict this session. It
	// keeps PostSavePush from overwriting the remote side.
	aborted bool
}

// New validates opts and returns an engine in the NoSync state.
func New(opts Options) (*Engine, error) {
	if opts.ConfigFile == "" {
		return nil, errors.New("sync: config file is required")
	}
	if opts.Remote == nil || opts.Codec == nil || opts.Passphrase == nil {
		return nil, errors.New("sync: remote, codec and passphrase cache are required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PassphraseAttempts < 1 {
		opts.PassphraseAttempts = DefaultPassphraseAttempts
	}
	if opts.LockFile == "" {
		opts.LockFile = opts.ConfigFile + ".sync.lock"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		opts:    opts,
		log:     log.Named("sync").With(zap.String("profile", opts.Profile.Name)),
		lock:    flock.New(opts.LockFile),
		profile: opts.Profile,
		state:   NoSync,
	}, nil
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Label returns the menu header marker for the current state.
func (e *Engine) Label() string {
	return e.State().Label()
}

// Profile returns a copy of the profile including metadata written by this
// engine.
func (e *Engine) Profile() profile.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// ConflictPending reports whether a conflict was aborted this session.
func (e *Engine) ConflictPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborted
}

// BackupFile is the local encrypted backup location.
func (e *Engine) BackupFile() string {
	return document.BackupPath(e.opts.ConfigFile)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// acquire takes the per-profile lock without waiting.
func (e *Engine) acquire() (func(), error) {
	ok, err := e.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("sync lock %s: %w", e.opts.LockFile, err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() { _ = e.lock.Unlock() }, nil
}

// offline picks the degraded state from whether a backup exists.
func (e *Engine) offline(reason string) State {
	if document.Exists(e.BackupFile()) {
		e.log.Warn("remote unavailable, using local encrypted backup", zap.String("reason", reason))
		return SyncOffline
	}
	e.log.Error("remote unavailable and no local backup", zap.String("reason", reason))
	return LocalOnly
}

// saveMeta updates the in-memory profile and persists it. A failure is
// logged; the sync outcome itself stands.
func (e *Engine) saveMeta(hash, status string) {
	m := profile.Meta{Hash: hash, At: e.opts.Now(), Status: status}
	e.mu.Lock()
	e.profile.Apply(m)
	e.mu.Unlock()
	if e.opts.SaveMeta == nil {
		return
	}
	if err := e.opts.SaveMeta(m); err != nil {
		e.log.Warn("cannot save sync metadata", zap.Error(err))
	}
}

// refreshBackup encrypts plain and replaces the local backup with it.
func (e *Engine) refreshBackup(plain []byte, pass string) ([]byte, error) {
	enc, err := e.opts.Codec.Encrypt(plain, pass)
	if err != nil {
		return nil, fmt.Errorf("encrypt backup: %w", err)
	}
	if err := document.WriteFile(e.BackupFile(), enc); err != nil {
		return nil, err
	}
	return enc, nil
}

func (e *Engine) record(ctx context.Context, op string, st State, status string, err error) {
	if e.opts.Journal == nil {
		return
	}
	entry := journal.Entry{
		Profile:   e.opts.Profile.Name,
		Operation: op,
		State:     st.String(),
		Status:    status,
		Hash:      e.Profile().LastConfigHash,
		Timestamp: e.opts.Now(),
	}
	if err != nil {
		entry.Detail = err.Error()
	}
	if _, jerr := e.opts.Journal.Record(context.WithoutCancel(ctx), entry); jerr != nil {
		e.log.Warn("cannot record sync history", zap.Error(jerr))
	}
}

// Export decrypts the local backup and writes the plaintext to w. It may
// prompt for the passphrase.
func (e *Engine) Export(ctx context.Context, w io.Writer) error {
	enc, ok, err := document.Read(e.BackupFile())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoBackup, e.BackupFile())
	}
	pass, err := e.opts.Passphrase.GetOrPrompt(PromptExport)
	if err != nil {
		return err
	}
	plain, err := e.opts.Codec.Decrypt(enc, pass)
	if err != nil {
		if errors.Is(err, crypto.ErrAuth) {
			e.opts.Passphrase.Clear()
		}
		e.record(ctx, journal.OpExport, e.State(), "", err)
		return fmt.Errorf("decrypt backup: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	e.record(ctx, journal.OpExport, e.State(), "", nil)
	return nil
}
