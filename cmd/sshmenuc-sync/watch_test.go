package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/disoardi/sshmenuc/internal/crypto"
	"github.com/disoardi/sshmenuc/internal/document"
	"github.com/disoardi/sshmenuc/internal/passphrase"
	"github.com/disoardi/sshmenuc/internal/profile"
	syncer "github.com/disoardi/sshmenuc/internal/sync"
	"github.com/disoardi/sshmenuc/internal/vcs"
)

var testCodec = crypto.Codec{N: 1024, R: 8, P: 1}

// unreachableRemote behaves like a remote behind a dead network link.
type unreachableRemote struct{}

func (unreachableRemote) IsReachable(ctx context.Context, url string) bool { return false }
func (unreachableRemote) EnsureInitialized(ctx context.Context, t vcs.Target) error {
	return nil
}
func (unreachableRemote) Pull(ctx context.Context, t vcs.Target) (vcs.PullResult, error) {
	return vcs.PullResult{Status: vcs.PullOffline}, vcs.ErrTransport
}
func (unreachableRemote) Push(ctx context.Context, t vcs.Target, data []byte) error {
	return vcs.ErrTransport
}

// offlineSession builds a session whose remote is unreachable. backup, when
// not nil, is encrypted under "pw" as the existing local backup.
func offlineSession(t *testing.T, answer string, backup []byte) (*session, *int) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.json")
	if err := os.WriteFile(cfg, []byte(`{"hosts":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if backup != nil {
		enc, err := testCodec.Encrypt(backup, "pw")
		if err != nil {
			t.Fatalf("Encrypt() failed: %v", err)
		}
		if err := os.WriteFile(document.BackupPath(cfg), enc, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	p := profile.New(profile.DefaultName, "git@example.org:me/sshmenuc-config.git")
	p.SyncRepoPath = filepath.Join(dir, "sync_repo")
	p.LastConfigHash = document.Sum([]byte(`{"hosts":1}`))

	prompts := 0
	cache := passphrase.NewCache(passphrase.PrompterFunc(func(string) (string, error) {
		prompts++
		return answer, nil
	}))
	remote := unreachableRemote{}
	engine, err := syncer.New(syncer.Options{
		Profile:    p,
		ConfigFile: cfg,
		Remote:     remote,
		Codec:      testCodec,
		Passphrase: cache,
	})
	if err != nil {
		t.Fatalf("syncer.New() failed: %v", err)
	}
	return &session{
		sel:    &profile.Selection{Profile: p, ConfigFile: cfg},
		remote: remote,
		engine: engine,
		cache:  cache,
	}, &prompts
}

func readBackup(t *testing.T, s *session) string {
	t.Helper()
	enc, err := os.ReadFile(s.engine.BackupFile())
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	plain, err := testCodec.Decrypt(enc, "pw")
	if err != nil {
		t.Fatalf("Decrypt() failed: %v", err)
	}
	return string(plain)
}

func TestOfflineWatchRefreshesBackup(t *testing.T) {
	ctx := context.Background()
	s, prompts := offlineSession(t, "pw", []byte(`{"hosts":1}`))

	st, _ := s.engine.StartupPull(ctx)
	if st != syncer.SyncOffline {
		t.Fatalf("StartupPull() = %v, want offline", st)
	}
	if s.cache.Has() {
		t.Fatal("an unreachable remote should return before asking")
	}

	if err := ensurePassphrase(s, st); err != nil {
		t.Fatalf("ensurePassphrase() failed: %v", err)
	}
	if *prompts != 1 {
		t.Fatalf("prompted %d times, want 1", *prompts)
	}

	if err := os.WriteFile(s.sel.ConfigFile, []byte(`{"hosts":2}`), 0o600); err != nil {
		t.Fatal(err)
	}
	onSave(ctx, s)

	if got := readBackup(t, s); got != `{"hosts":2}` {
		t.Errorf("backup = %s, want the saved config", got)
	}
	if *prompts != 1 {
		t.Errorf("saving prompted again (%d prompts)", *prompts)
	}
}

func TestLocalOnlyWatchCreatesBackup(t *testing.T) {
	ctx := context.Background()
	s, _ := offlineSession(t, "pw", nil)

	st, _ := s.engine.StartupPull(ctx)
	if st != syncer.LocalOnly {
		t.Fatalf("StartupPull() = %v, want local-only", st)
	}
	if err := ensurePassphrase(s, st); err != nil {
		t.Fatalf("ensurePassphrase() failed: %v", err)
	}

	if err := os.WriteFile(s.sel.ConfigFile, []byte(`{"hosts":3}`), 0o600); err != nil {
		t.Fatal(err)
	}
	onSave(ctx, s)

	if got := readBackup(t, s); got != `{"hosts":3}` {
		t.Errorf("backup = %s, want the saved config", got)
	}
}

func TestEnsurePassphraseRejectsWrongAnswer(t *testing.T) {
	s, _ := offlineSession(t, "typo", []byte(`{"hosts":1}`))
	before, err := os.ReadFile(s.engine.BackupFile())
	if err != nil {
		t.Fatal(err)
	}

	err = ensurePassphrase(s, syncer.SyncOffline)
	if !errors.Is(err, crypto.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if s.cache.Has() {
		t.Error("a rejected passphrase must not stay cached")
	}
	after, _ := os.ReadFile(s.engine.BackupFile())
	if string(after) != string(before) {
		t.Error("backup changed after a rejected passphrase")
	}
}

func TestEnsurePassphraseSkipsWhenCached(t *testing.T) {
	s, prompts := offlineSession(t, "pw", nil)
	s.cache.Set("pw")
	if err := ensurePassphrase(s, syncer.SyncOK); err != nil {
		t.Fatalf("ensurePassphrase() failed: %v", err)
	}
	if *prompts != 0 {
		t.Errorf("prompted %d times with a cached passphrase", *prompts)
	}
}
