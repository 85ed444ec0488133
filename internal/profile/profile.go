// Package profile stores sync settings and per-profile sync metadata.
//
// Two layouts are supported. Single-file mode keeps one profile in sync.json
// next to the plaintext config. Context mode keeps any number of named
// profiles in contexts.json, each with its own plaintext cache and backup
// under contexts/<name>/. Context mode wins whenever contexts.json lists at
// least one context.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disoardi/sshmenuc/internal/vcs"
)

// Defaults applied to fields missing from the stored JSON.
const (
	DefaultBranch     = "main"
	DefaultRemoteFile = "config.json.enc"
	DefaultName       = "default"
	formatVersion     = 1
)

// Values stored in last_sync_status.
const (
	StatusOK                     = "ok"
	StatusConflictResolvedLocal  = "conflict_resolved_local"
	StatusConflictResolvedRemote = "conflict_resolved_remote"
	StatusConflictAborted        = "conflict_aborted"
	StatusPushFailed             = "push_failed"
)

// Profile is one set of sync settings plus the metadata of its last sync.
type Profile struct {
	// Name is the context name, or DefaultName in single-file mode.
	// It is the map key in contexts.json and is not stored in the entry.
	Name string `json:"-"`

	Version        int    `json:"version,omitempty"`
	RemoteURL      string `json:"remote_url"`
	Branch         string `json:"branch"`
	RemoteFile     string `json:"remote_file"`
	SyncRepoPath   string `json:"sync_repo_path"`
	AutoPull       bool   `json:"auto_pull"`
	AutoPush       bool   `json:"auto_push"`
	LastConfigHash string `json:"last_config_hash"`
	LastSync       string `json:"last_sync,omitempty"`
	LastSyncStatus string `json:"last_sync_status,omitempty"`
}

// New returns a profile with every default applied.
func New(name, remoteURL string) Profile {
	return Profile{
		Name:       name,
		Version:    formatVersion,
		RemoteURL:  remoteURL,
		Branch:     DefaultBranch,
		RemoteFile: DefaultRemoteFile,
		AutoPull:   true,
		AutoPush:   true,
	}
}

// UnmarshalJSON applies defaults for absent fields: auto_pull and auto_push
// are true, branch is "main", remote_file is "config.json.enc".
func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	v := plain(New(p.Name, ""))
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Branch == "" {
		v.Branch = DefaultBranch
	}
	if v.RemoteFile == "" {
		v.RemoteFile = DefaultRemoteFile
	}
	*p = Profile(v)
	return nil
}

// Enabled reports whether the profile has a remote to sync with.
func (p Profile) Enabled() bool {
	return strings.TrimSpace(p.RemoteURL) != ""
}

// Target returns the remote coordinates for this profile.
func (p Profile) Target() vcs.Target {
	return vcs.Target{
		URL:        p.RemoteURL,
		Branch:     p.Branch,
		RemoteFile: p.RemoteFile,
		MirrorPath: ExpandHome(p.SyncRepoPath),
	}
}

// LastSyncTime parses LastSync. The second result is false when the profile
// never synced or the value is unreadable.
func (p Profile) LastSyncTime() (time.Time, bool) {
	if p.LastSync == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, p.LastSync)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Meta is what the sync engine writes back after a sync.
type Meta struct {
	Hash   string
	At     time.Time
	Status string
}

// Apply copies m into the profile's metadata fields.
func (p *Profile) Apply(m Meta) {
	p.LastConfigHash = m.Hash
	p.LastSync = m.At.UTC().Format(time.RFC3339Nano)
	p.LastSyncStatus = m.Status
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ValidateName rejects context names that cannot be used as a directory.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}
