package sync

import (
	"time"

	"github.com/disoardi/sshmenuc/internal/document"
)

// Report summarises a profile's sync situation for the status command.
type Report struct {
	Profile          string    `json:"profile" yaml:"profile"`
	State            State     `json:"state" yaml:"state"`
	Label            string    `json:"label,omitempty" yaml:"label,omitempty"`
	RemoteURL        string    `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`
	Branch           string    `json:"branch,omitempty" yaml:"branch,omitempty"`
	RemoteFile       string    `json:"remote_file,omitempty" yaml:"remote_file,omitempty"`
	AutoPull         bool      `json:"auto_pull" yaml:"auto_pull"`
	AutoPush         bool      `json:"auto_push" yaml:"auto_push"`
	LastSync         time.Time `json:"last_sync,omitempty" yaml:"last_sync,omitempty"`
	LastSyncStatus   string    `json:"last_sync_status,omitempty" yaml:"last_sync_status,omitempty"`
	LocalChanged     bool      `json:"local_changed" yaml:"local_changed"`
	BackupExists     bool      `json:"backup_exists" yaml:"backup_exists"`
	PassphraseCached bool      `json:"passphrase_cached" yaml:"passphrase_cached"`
	ConflictPending  bool      `json:"conflict_pending" yaml:"conflict_pending"`
}

// Status reads local files only; it never contacts the remote.
// LocalChanged is true when the plaintext no longer matches the hash
// recorded at the last sync.
func (e *Engine) Status() Report {
	p := e.Profile()
	st := e.State()
	last, _ := p.LastSyncTime()

	hash := document.Hash(e.opts.ConfigFile)
	return Report{
		Profile:          p.Name,
		State:            st,
		Label:            st.Label(),
		RemoteURL:        p.RemoteURL,
		Branch:           p.Branch,
		RemoteFile:       p.RemoteFile,
		AutoPull:         p.AutoPull,
		AutoPush:         p.AutoPush,
		LastSync:         last,
		LastSyncStatus:   p.LastSyncStatus,
		LocalChanged:     p.LastConfigHash != "" && hash != p.LastConfigHash,
		BackupExists:     document.Exists(e.BackupFile()),
		PassphraseCached: e.opts.Passphrase.Has(),
		ConflictPending:  e.ConflictPending(),
	}
}
