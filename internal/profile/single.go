package profile

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/disoardi/sshmenuc/internal/document"
)

// SingleFile stores one profile in sync.json.
type SingleFile struct {
	// Path is the sync.json location.
	Path string
}

// DefaultMirrorPath is where single-file mode keeps the mirror when
// sync_repo_path is not set.
func (s SingleFile) DefaultMirrorPath() string {
	return filepath.Join(filepath.Dir(s.Path), "sync_repo")
}

// Load reads sync.json. A missing file yields a disabled profile and
// ok=false.
func (s SingleFile) Load() (p Profile, ok bool, err error) {
	data, found, err := document.Read(s.Path)
	if err != nil {
		return Profile{}, false, err
	}
	if !found {
		return Profile{Name: DefaultName}, false, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.Path, err)
	}
	p.Name = DefaultName
	if p.SyncRepoPath == "" {
		p.SyncRepoPath = s.DefaultMirrorPath()
	}
	return p, true, nil
}

// Save replaces sync.json with p.
func (s SingleFile) Save(p Profile) error {
	return withLock(s.Path, func() error {
		return s.write(p)
	})
}

// SaveMeta re-reads sync.json under the lock, applies m, and writes it back,
// so settings edited by another process are preserved.
func (s SingleFile) SaveMeta(m Meta) error {
	return withLock(s.Path, func() error {
		p, _, err := s.Load()
		if err != nil {
			return err
		}
		p.Apply(m)
		return s.write(p)
	})
}

func (s SingleFile) write(p Profile) error {
	if p.Version == 0 {
		p.Version = formatVersion
	}
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.Path, err)
	}
	return document.WriteFile(s.Path, append(data, '\n'))
}
