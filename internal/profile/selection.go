package profile

import (
	"fmt"
)

// Paths locates every settings file.
type Paths struct {
	// ConfigFile is the plaintext config used in single-file mode.
	ConfigFile string

	SyncFile     string // sync.json
	ContextsFile string // contexts.json
	ContextsDir  string
}

// Selection is a resolved profile together with where its plaintext lives
// and how its metadata is persisted.
type Selection struct {
	Profile    Profile
	ConfigFile string

	// Contexts is true when the profile came from contexts.json.
	Contexts bool

	// Configured is false in single-file mode when sync.json is absent.
	Configured bool

	saveMeta func(Meta) error
}

// SaveMeta persists sync metadata to the store the profile came from.
func (s *Selection) SaveMeta(m Meta) error {
	return s.saveMeta(m)
}

// Select resolves the profile to sync. With contexts configured, name picks
// a context (empty means the active one); otherwise name must be empty or
// DefaultName and sync.json is used.
func Select(paths Paths, name string) (*Selection, error) {
	reg := Registry{Path: paths.ContextsFile, BaseDir: paths.ContextsDir}
	if reg.HasContexts() {
		if name == "" {
			active, err := reg.Active()
			if err != nil {
				return nil, err
			}
			name = active
		}
		p, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		if err := reg.EnsureDir(name); err != nil {
			return nil, err
		}
		return &Selection{
			Profile:    p,
			ConfigFile: reg.ConfigFile(name),
			Contexts:   true,
			Configured: true,
			saveMeta: func(m Meta) error {
				return reg.UpdateMeta(name, m)
			},
		}, nil
	}

	if name != "" && name != DefaultName {
		return nil, fmt.Errorf("%w: %q (no contexts configured)", ErrUnknownContext, name)
	}
	store := SingleFile{Path: paths.SyncFile}
	p, ok, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Selection{
		Profile:    p,
		ConfigFile: paths.ConfigFile,
		Configured: ok,
		saveMeta:   store.SaveMeta,
	}, nil
}
