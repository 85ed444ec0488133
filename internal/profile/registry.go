package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/disoardi/sshmenuc/internal/document"
)

// Registry manages named contexts stored in contexts.json.
type Registry struct {
	// Path is the contexts.json location.
	Path string

	// BaseDir holds one directory per context with its plaintext cache,
	// backup and, by default, its mirror.
	BaseDir string
}

type registryFile struct {
	Active   string             `json:"active"`
	Contexts map[string]Profile `json:"contexts"`
}

func (r Registry) load() (registryFile, error) {
	var f registryFile
	data, found, err := document.Read(r.Path)
	if err != nil {
		return f, err
	}
	if found {
		if err := json.Unmarshal(data, &f); err != nil {
			return f, fmt.Errorf("%w: %s: %v", ErrCorrupt, r.Path, err)
		}
	}
	if f.Contexts == nil {
		f.Contexts = make(map[string]Profile)
	}
	return f, nil
}

func (r Registry) save(f registryFile) error {
	data, err := json.MarshalIndent(f, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.Path, err)
	}
	return document.WriteFile(r.Path, append(data, '\n'))
}

// update runs fn on the registry under the file lock and saves the result.
func (r Registry) update(fn func(*registryFile) error) error {
	return withLock(r.Path, func() error {
		f, err := r.load()
		if err != nil {
			return err
		}
		if err := fn(&f); err != nil {
			return err
		}
		return r.save(f)
	})
}

func sortedNames(m map[string]Profile) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasContexts reports whether contexts.json exists and lists a context.
func (r Registry) HasContexts() bool {
	f, err := r.load()
	return err == nil && len(f.Contexts) > 0
}

// List returns the context names sorted alphabetically.
func (r Registry) List() ([]string, error) {
	f, err := r.load()
	if err != nil {
		return nil, err
	}
	return sortedNames(f.Contexts), nil
}

// Active returns the active context. When "active" is missing or stale it
// falls back to the first context alphabetically, and to "" when there are
// none.
func (r Registry) Active() (string, error) {
	f, err := r.load()
	if err != nil {
		return "", err
	}
	if _, ok := f.Contexts[f.Active]; ok {
		return f.Active, nil
	}
	if names := sortedNames(f.Contexts); len(names) > 0 {
		return names[0], nil
	}
	return "", nil
}

// Get returns a copy of the named context with defaults applied.
func (r Registry) Get(name string) (Profile, error) {
	f, err := r.load()
	if err != nil {
		return Profile{}, err
	}
	p, ok := f.Contexts[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownContext, name)
	}
	p.Name = name
	if p.SyncRepoPath == "" {
		p.SyncRepoPath = filepath.Join(r.Dir(name), "sync_repo")
	}
	return p, nil
}

// SetActive makes name the active context.
func (r Registry) SetActive(name string) error {
	return r.update(func(f *registryFile) error {
		if _, ok := f.Contexts[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownContext, name)
		}
		f.Active = name
		return nil
	})
}

// Add adds or replaces a context. The first context added becomes active.
func (r Registry) Add(name string, p Profile) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return r.update(func(f *registryFile) error {
		if p.Version == 0 {
			p.Version = formatVersion
		}
		f.Contexts[name] = p
		if f.Active == "" {
			f.Active = name
		}
		return nil
	})
}

// Remove deletes a context entry. When it was active, the first remaining
// context alphabetically becomes active. The context directory is kept.
func (r Registry) Remove(name string) error {
	return r.update(func(f *registryFile) error {
		if _, ok := f.Contexts[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownContext, name)
		}
		delete(f.Contexts, name)
		if f.Active == name {
			f.Active = ""
			if names := sortedNames(f.Contexts); len(names) > 0 {
				f.Active = names[0]
			}
		}
		return nil
	})
}

// UpdateMeta records the outcome of a sync for the named context.
func (r Registry) UpdateMeta(name string, m Meta) error {
	return r.update(func(f *registryFile) error {
		p, ok := f.Contexts[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownContext, name)
		}
		p.Apply(m)
		f.Contexts[name] = p
		return nil
	})
}

// Dir is the per-context directory.
func (r Registry) Dir(name string) string {
	return filepath.Join(r.BaseDir, name)
}

// ConfigFile is the plaintext config cache of a context.
func (r Registry) ConfigFile(name string) string {
	return filepath.Join(r.Dir(name), "config.json")
}

// EnsureDir creates the per-context directory.
func (r Registry) EnsureDir(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return os.MkdirAll(r.Dir(name), 0o700)
}
