// Package watch calls back when a single file settles after a burst of
// writes.
//
// The parent directory is watched rather than the file itself, because
// most editors save by writing a temporary file and renaming it over the
// original, which drops a watch placed on the old inode.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is used when no debounce interval is given.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher reports changes to one file.
type FileWatcher struct {
	path     string
	debounce time.Duration
	log      *zap.Logger
	fs       *fsnotify.Watcher
}

// New starts watching path's directory. Close releases the watch.
func New(path string, debounce time.Duration, log *zap.Logger) (*FileWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return &FileWatcher{
		path:     abs,
		debounce: debounce,
		log:      log.Named("watch"),
		fs:       fs,
	}, nil
}

// Close stops the underlying watcher.
func (w *FileWatcher) Close() error {
	return w.fs.Close()
}

// relevant reports whether ev may have changed the watched file's content.
func (w *FileWatcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// Run blocks until ctx is done, calling onChange once per burst of changes
// after the file has been quiet for the debounce interval. onChange runs on
// the Run goroutine, so bursts arriving meanwhile are coalesced.
func (w *FileWatcher) Run(ctx context.Context, onChange func(context.Context)) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("file event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
			timer.Reset(w.debounce)

		case <-timer.C:
			onChange(ctx)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}
