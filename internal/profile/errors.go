package profile

import "errors"

var (
	// ErrUnknownContext is returned for a context name not in contexts.json.
	ErrUnknownContext = errors.New("unknown context")

	// ErrInvalidName is returned for context names that are not usable as a
	// directory name.
	ErrInvalidName = errors.New("invalid context name")

	// ErrCorrupt is returned when a settings file exists but cannot be
	// parsed. The file is never overwritten in that case.
	ErrCorrupt = errors.New("settings file is corrupt")

	// ErrLocked is returned when another process holds the settings lock
	// for longer than the lock timeout.
	ErrLocked = errors.New("settings file is locked by another process")
)
