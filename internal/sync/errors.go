package sync

import "errors"

var (
	// ErrBusy is returned when another process is syncing the same profile.
	ErrBusy = errors.New("another sync is in progress for this profile")

	// ErrNoRemote is returned by operations that need a remote when the
	// profile has none.
	ErrNoRemote = errors.New("no remote configured")

	// ErrNoBackup is returned by Export when there is no local encrypted
	// backup to decrypt.
	ErrNoBackup = errors.New("no local encrypted backup")

	// ErrNoConfig is returned by Publish when there is no plaintext config
	// to publish.
	ErrNoConfig = errors.New("no local config to publish")

	// ErrPushFailed wraps the remote error when a push did not land.
	ErrPushFailed = errors.New("push failed")
)
