package vcs

import "errors"

// Common errors returned by Remote implementations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, vcs.ErrPushRejected) {
//	    // someone else published first; pull before pushing again
//	}
var (
	// ErrNotInitialized is returned when an operation needs the local
	// mirror but it has not been created yet.
	ErrNotInitialized = errors.New("sync mirror is not initialized")

	// ErrVCSNotAvailable is returned when the backend binary is not
	// installed or not in PATH.
	ErrVCSNotAvailable = errors.New("VCS binary not available")

	// ErrBackendNotRegistered is returned by Open for an unknown backend.
	ErrBackendNotRegistered = errors.New("VCS backend not registered")

	// ErrInvalidTarget is returned when a Target is missing a field or its
	// mirror path is occupied by something that is not a working copy.
	ErrInvalidTarget = errors.New("invalid sync target")

	// ErrTransport is returned when the remote could not be reached or
	// refused the connection (network, DNS, authentication).
	ErrTransport = errors.New("remote transport failed")

	// ErrTimeout is returned when an operation exceeds its timeout.
	ErrTimeout = errors.New("operation timed out")

	// ErrPushRejected is returned when the remote refuses a push,
	// typically because it moved on since the last pull.
	ErrPushRejected = errors.New("push rejected by remote")

	// ErrDiverged is returned when the mirror cannot be fast-forwarded to
	// the remote tip.
	ErrDiverged = errors.New("mirror diverged from remote")
)

// IsTransient returns true if the error is likely to succeed on retry.
// This covers network failures and timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTimeout) {
		return true
	}

	if errors.Is(err, ErrTransport) {
		return true
	}

	return false
}

// IsUserActionRequired returns true if the error needs the user to pull,
// resolve, or otherwise intervene before retrying.
func IsUserActionRequired(err error) bool {
	if err == nil {
		return false
	}

	// The remote moved on; pull and decide before pushing again
	if errors.Is(err, ErrPushRejected) {
		return true
	}

	if errors.Is(err, ErrDiverged) {
		return true
	}

	return false
}

// IsFatal returns true if no retry can succeed without changing the
// environment or the configuration.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrVCSNotAvailable) {
		return true
	}

	if errors.Is(err, ErrInvalidTarget) {
		return true
	}

	if errors.Is(err, ErrBackendNotRegistered) {
		return true
	}

	return false
}
