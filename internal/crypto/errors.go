package crypto

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic handling.
//
// Callers distinguish a damaged or foreign envelope from a wrong passphrase:
//
//	if errors.Is(err, crypto.ErrAuth) {
//	    // re-prompt for the passphrase
//	}
var (
	// ErrFormat is returned when an envelope cannot be parsed, carries an
	// unsupported version, or has malformed fields.
	ErrFormat = errors.New("invalid encrypted config format")

	// ErrAuth is returned when the AEAD tag check fails. This is either a
	// wrong passphrase or a tampered ciphertext; the two cannot be told apart.
	ErrAuth = errors.New("authentication failed: wrong passphrase or tampered data")
)

// FormatError describes why an envelope was rejected before any key
// derivation took place.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrFormat, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrFormat, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// AuthError is returned when the ciphertext does not authenticate under the
// key derived from the supplied passphrase.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string {
	return ErrAuth.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

func formatErr(reason string, err error) error {
	return &FormatError{Reason: reason, Err: err}
}
