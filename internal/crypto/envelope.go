package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	// Version is the only envelope version this package reads or writes.
	Version = 1

	// Algorithm identifies the AEAD used for the ciphertext.
	Algorithm = "AES-256-GCM"

	// KDFName identifies the key derivation function.
	KDFName = "scrypt"
)

// KDFParams are the scrypt cost parameters and salt embedded in an envelope.
type KDFParams struct {
	N    int    `json:"n"`
	R    int    `json:"r"`
	P    int    `json:"p"`
	Salt string `json:"salt"` // base64
}

// Envelope is the self-describing container written to the remote blob and
// to the local ".enc" backup.
type Envelope struct {
	Version    int       `json:"version"`
	Algo       string    `json:"algo"`
	KDF        string    `json:"kdf"`
	KDFParams  KDFParams `json:"kdf_params"`
	IV         string    `json:"iv"`         // base64
	Ciphertext string    `json:"ciphertext"` // base64, GCM tag appended
}

// ParseEnvelope decodes and validates envelope bytes.
// All failures are reported as *FormatError.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, formatErr("not a JSON envelope", err)
	}
	if env.Version != Version {
		return nil, formatErr(fmt.Sprintf("unsupported version %d", env.Version), nil)
	}
	if env.Algo != "" && env.Algo != Algorithm {
		return nil, formatErr(fmt.Sprintf("unsupported algorithm %q", env.Algo), nil)
	}
	if env.KDF != "" && env.KDF != KDFName {
		return nil, formatErr(fmt.Sprintf("unsupported kdf %q", env.KDF), nil)
	}
	return &env, nil
}

// Marshal encodes the envelope as indented JSON.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// decodeFields returns the raw salt, IV and ciphertext.
func (e *Envelope) decodeFields() (salt, iv, ct []byte, err error) {
	if salt, err = base64.StdEncoding.DecodeString(e.KDFParams.Salt); err != nil {
		return nil, nil, nil, formatErr("malformed salt", err)
	}
	if iv, err = base64.StdEncoding.DecodeString(e.IV); err != nil {
		return nil, nil, nil, formatErr("malformed iv", err)
	}
	if ct, err = base64.StdEncoding.DecodeString(e.Ciphertext); err != nil {
		return nil, nil, nil, formatErr("malformed ciphertext", err)
	}
	if len(salt) == 0 {
		return nil, nil, nil, formatErr("missing salt", nil)
	}
	if len(iv) != ivLength {
		return nil, nil, nil, formatErr(fmt.Sprintf("iv must be %d bytes, got %d", ivLength, len(iv)), nil)
	}
	if len(ct) < tagLength {
		return nil, nil, nil, formatErr("ciphertext shorter than the GCM tag", nil)
	}
	return salt, iv, ct, nil
}
