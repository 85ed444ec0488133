// Package crypto encrypts and decrypts the connection book for transport.
//
// A document is sealed with AES-256-GCM under a key derived from the user's
// passphrase with scrypt. Every call to Encrypt draws a fresh salt and IV, so
// two encryptions of the same document never share either. The result is a
// versioned JSON Envelope that carries everything needed to reproduce the
// key except the passphrase itself.
//
// All functions are pure: no I/O, no shared state.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// DefaultN, DefaultR and DefaultP are tuned for roughly 0.1s of key
	// derivation on a modern laptop.
	DefaultN = 32768
	DefaultR = 8
	DefaultP = 1

	keyLength  = 32 // AES-256
	saltLength = 16
	ivLength   = 12 // GCM standard nonce
	tagLength  = 16

	// Caps on parameters read from an untrusted envelope. scrypt allocates
	// about 128*r*(N+p) bytes, which maxMem bounds as a whole.
	maxN   = 1 << 20
	maxR   = 64
	maxP   = 16
	maxMem = 256 << 20
)

// Codec seals and opens envelopes. The zero value uses the default scrypt
// cost; tests may lower it. Decryption always uses the parameters embedded
// in the envelope, never the Codec's own.
type Codec struct {
	N, R, P int

	// Rand is the entropy source for salts and IVs (crypto/rand when nil).
	Rand io.Reader
}

// Default is the codec used by the package-level helpers.
var Default = Codec{}

// Encrypt seals doc with the default codec.
func Encrypt(doc []byte, passphrase string) ([]byte, error) {
	return Default.Encrypt(doc, passphrase)
}

// Decrypt opens envelope bytes with the default codec.
func Decrypt(data []byte, passphrase string) ([]byte, error) {
	return Default.Decrypt(data, passphrase)
}

func (c Codec) params() (n, r, p int) {
	n, r, p = c.N, c.R, c.P
	if n == 0 {
		n = DefaultN
	}
	if r == 0 {
		r = DefaultR
	}
	if p == 0 {
		p = DefaultP
	}
	return n, r, p
}

func (c Codec) rand() io.Reader {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.Reader
}

// Encrypt seals a JSON document and returns the encoded envelope.
func (c Codec) Encrypt(doc []byte, passphrase string) ([]byte, error) {
	env, err := c.Seal(doc, passphrase)
	if err != nil {
		return nil, err
	}
	return env.Marshal()
}

// Seal encrypts doc into a new Envelope with a fresh salt and IV.
func (c Codec) Seal(doc []byte, passphrase string) (*Envelope, error) {
	if !json.Valid(doc) {
		return nil, fmt.Errorf("refusing to encrypt: document is not valid JSON")
	}
	n, r, p := c.params()
	if err := validateParams(n, r, p); err != nil {
		return nil, err
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(c.rand(), salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(c.rand(), iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	aead, err := newAEAD(passphrase, salt, n, r, p)
	if err != nil {
		return nil, err
	}
	ct := aead.Seal(nil, iv, doc, nil)

	return &Envelope{
		Version: Version,
		Algo:    Algorithm,
		KDF:     KDFName,
		KDFParams: KDFParams{
			N:    n,
			R:    r,
			P:    p,
			Salt: base64.StdEncoding.EncodeToString(salt),
		},
		IV:         base64.StdEncoding.EncodeToString(iv),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	}, nil
}

// Decrypt parses envelope bytes and opens them.
func (c Codec) Decrypt(data []byte, passphrase string) ([]byte, error) {
	env, err := ParseEnvelope(data)
	if err != nil {
		return nil, err
	}
	return c.Open(env, passphrase)
}

// Open decrypts an already parsed envelope using its embedded KDF params.
func (c Codec) Open(env *Envelope, passphrase string) ([]byte, error) {
	if env == nil {
		return nil, formatErr("nil envelope", nil)
	}
	salt, iv, ct, err := env.decodeFields()
	if err != nil {
		return nil, err
	}
	kp := env.KDFParams
	if err := validateParams(kp.N, kp.R, kp.P); err != nil {
		return nil, err
	}

	aead, err := newAEAD(passphrase, salt, kp.N, kp.R, kp.P)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, iv, ct, nil)
	if err != nil {
		return nil, &AuthError{Cause: err}
	}
	if !json.Valid(plain) {
		return nil, formatErr("decrypted payload is not JSON", nil)
	}
	return plain, nil
}

func newAEAD(passphrase string, salt []byte, n, r, p int) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, n, r, p, keyLength)
	if err != nil {
		return nil, formatErr("key derivation rejected parameters", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

func validateParams(n, r, p int) error {
	if n <= 1 || n&(n-1) != 0 {
		return formatErr(fmt.Sprintf("scrypt N must be a power of two > 1, got %d", n), nil)
	}
	if n > maxN {
		return formatErr(fmt.Sprintf("scrypt N %d exceeds limit %d", n, maxN), nil)
	}
	if r < 1 || r > maxR || p < 1 || p > maxP {
		return formatErr(fmt.Sprintf("scrypt r=%d p=%d out of range", r, p), nil)
	}
	if mem := 128 * int64(r) * (int64(n) + int64(p)); mem > maxMem {
		return formatErr(fmt.Sprintf("scrypt parameters need %d MiB, limit is %d MiB", mem>>20, maxMem>>20), nil)
	}
	return nil
}
