package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

// testCodec keeps scrypt cheap so the suite stays fast.
var testCodec = Codec{N: 1024, R: 8, P: 1}

func TestRoundTrip(t *testing.T) {
	docs := []struct {
		name string
		doc  string
	}{
		{"empty object", `{}`},
		{"nested", `{"targets":[{"prod":[{"friendly":"web-1","host":"10.0.0.1"}]}]}`},
		{"indented", "{\n    \"a\": 1,\n    \"b\": [true, null]\n}"},
		{"unicode", `{"nota":"connessione più veloce ☕"}`},
	}

	for _, tt := range docs {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := testCodec.Encrypt([]byte(tt.doc), "correct horse")
			if err != nil {
				t.Fatalf("Encrypt() failed: %v", err)
			}
			plain, err := testCodec.Decrypt(enc, "correct horse")
			if err != nil {
				t.Fatalf("Decrypt() failed: %v", err)
			}
			if !bytes.Equal(plain, []byte(tt.doc)) {
				t.Errorf("round trip mismatch: got %q, want %q", plain, tt.doc)
			}
		})
	}
}

func TestDecryptUsesEmbeddedParams(t *testing.T) {
	enc, err := testCodec.Encrypt([]byte(`{"k":"v"}`), "pw")
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}

	// A codec configured with different cost must still open the envelope.
	other := Codec{N: 2048, R: 4, P: 2}
	plain, err := other.Decrypt(enc, "pw")
	if err != nil {
		t.Fatalf("Decrypt() with different codec failed: %v", err)
	}
	if string(plain) != `{"k":"v"}` {
		t.Errorf("unexpected plaintext %q", plain)
	}
}

func TestEnvelopeFields(t *testing.T) {
	enc, err := testCodec.Encrypt([]byte(`{}`), "pw")
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(enc, &raw); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	for _, key := range []string{"version", "algo", "kdf", "kdf_params", "iv", "ciphertext"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("envelope missing %q", key)
		}
	}
	if raw["algo"] != Algorithm || raw["kdf"] != KDFName {
		t.Errorf("unexpected algo/kdf: %v/%v", raw["algo"], raw["kdf"])
	}
	params := raw["kdf_params"].(map[string]any)
	for _, key := range []string{"n", "r", "p", "salt"} {
		if _, ok := params[key]; !ok {
			t.Errorf("kdf_params missing %q", key)
		}
	}
}

func TestSaltAndIVNeverReused(t *testing.T) {
	doc := []byte(`{"same":"input"}`)
	a, err := testCodec.Seal(doc, "pw")
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}
	b, err := testCodec.Seal(doc, "pw")
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}

	if a.KDFParams.Salt == b.KDFParams.Salt {
		t.Error("two encryptions share a salt")
	}
	if a.IV == b.IV {
		t.Error("two encryptions share an IV")
	}
	if a.Ciphertext == b.Ciphertext {
		t.Error("two encryptions produced identical ciphertext")
	}
}

func TestTamperDetection(t *testing.T) {
	env, err := testCodec.Seal([]byte(`{"host":"example.org"}`), "pw")
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}

	ct, _ := base64.StdEncoding.DecodeString(env.Ciphertext)
	for i := range ct {
		tampered := append([]byte(nil), ct...)
		tampered[i] ^= 0x01
		bad := *env
		bad.Ciphertext = base64.StdEncoding.EncodeToString(tampered)

		plain, err := testCodec.Open(&bad, "pw")
		if !errors.Is(err, ErrAuth) {
			t.Fatalf("byte %d: expected ErrAuth, got %v", i, err)
		}
		if plain != nil {
			t.Fatalf("byte %d: tampered ciphertext returned plaintext %q", i, plain)
		}
	}
}

func TestWrongPassphrase(t *testing.T) {
	enc, err := testCodec.Encrypt([]byte(`{}`), "right")
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}

	_, err = testCodec.Decrypt(enc, "wrong")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if errors.Is(err, ErrFormat) {
		t.Error("auth failure must not match ErrFormat")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Error("errors.As should match *AuthError")
	}
}

func TestFormatErrors(t *testing.T) {
	valid, err := testCodec.Seal([]byte(`{}`), "pw")
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}

	mutate := func(fn func(e *Envelope)) []byte {
		e := *valid
		fn(&e)
		out, err := e.Marshal()
		if err != nil {
			t.Fatalf("Marshal() failed: %v", err)
		}
		return out
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("definitely not json")},
		{"empty", nil},
		{"unknown version", mutate(func(e *Envelope) { e.Version = 2 })},
		{"missing version", []byte(`{"algo":"AES-256-GCM"}`)},
		{"foreign algorithm", mutate(func(e *Envelope) { e.Algo = "ChaCha20" })},
		{"bad salt", mutate(func(e *Envelope) { e.KDFParams.Salt = "%%%" })},
		{"bad iv", mutate(func(e *Envelope) { e.IV = "%%%" })},
		{"short iv", mutate(func(e *Envelope) { e.IV = base64.StdEncoding.EncodeToString([]byte("abc")) })},
		{"short ciphertext", mutate(func(e *Envelope) { e.Ciphertext = base64.StdEncoding.EncodeToString([]byte("x")) })},
		{"n not power of two", mutate(func(e *Envelope) { e.KDFParams.N = 1000 })},
		{"n too large", mutate(func(e *Envelope) { e.KDFParams.N = 1 << 24 })},
		{"zero r", mutate(func(e *Envelope) { e.KDFParams.R = 0 })},
		{"huge r", mutate(func(e *Envelope) { e.KDFParams.N = 2; e.KDFParams.R = 1 << 23 })},
		{"huge p", mutate(func(e *Envelope) { e.KDFParams.P = 1 << 20 })},
		{"memory over limit", mutate(func(e *Envelope) { e.KDFParams.N = 1 << 20; e.KDFParams.R = 8 })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testCodec.Decrypt(tt.data, "pw")
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("expected ErrFormat, got %v", err)
			}
			if errors.Is(err, ErrAuth) {
				t.Error("format failure must not match ErrAuth")
			}
		})
	}
}

func TestEncryptRejectsInvalidJSON(t *testing.T) {
	if _, err := testCodec.Encrypt([]byte("{broken"), "pw"); err == nil {
		t.Fatal("expected error for non-JSON document")
	}
}

func TestFormatErrorMessage(t *testing.T) {
	err := &FormatError{Reason: "unsupported version 9"}
	want := "invalid encrypted config format: unsupported version 9"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
