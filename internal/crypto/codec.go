// Package crypto implements the envelope encryption codec for TriagePipe.
//
// Message bodies are protected with AES-256-GCM: a fresh 96-bit IV per
// encryption, ciphertext and authentication tag travelling together, and
// base64 as the transport text encoding. Decryption is all-or-nothing; a
// failed tag check never yields partial plaintext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the GCM nonce length in bytes.
	IVSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// Error variables for codec failures.
var (
	ErrInvalidKeySize = fmt.Errorf("key material must be %d bytes", KeySize)
	ErrInvalidIVSize  = fmt.Errorf("iv must be %d bytes", IVSize)
)

// Key is a symmetric encryption key with an application-assigned
// identifier. The identifier is safe for logging and correlation; the raw
// material is never logged and never transmitted.
type Key struct {
	ID       string
	material [KeySize]byte
}

// NewKey creates a Key from raw material. The material slice is copied;
// callers may zeroize their copy afterwards.
func NewKey(id string, material []byte) (Key, error) {
	if len(material) != KeySize {
		return Key{}, ErrInvalidKeySize
	}
	k := Key{ID: id}
	copy(k.material[:], material)
	return k, nil
}

// LogValue renders the key as its identifier only, so a Key passed to slog
// can never leak material.
func (k Key) LogValue() slog.Value {
	return slog.StringValue(k.ID)
}

// String implements fmt.Stringer with the same redaction as LogValue.
func (k Key) String() string {
	return fmt.Sprintf("Key(%s)", k.ID)
}

// AuthenticationError indicates a ciphertext failed tag verification:
// either the payload was tampered with or the wrong key or IV was used.
type AuthenticationError struct {
	KeyID string
	Err   error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for key %s: %v", e.KeyID, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// GenerateIV returns a fresh cryptographically random 96-bit IV. Freshness
// is guaranteed per call; IVs must never be reused with the same key.
func GenerateIV() ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("iv generation failed: %w", err)
	}
	return iv, nil
}

// Encrypt performs AES-256-GCM encryption and returns ciphertext||tag.
func Encrypt(plaintext []byte, key Key, iv []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVSize {
		return nil, ErrInvalidIVSize
	}
	return gcm.Seal(nil, iv, plaintext, nil), nil
}

// Decrypt performs AES-256-GCM decryption of ciphertext||tag. Tag
// verification failure returns an *AuthenticationError and no plaintext.
func Decrypt(ciphertext []byte, key Key, iv []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVSize {
		return nil, ErrInvalidIVSize
	}
	if len(ciphertext) < TagSize {
		return nil, &AuthenticationError{KeyID: key.ID, Err: fmt.Errorf("ciphertext too short")}
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, &AuthenticationError{KeyID: key.ID, Err: err}
	}
	return plaintext, nil
}

// EncryptToBase64 encrypts plaintext and returns the transport encodings of
// ciphertext||tag and the freshly generated IV.
func EncryptToBase64(plaintext string, key Key) (data, iv string, err error) {
	rawIV, err := GenerateIV()
	if err != nil {
		return "", "", err
	}
	sealed, err := Encrypt([]byte(plaintext), key, rawIV)
	if err != nil {
		return "", "", err
	}
	return ToBase64(sealed), ToBase64(rawIV), nil
}

// DecryptFromBase64 decodes the transport encodings and decrypts.
func DecryptFromBase64(data, iv string, key Key) (string, error) {
	rawData, err := FromBase64(data)
	if err != nil {
		return "", fmt.Errorf("invalid base64 ciphertext: %w", err)
	}
	rawIV, err := FromBase64(iv)
	if err != nil {
		return "", fmt.Errorf("invalid base64 iv: %w", err)
	}
	plaintext, err := Decrypt(rawData, key, rawIV)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// ToBase64 converts binary data to the transport text encoding.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromBase64 converts transport text back to binary data.
func FromBase64(b64 string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(b64)
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.material[:])
	if err != nil {
		return nil, fmt.Errorf("aes cipher init failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init failed: %w", err)
	}
	return gcm, nil
}
