// Package crypto provides key loading and derivation for the envelope codec.
package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfSalt fixes the derivation domain for TriagePipe chat keys.
const hkdfSalt = "triagepipe/chat/v1"

// KeyFromBase64 builds a Key from base64-encoded 32-byte material, as
// supplied by an external key-management collaborator.
func KeyFromBase64(id, b64 string) (Key, error) {
	material, err := FromBase64(b64)
	if err != nil {
		return Key{}, fmt.Errorf("invalid base64 key material: %w", err)
	}
	defer zeroize(material)
	return NewKey(id, material)
}

// DeriveKey derives a 32-byte AES-256 key from a master secret using
// HKDF-SHA256. The key id binds the derivation so distinct ids yield
// independent keys. The secret is copied internally; the caller's buffer is
// left intact so repeated derivations from the same buffer stay valid.
func DeriveKey(masterSecret []byte, keyID string) (Key, error) {
	if len(masterSecret) == 0 {
		return Key{}, fmt.Errorf("master secret cannot be empty")
	}
	secret := append([]byte(nil), masterSecret...)
	defer zeroize(secret)

	info := []byte(fmt.Sprintf("CHAT|A256GCM|%s", keyID))
	reader := hkdf.New(sha256.New, secret, []byte(hkdfSalt), info)

	material := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, material); err != nil {
		return Key{}, fmt.Errorf("hkdf expand failed: %w", err)
	}
	defer zeroize(material)

	return NewKey(keyID, material)
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
