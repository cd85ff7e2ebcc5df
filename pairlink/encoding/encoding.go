// Package encoding converts key material and envelope fields between raw
// bytes and the printable forms used on the wire and in pairing payloads.
//
// Standard (non-URL-safe) base64 is the canonical form for keys, nonces and
// ciphertext; hex is used only for fingerprints shown to humans.
package encoding

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// KeySize is the length in bytes of every key handled by this package.
const KeySize = 32

var (
	ErrInvalidKeyFormat = errors.New("encoding: invalid key format")
)

// EncodeBytes returns the standard base64 encoding of b.
func EncodeBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBytes decodes a standard base64 string.
func DecodeBytes(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// EncodeKey returns the standard base64 encoding of a 32-byte key.
func EncodeKey(key [KeySize]byte) string {
	return base64.StdEncoding.EncodeToString(key[:])
}

// DecodeKey decodes a base64 key string. It fails with ErrInvalidKeyFormat
// when the input is not valid base64 or does not decode to exactly 32 bytes.
func DecodeKey(s string) ([KeySize]byte, error) {
	var key [KeySize]byte
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return key, ErrInvalidKeyFormat
	}
	if len(b) != KeySize {
		return key, ErrInvalidKeyFormat
	}
	copy(key[:], b)
	return key, nil
}

// EncodeFingerprint returns the lowercase hex encoding of a digest.
func EncodeFingerprint(sum []byte) string {
	return hex.EncodeToString(sum)
}

// DecodeFingerprint decodes a lowercase hex fingerprint string.
func DecodeFingerprint(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
