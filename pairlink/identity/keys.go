// Package identity manages the long-lived X25519 keypair that identifies a
// device to its paired peers, and the logical device ID used for routing.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the length in bytes of X25519 public and private keys.
const KeySize = 32

var (
	ErrEntropyUnavailable = errors.New("identity: entropy source unavailable")
)

// PublicKey is an X25519 public key. It is shared with peers during pairing
// and is not secret.
type PublicKey [KeySize]byte

// PrivateKey is a clamped X25519 private key. It never leaves the device.
type PrivateKey [KeySize]byte

// KeyPair holds a device's X25519 keypair. The private key is stored in
// clamped form, so Public is always the base-point multiple of Private.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// Generate creates a new keypair from the system CSPRNG. An entropy read
// failure is fatal for the caller; no fallback source is attempted.
func Generate() (KeyPair, error) {
	var kp KeyPair
	if _, err := io.ReadFull(rand.Reader, kp.Private[:]); err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	clamp(&kp.Private)
	curve25519.ScalarBaseMult((*[KeySize]byte)(&kp.Public), (*[KeySize]byte)(&kp.Private))
	return kp, nil
}

// FromPrivate rebuilds a keypair from a stored private key, re-deriving the
// public half. The key is clamped again so loaded keys satisfy the same
// invariant as generated ones.
func FromPrivate(priv PrivateKey) KeyPair {
	kp := KeyPair{Private: priv}
	clamp(&kp.Private)
	curve25519.ScalarBaseMult((*[KeySize]byte)(&kp.Public), (*[KeySize]byte)(&kp.Private))
	return kp
}

// Clamp per RFC 7748: clear the low 3 bits, clear the top bit, set bit 254.
func clamp(priv *PrivateKey) {
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64
}

// Fingerprint returns the SHA-256 digest of a public key as lowercase hex.
// Users compare fingerprints out of band to verify a pairing.
func Fingerprint(pub PublicKey) string {
	sum := sha256.Sum256(pub[:])
	return hex.EncodeToString(sum[:])
}

// String redacts the key so private material cannot leak through logging or
// formatted errors.
func (PrivateKey) String() string {
	return "[redacted]"
}

// GoString redacts %#v formatting as well.
func (PrivateKey) GoString() string {
	return "identity.PrivateKey[redacted]"
}
