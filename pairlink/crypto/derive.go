package crypto

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/pairlink/go-pairlink/pairlink/identity"
)

// sessionInfo binds derived keys to this protocol and version. Changing the
// label changes every derived key, so a bump forces devices to re-pair.
const sessionInfo = "pairlink-session-v1"

var (
	ErrInvalidPublicKey = errors.New("crypto: invalid X25519 public key")
)

// SessionKey is the symmetric key shared by a paired device couple. Both
// sides derive the same value from their own private key and the peer's
// public key. It lives only in memory and is never serialized.
type SessionKey [KeySize]byte

// String redacts the key so it cannot leak through logging.
func (SessionKey) String() string { return "[redacted]" }

// GoString redacts %#v formatting as well.
func (SessionKey) GoString() string { return "crypto.SessionKey[redacted]" }

// DeriveSessionKey runs X25519 between the local private key and the peer's
// public key, then expands the shared secret with HKDF-SHA256 (no salt,
// fixed info label) into a 32-byte session key.
//
// The derivation is deterministic and symmetric:
// DeriveSessionKey(a.Private, b.Public) == DeriveSessionKey(b.Private, a.Public).
// Low-order peer points (including all-zero) are rejected with
// ErrInvalidPublicKey before any key material is produced.
func DeriveSessionKey(local identity.PrivateKey, peer identity.PublicKey) (SessionKey, error) {
	var key SessionKey

	var zero identity.PublicKey
	if peer == zero {
		return key, ErrInvalidPublicKey
	}
	// curve25519.X25519 rejects low-order points by refusing an all-zero
	// shared secret.
	shared, err := curve25519.X25519(local[:], peer[:])
	if err != nil {
		return key, ErrInvalidPublicKey
	}

	hk := hkdf.New(sha256.New, shared, nil, []byte(sessionInfo))
	if _, err := io.ReadFull(hk, key[:]); err != nil {
		return key, err
	}
	return key, nil
}
