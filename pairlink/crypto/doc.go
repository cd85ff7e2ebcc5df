// Package crypto implements the cryptographic core of a device pairing:
// session key derivation and authenticated message encryption.
//
// Design goals:
//   - X25519 key agreement with low-order point rejection
//   - Key derivation via HKDF-SHA256 under a fixed protocol label
//   - AEAD encryption via XChaCha20-Poly1305 with random 24-byte nonces
//   - All-or-nothing decryption; no plaintext escapes a failed check
//
// The session key for a pairing is static: there is no ratcheting, so a key
// compromise exposes past traffic for that pairing. Callers that need
// forward secrecy must re-pair.
package crypto
