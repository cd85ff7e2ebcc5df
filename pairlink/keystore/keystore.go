// Package keystore defines the encrypted at-rest format for a device's
// identity and its pairings: a single passphrase-sealed JSON file. Where the
// file lives and when it is written is the caller's concern; this package
// owns what is inside it.
//
// Only the private key and the pairing list are stored. The public key is
// re-derived on load, so a loaded identity always satisfies the keypair
// invariant.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pairlink/go-pairlink/pairlink/encoding"
	"github.com/pairlink/go-pairlink/pairlink/identity"
)

// Version is the current keystore file version. Unsealing refuses other
// versions instead of guessing.
const Version = 1

// DefaultFileName is the file name used by the CLI inside its home
// directory.
const DefaultFileName = "keystore.enc"

var (
	ErrWrongPassphrase = errors.New("keystore: wrong passphrase or tampered keystore")
	ErrCorruptKeystore = errors.New("keystore: corrupt keystore file")
)

// Pairing is one paired peer as stored on disk. The public key is standard
// base64; none of the fields are secret.
type Pairing struct {
	DeviceID  string `json:"device_id"`
	PublicKey string `json:"public_key"`
	PairedAt  int64  `json:"paired_at"`
}

// Key returns the stored public key.
func (p Pairing) Key() (identity.PublicKey, error) {
	raw, err := encoding.DecodeKey(p.PublicKey)
	if err != nil {
		return identity.PublicKey{}, err
	}
	return identity.PublicKey(raw), nil
}

// content is the plaintext inside the sealed blob.
type content struct {
	DeviceID   string    `json:"device_id"`
	PrivateKey string    `json:"private_key"`
	Pairings   []Pairing `json:"pairings,omitempty"`
}

// Keystore holds a device's unsealed identity and pairings. All methods are
// safe for concurrent use; the private key is read-only after creation.
type Keystore struct {
	mu       sync.Mutex
	deviceID identity.DeviceID
	keys     identity.KeyPair
	pairings []Pairing
}

// New creates a keystore around a freshly generated or loaded identity.
func New(id identity.DeviceID, keys identity.KeyPair) (*Keystore, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return &Keystore{deviceID: id, keys: keys}, nil
}

// DeviceID returns the stored device identifier.
func (k *Keystore) DeviceID() identity.DeviceID { return k.deviceID }

// KeyPair returns the stored identity keypair.
func (k *Keystore) KeyPair() identity.KeyPair { return k.keys }

// Fingerprint returns the identity's public key fingerprint.
func (k *Keystore) Fingerprint() string { return identity.Fingerprint(k.keys.Public) }

// SetPairing records a paired peer, replacing any previous entry for the
// same device ID. Re-pairing with a new key is an overwrite, not a
// duplicate.
func (k *Keystore) SetPairing(peer identity.DeviceID, key identity.PublicKey) error {
	if err := peer.Validate(); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	entry := Pairing{
		DeviceID:  string(peer),
		PublicKey: encoding.EncodeKey(key),
		PairedAt:  time.Now().Unix(),
	}
	for i := range k.pairings {
		if k.pairings[i].DeviceID == string(peer) {
			k.pairings[i] = entry
			return nil
		}
	}
	k.pairings = append(k.pairings, entry)
	return nil
}

// Pairing returns the stored public key for peer, or false when the peer is
// not paired.
func (k *Keystore) Pairing(peer identity.DeviceID) (identity.PublicKey, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, p := range k.pairings {
		if p.DeviceID == string(peer) {
			key, err := p.Key()
			if err != nil {
				return identity.PublicKey{}, false
			}
			return key, true
		}
	}
	return identity.PublicKey{}, false
}

// Pairings returns a copy of all stored pairings in pairing order.
func (k *Keystore) Pairings() []Pairing {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]Pairing(nil), k.pairings...)
}

// RemovePairing forgets a peer. Removing an unknown peer is a no-op;
// un-pairing is idempotent.
func (k *Keystore) RemovePairing(peer identity.DeviceID) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i := range k.pairings {
		if k.pairings[i].DeviceID == string(peer) {
			k.pairings = append(k.pairings[:i], k.pairings[i+1:]...)
			return
		}
	}
}

// Seal serializes the keystore and encrypts it under a key derived from the
// passphrase. The returned blob is the complete file body.
func (k *Keystore) Seal(passphrase string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	plaintext, err := json.Marshal(content{
		DeviceID:   string(k.deviceID),
		PrivateKey: encoding.EncodeKey(k.keys.Private),
		Pairings:   k.pairings,
	})
	if err != nil {
		return nil, err
	}
	defer wipe(plaintext)

	return seal(passphrase, plaintext)
}

// Unseal decrypts a keystore blob and rebuilds the keystore, re-deriving the
// public key from the stored private key. An authentication failure yields
// ErrWrongPassphrase; the AEAD cannot tell a wrong passphrase from a
// tampered file, and both must fail closed. Anything structurally wrong
// yields ErrCorruptKeystore.
func Unseal(blob []byte, passphrase string) (*Keystore, error) {
	plaintext, err := open(passphrase, blob)
	if err != nil {
		return nil, err
	}
	defer wipe(plaintext)

	var c content
	if err := json.Unmarshal(plaintext, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptKeystore, err)
	}
	if identity.DeviceID(c.DeviceID).Validate() != nil {
		return nil, ErrCorruptKeystore
	}
	raw, err := encoding.DecodeKey(c.PrivateKey)
	if err != nil {
		return nil, ErrCorruptKeystore
	}
	for _, p := range c.Pairings {
		if identity.DeviceID(p.DeviceID).Validate() != nil {
			return nil, ErrCorruptKeystore
		}
		if _, err := p.Key(); err != nil {
			return nil, ErrCorruptKeystore
		}
	}

	return &Keystore{
		deviceID: identity.DeviceID(c.DeviceID),
		keys:     identity.FromPrivate(identity.PrivateKey(raw)),
		pairings: c.Pairings,
	}, nil
}

// WriteFile seals the keystore and writes it with owner-only permissions.
func (k *Keystore) WriteFile(path, passphrase string) error {
	blob, err := k.Seal(passphrase)
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o600)
}

// ReadFile loads and unseals a keystore file.
func ReadFile(path, passphrase string) (*Keystore, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unseal(blob, passphrase)
}
