package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the XChaCha20-Poly1305 key length.
	KeySize = chacha20poly1305.KeySize
	// NonceSize is the extended 24-byte nonce length.
	NonceSize = chacha20poly1305.NonceSizeX
	// Overhead is the Poly1305 authentication tag length.
	Overhead = chacha20poly1305.Overhead
)

var (
	ErrEntropyUnavailable   = errors.New("crypto: entropy source unavailable")
	ErrCiphertextTooShort   = errors.New("crypto: ciphertext too short")
	ErrAuthenticationFailed = errors.New("crypto: message authentication failed")
)

// Cipher encrypts and authenticates message payloads with XChaCha20-Poly1305
// under a derived session key.
//
// Every Seal draws a fresh random 24-byte nonce. The extended nonce space
// makes random generation safe for two senders sharing one key, so the
// paired devices never coordinate counters.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a cipher from a derived session key.
func NewCipher(key SessionKey) (*Cipher, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext and returns the nonce and ciphertext separately,
// matching the envelope layout. The ciphertext is the plaintext length plus
// the 16-byte tag. An entropy failure aborts the call; a nonce is never
// reused or constructed from a weak source.
func (c *Cipher) Seal(plaintext []byte) (nonce [NonceSize]byte, ciphertext []byte, err error) {
	if _, err = io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nonce, nil, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	ciphertext = c.aead.Seal(nil, nonce[:], plaintext, nil)
	return nonce, ciphertext, nil
}

// Open decrypts and verifies ciphertext. Verification is all or nothing: any
// mismatch in key, nonce or ciphertext yields ErrAuthenticationFailed and no
// plaintext.
func (c *Cipher) Open(nonce [NonceSize]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < Overhead {
		return nil, ErrCiphertextTooShort
	}
	plaintext, err := c.aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
