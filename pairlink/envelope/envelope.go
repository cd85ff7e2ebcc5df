// Package envelope defines the wire format for encrypted messages crossing
// the relay. An envelope carries routing metadata in the clear and the
// message payload as AEAD ciphertext; the relay can read exactly enough to
// route and nothing more.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pairlink/go-pairlink/pairlink/crypto"
	"github.com/pairlink/go-pairlink/pairlink/encoding"
	"github.com/pairlink/go-pairlink/pairlink/identity"
)

var (
	ErrMalformedEnvelope = errors.New("envelope: malformed envelope")
	ErrMalformedMessage  = errors.New("envelope: malformed message payload")
)

// Envelope is the unit of exchange between paired devices. These five
// fields are the entire wire contract; both sides must agree on them
// exactly.
//
// Nonce and Ciphertext are standard base64. Timestamp is unix seconds at
// seal time and is not authenticated; receivers treat it as a freshness
// hint, never as proof of sending time.
type Envelope struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Timestamp   int64  `json:"timestamp"`
	Nonce       string `json:"nonce"`
	Ciphertext  string `json:"ciphertext"`
}

// Seal serializes msg as JSON, encrypts it for the pairing's cipher and
// wraps it in an addressed envelope stamped with now.
func Seal[T any](c *crypto.Cipher, sender, recipient identity.DeviceID, now time.Time, msg T) (Envelope, error) {
	plaintext, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("envelope: encode payload: %w", err)
	}
	nonce, ciphertext, err := c.Seal(plaintext)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		SenderID:    string(sender),
		RecipientID: string(recipient),
		Timestamp:   now.Unix(),
		Nonce:       encoding.EncodeBytes(nonce[:]),
		Ciphertext:  encoding.EncodeBytes(ciphertext),
	}, nil
}

// Open decrypts an envelope and decodes its payload into T. Decryption is
// all or nothing: a bad nonce or ciphertext encoding yields
// ErrMalformedEnvelope, an authentication failure surfaces
// crypto.ErrAuthenticationFailed, and a payload that decrypts but does not
// decode yields ErrMalformedMessage.
func Open[T any](c *crypto.Cipher, env Envelope) (T, error) {
	var msg T

	rawNonce, err := DecodeNonce(env.Nonce)
	if err != nil {
		return msg, err
	}
	var nonce [crypto.NonceSize]byte
	copy(nonce[:], rawNonce)

	ciphertext, err := encoding.DecodeBytes(env.Ciphertext)
	if err != nil {
		return msg, ErrMalformedEnvelope
	}

	plaintext, err := c.Open(nonce, ciphertext)
	if err != nil {
		if errors.Is(err, crypto.ErrCiphertextTooShort) {
			return msg, ErrMalformedEnvelope
		}
		return msg, err
	}

	if err := json.Unmarshal(plaintext, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return msg, nil
}

// DecodeNonce decodes a nonce field, enforcing the AEAD nonce size.
func DecodeNonce(s string) ([]byte, error) {
	raw, err := encoding.DecodeBytes(s)
	if err != nil || len(raw) != crypto.NonceSize {
		return nil, ErrMalformedEnvelope
	}
	return raw, nil
}

// Validate checks the envelope's field shape without touching key material:
// both routing IDs present, nonce decoding to the AEAD nonce size, and
// ciphertext at least one tag long.
func (e Envelope) Validate() error {
	if e.SenderID == "" || e.RecipientID == "" {
		return ErrMalformedEnvelope
	}
	if _, err := DecodeNonce(e.Nonce); err != nil {
		return err
	}
	ciphertext, err := encoding.DecodeBytes(e.Ciphertext)
	if err != nil || len(ciphertext) < crypto.Overhead {
		return ErrMalformedEnvelope
	}
	return nil
}

// Encode renders the envelope as JSON for the relay boundary.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Decode parses relay bytes into a validated envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
