// Package channel provides the end-to-end encrypted message channel between
// two paired devices. A channel owns one pairing: the peer's identity, the
// derived cipher and the receive-side defenses (addressing, freshness and
// replay checks) that stand between relay input and application code.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairlink/go-pairlink/pairlink/crypto"
	"github.com/pairlink/go-pairlink/pairlink/envelope"
	"github.com/pairlink/go-pairlink/pairlink/identity"
)

var (
	ErrNotPaired        = errors.New("channel: not paired")
	ErrAlreadyPaired    = errors.New("channel: already paired, unpair first")
	ErrNoTransport      = errors.New("channel: no transport attached")
	ErrWrongRecipient   = errors.New("channel: envelope not addressed to this device")
	ErrUnexpectedSender = errors.New("channel: envelope from unexpected sender")
	ErrStaleEnvelope    = errors.New("channel: envelope outside freshness window")
	ErrReplayedEnvelope = errors.New("channel: envelope nonce already seen")
)

// State is the pairing state of a channel.
type State uint8

const (
	// StateUnpaired means no peer key is installed; Seal and Open fail.
	StateUnpaired State = iota
	// StateActive means the session key is derived and the channel is
	// usable in both directions.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUnpaired:
		return "unpaired"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Transport delivers sealed envelopes toward the peer. The relay client
// implements it; tests substitute their own.
type Transport interface {
	Publish(ctx context.Context, env envelope.Envelope) error
}

// Config carries the channel's local identity and receive-side policy.
type Config struct {
	// LocalID is this device's routing identifier. Required.
	LocalID identity.DeviceID

	// MaxClockSkew bounds |now - envelope timestamp| for accepted
	// envelopes. The timestamp is unauthenticated, so this is a policy
	// check against queued-forever delivery, not a security boundary.
	// Defaults to 5 minutes.
	MaxClockSkew time.Duration

	// ReplayTTL is how long accepted nonces are remembered. Anything at
	// least 2*MaxClockSkew closes the replay window left by the freshness
	// check. Defaults to 2*MaxClockSkew.
	ReplayTTL time.Duration

	// Clock overrides time for tests. Defaults to the system clock.
	Clock Clock

	// Logger receives security events (dropped envelopes with the failure
	// kind, never message contents). Nil disables logging.
	Logger *zerolog.Logger
}

// DefaultConfig returns the config used when only an identity is known.
func DefaultConfig(localID identity.DeviceID) Config {
	return Config{
		LocalID:      localID,
		MaxClockSkew: 5 * time.Minute,
	}
}

// Channel is one device's end of a pairing. T is the application message
// type carried in envelope payloads.
//
// All methods are safe for concurrent use. Key material lives only inside
// the derived cipher and is dropped on Unpair.
type Channel[T any] struct {
	mu        sync.Mutex
	cfg       Config
	state     State
	peerID    identity.DeviceID
	peerKey   identity.PublicKey
	cipher    *crypto.Cipher
	replay    *replayCache
	transport Transport
}

// New creates an unpaired channel for the local device.
func New[T any](cfg Config) (*Channel[T], error) {
	if err := cfg.LocalID.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxClockSkew <= 0 {
		cfg.MaxClockSkew = 5 * time.Minute
	}
	if cfg.ReplayTTL <= 0 {
		cfg.ReplayTTL = 2 * cfg.MaxClockSkew
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	return &Channel[T]{
		cfg:    cfg,
		state:  StateUnpaired,
		replay: newReplayCache(cfg.ReplayTTL, cfg.Clock),
	}, nil
}

// Pair installs the peer obtained from a pairing exchange and derives the
// session key. The channel becomes Active immediately; there is no separate
// confirmation round trip. Pairing over an existing pairing is refused so a
// key replacement is always an explicit Unpair followed by Pair.
func (c *Channel[T]) Pair(peerID identity.DeviceID, peerKey identity.PublicKey, local identity.KeyPair) error {
	if err := peerID.Validate(); err != nil {
		return err
	}
	if peerID == c.cfg.LocalID {
		return fmt.Errorf("channel: peer ID %q equals local ID", peerID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnpaired {
		return ErrAlreadyPaired
	}

	key, err := crypto.DeriveSessionKey(local.Private, peerKey)
	if err != nil {
		return err
	}
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		return err
	}

	c.peerID = peerID
	c.peerKey = peerKey
	c.cipher = cipher
	c.state = StateActive
	return nil
}

// Unpair discards the pairing and its key material. The replay cache is
// reset too; a future pairing starts clean.
func (c *Channel[T]) Unpair() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.peerID = ""
	c.peerKey = identity.PublicKey{}
	c.cipher = nil
	c.replay = newReplayCache(c.cfg.ReplayTTL, c.cfg.Clock)
	c.state = StateUnpaired
}

// State returns the current pairing state.
func (c *Channel[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LocalID returns this device's routing identifier.
func (c *Channel[T]) LocalID() identity.DeviceID { return c.cfg.LocalID }

// Peer returns the paired device's ID, or false when unpaired.
func (c *Channel[T]) Peer() (identity.DeviceID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerID, c.state == StateActive
}

// PeerKey returns the paired device's public key, or false when unpaired.
func (c *Channel[T]) PeerKey() (identity.PublicKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerKey, c.state == StateActive
}

// Attach installs the transport used by Send.
func (c *Channel[T]) Attach(tr Transport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = tr
}

// Seal encrypts msg into an envelope addressed to the paired peer.
func (c *Channel[T]) Seal(msg T) (envelope.Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return envelope.Envelope{}, ErrNotPaired
	}
	return envelope.Seal(c.cipher, c.cfg.LocalID, c.peerID, c.cfg.Clock.Now(), msg)
}

// Open validates and decrypts an envelope received from the relay.
//
// Checks run cheapest first and everything addressable fails before any
// decryption: state, recipient ID, sender ID, freshness window, then the
// replay cache. Only an envelope that passes all of them reaches the
// cipher, and only one that authenticates gets its nonce recorded.
func (c *Channel[T]) Open(env envelope.Envelope) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return zero, ErrNotPaired
	}
	if env.RecipientID != string(c.cfg.LocalID) {
		return zero, ErrWrongRecipient
	}
	if env.SenderID != string(c.peerID) {
		return zero, ErrUnexpectedSender
	}

	now := c.cfg.Clock.Now()
	age := now.Sub(time.Unix(env.Timestamp, 0))
	if age > c.cfg.MaxClockSkew || -age > c.cfg.MaxClockSkew {
		return zero, ErrStaleEnvelope
	}

	nonce, err := decodeNonce(env.Nonce)
	if err != nil {
		return zero, err
	}
	if c.replay.seen(nonce) {
		return zero, ErrReplayedEnvelope
	}

	msg, err := envelope.Open[T](c.cipher, env)
	if err != nil {
		return zero, err
	}

	c.replay.record(nonce)
	return msg, nil
}

// Handle is the receive-loop entry point: it opens env and drops failures
// with a security log instead of returning them. The log names the failure
// and the routing fields, never payload bytes.
func (c *Channel[T]) Handle(env envelope.Envelope) (T, bool) {
	msg, err := c.Open(env)
	if err != nil {
		c.cfg.Logger.Warn().
			Str("sender", env.SenderID).
			Str("recipient", env.RecipientID).
			Err(err).
			Msg("dropped envelope")
		var zero T
		return zero, false
	}
	return msg, true
}

// Send seals msg and publishes it through the attached transport.
func (c *Channel[T]) Send(ctx context.Context, msg T) error {
	c.mu.Lock()
	tr := c.transport
	c.mu.Unlock()
	if tr == nil {
		return ErrNoTransport
	}

	env, err := c.Seal(msg)
	if err != nil {
		return err
	}
	return tr.Publish(ctx, env)
}

func decodeNonce(s string) ([crypto.NonceSize]byte, error) {
	var nonce [crypto.NonceSize]byte
	raw, err := envelope.DecodeNonce(s)
	if err != nil {
		return nonce, err
	}
	copy(nonce[:], raw)
	return nonce, nil
}
