package pairlink

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairlink/go-pairlink/pairlink/channel"
	"github.com/pairlink/go-pairlink/pairlink/identity"
	"github.com/pairlink/go-pairlink/pairlink/pairing"
	"github.com/pairlink/go-pairlink/pairlink/relay"
)

var (
	ErrNotConnected     = errors.New("pairlink: not connected to a relay")
	ErrAlreadyConnected = errors.New("pairlink: already connected, close first")
	ErrDisconnected     = errors.New("pairlink: relay connection ended")
)

// Config tunes a device beyond its identity. The zero value uses the
// channel and relay client defaults.
type Config struct {
	// MaxClockSkew and ReplayTTL are forwarded to the channel's receive
	// checks. Zero means the channel defaults.
	MaxClockSkew time.Duration
	ReplayTTL    time.Duration

	// ReceiveBuffer and KeepAlive are forwarded to the relay client.
	ReceiveBuffer int
	KeepAlive     time.Duration

	// Logger receives channel security events and relay connection logs.
	// Nil disables logging.
	Logger *zerolog.Logger
}

// Device is one end of a pairing: a long-lived identity, the encrypted
// channel to its peer and, once connected, the relay client carrying the
// envelopes. T is the application message type.
//
// It intentionally stays small so applications can customize persistence
// and higher-level behavior.
type Device[T any] struct {
	id   identity.DeviceID
	keys identity.KeyPair
	cfg  Config
	ch   *channel.Channel[T]

	mu     sync.Mutex
	client *relay.Client
}

// NewDevice assembles an unpaired, unconnected device from its identity.
func NewDevice[T any](id identity.DeviceID, keys identity.KeyPair, cfg Config) (*Device[T], error) {
	ch, err := channel.New[T](channel.Config{
		LocalID:      id,
		MaxClockSkew: cfg.MaxClockSkew,
		ReplayTTL:    cfg.ReplayTTL,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Device[T]{id: id, keys: keys, cfg: cfg, ch: ch}, nil
}

// ID returns the device's routing identifier.
func (d *Device[T]) ID() identity.DeviceID { return d.id }

// PublicKey returns the identity key shared during pairing.
func (d *Device[T]) PublicKey() identity.PublicKey { return d.keys.Public }

// Fingerprint returns the public key digest users compare out of band.
func (d *Device[T]) Fingerprint() string { return identity.Fingerprint(d.keys.Public) }

// Offer returns the pairing payload this device shows to a peer.
func (d *Device[T]) Offer() pairing.Offer { return pairing.NewOffer(d.id, d.keys.Public) }

// Pair installs a peer from its device ID and public key, for example out
// of a keystore, and derives the session key.
func (d *Device[T]) Pair(peer identity.DeviceID, key identity.PublicKey) error {
	return d.ch.Pair(peer, key, d.keys)
}

// PairWith installs the peer described by a decoded offer.
func (d *Device[T]) PairWith(o pairing.Offer) error {
	key, err := o.Key()
	if err != nil {
		return err
	}
	return d.Pair(identity.DeviceID(o.DeviceID), key)
}

// Unpair discards the pairing and its key material. The relay connection,
// if any, stays up.
func (d *Device[T]) Unpair() { d.ch.Unpair() }

// State reports the pairing state.
func (d *Device[T]) State() channel.State { return d.ch.State() }

// Channel exposes the underlying channel for callers that seal or open
// envelopes themselves, for example to move bulk transfer parts.
func (d *Device[T]) Channel() *channel.Channel[T] { return d.ch }

// Connect dials the relay and announces this device. Envelopes mailboxed
// while the device was offline are delivered on the next Run.
func (d *Device[T]) Connect(ctx context.Context, relayAddr string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client != nil {
		return ErrAlreadyConnected
	}
	client, err := relay.Dial(ctx, relayAddr, d.id, relay.ClientConfig{
		ReceiveBuffer: d.cfg.ReceiveBuffer,
		KeepAlive:     d.cfg.KeepAlive,
		Logger:        d.cfg.Logger,
	})
	if err != nil {
		return err
	}
	d.client = client
	d.ch.Attach(client)
	return nil
}

// Send seals msg for the paired peer and publishes it through the relay.
func (d *Device[T]) Send(ctx context.Context, msg T) error {
	return d.ch.Send(ctx, msg)
}

// Run consumes envelopes from the relay until ctx is cancelled or the
// connection ends, delivering every message that survives the channel's
// checks to handler. Invalid envelopes are dropped and logged, never
// surfaced. When the relay connection ends, including after Close, Run
// returns ErrDisconnected; there is no automatic reconnection, the caller
// decides whether to dial again.
func (d *Device[T]) Run(ctx context.Context, handler func(T)) error {
	d.mu.Lock()
	client := d.client
	d.mu.Unlock()

	if client == nil {
		return ErrNotConnected
	}
	for {
		select {
		case env, ok := <-client.Envelopes():
			if !ok {
				return ErrDisconnected
			}
			if msg, ok := d.ch.Handle(env); ok {
				handler(msg)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close tears down the relay connection. The pairing survives: Connect
// again to resume exchanging messages.
func (d *Device[T]) Close() error {
	d.mu.Lock()
	client := d.client
	d.client = nil
	d.mu.Unlock()

	if client == nil {
		return nil
	}
	d.ch.Attach(nil)
	return client.Close()
}
