package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/pairlink/go-pairlink/pairlink"
	"github.com/pairlink/go-pairlink/pairlink/identity"
	"github.com/pairlink/go-pairlink/pairlink/keystore"
)

// Message is the application payload the CLI exchanges: a minimal typed
// text message. The channel itself carries any JSON value; richer clients
// define their own type.
type Message struct {
	Type string `json:"type"`
	Body string `json:"body,omitempty"`
}

// resolvePeer picks the pairing to talk to: the named one, or the only one.
func resolvePeer(ks *keystore.Keystore, peerID string) (identity.DeviceID, identity.PublicKey, error) {
	if peerID != "" {
		key, ok := ks.Pairing(identity.DeviceID(peerID))
		if !ok {
			return "", identity.PublicKey{}, fmt.Errorf("no pairing with %q; run pair first", peerID)
		}
		return identity.DeviceID(peerID), key, nil
	}

	pairings := ks.Pairings()
	switch len(pairings) {
	case 0:
		return "", identity.PublicKey{}, errors.New("no pairings in keystore; run pair first")
	case 1:
		key, err := pairings[0].Key()
		if err != nil {
			return "", identity.PublicKey{}, err
		}
		return identity.DeviceID(pairings[0].DeviceID), key, nil
	default:
		return "", identity.PublicKey{}, errors.New("multiple pairings stored; pick one with --peer")
	}
}

// openDevice loads the keystore, pairs a device with the chosen peer and
// connects it to the relay.
func openDevice(ctx context.Context, peerID string) (*pairlink.Device[Message], error) {
	ks, err := loadKeystore()
	if err != nil {
		return nil, err
	}
	peer, key, err := resolvePeer(ks, peerID)
	if err != nil {
		return nil, err
	}

	log := cliLogger()
	dev, err := pairlink.NewDevice[Message](ks.DeviceID(), ks.KeyPair(), pairlink.Config{Logger: &log})
	if err != nil {
		return nil, err
	}
	if err := dev.Pair(peer, key); err != nil {
		return nil, err
	}
	if err := dev.Connect(ctx, relayAddr); err != nil {
		return nil, err
	}
	return dev, nil
}
