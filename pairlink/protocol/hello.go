package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedHello  = errors.New("protocol: malformed hello")
	ErrVersionMismatch = errors.New("protocol: protocol version mismatch")
)

// Hello announces a device to the relay so envelopes can be routed to it.
//
// It is deliberately unsigned: the device ID is routing metadata, not an
// authenticated identity. A forger can at most receive ciphertext it cannot
// decrypt, and the genuine recipient notices missing messages. End-to-end
// authenticity lives entirely in the envelope AEAD.
type Hello struct {
	DeviceID string `json:"device_id"`
	Version  int    `json:"version"`
}

// HelloAck is the relay's reply. Queued reports how many envelopes were
// waiting in the device's mailbox and are about to be delivered.
type HelloAck struct {
	Queued int `json:"queued"`
}

func NewHello(deviceID string) Hello {
	return Hello{DeviceID: deviceID, Version: ProtocolVersion}
}

func EncodeHello(h Hello) ([]byte, error) {
	return json.Marshal(h)
}

func DecodeHello(b []byte) (Hello, error) {
	var h Hello
	if err := json.Unmarshal(b, &h); err != nil {
		return Hello{}, fmt.Errorf("%w: %v", ErrMalformedHello, err)
	}
	if h.DeviceID == "" {
		return Hello{}, ErrMalformedHello
	}
	if h.Version != ProtocolVersion {
		return Hello{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, h.Version, ProtocolVersion)
	}
	return h, nil
}

func EncodeHelloAck(a HelloAck) ([]byte, error) {
	return json.Marshal(a)
}

func DecodeHelloAck(b []byte) (HelloAck, error) {
	var a HelloAck
	if err := json.Unmarshal(b, &a); err != nil {
		return HelloAck{}, fmt.Errorf("%w: %v", ErrMalformedHello, err)
	}
	return a, nil
}
