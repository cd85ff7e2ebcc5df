// Package pairlink provides an end-to-end encrypted message channel between
// two paired devices, such as a desktop host and the mobile app mirroring
// its state, carried by a relay that is never trusted with plaintext.
//
// Each device owns an X25519 identity (package identity). Pairing exchanges
// public keys out of band (package pairing) and both sides derive the same
// static session key (package crypto). Messages cross the relay as
// authenticated envelopes (package envelope); the receiving side applies
// addressing, freshness and replay checks before decryption (package
// channel). The Device type in this package wires those blocks together for
// the common case; applications needing finer control compose the
// subpackages directly.
package pairlink
