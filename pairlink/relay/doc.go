// Package relay implements the minimal untrusted rendezvous point between
// paired devices, and the client devices use to reach it.
//
// The relay routes envelopes by recipient ID over QUIC and buffers a
// bounded mailbox per device while it is offline. It sees routing metadata
// only; payloads are end-to-end encrypted and the relay holds no keys, so a
// compromised relay can drop, delay, duplicate or reorder envelopes but
// never read or forge them. The channel layer defends against exactly that.
//
// Design goals:
//   - One control stream per device, framed (see package protocol)
//   - Live connections get envelopes pushed immediately
//   - Offline recipients get a drop-oldest mailbox, flushed on hello
//   - No delivery guarantees, no reconnection, no persistence
//
// The QUIC layer uses an ephemeral self-signed certificate: it is transport
// armor against casual observers, not an authentication mechanism.
package relay
