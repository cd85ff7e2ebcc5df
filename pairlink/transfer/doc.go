// Package transfer moves payloads too large for a single envelope across
// the relay as a set of independent parts, and survives the relay dropping
// some of them.
//
// Key features:
//   - LZ4 compression of the payload when it actually shrinks it
//   - Reed-Solomon erasure coding: any DataShards of the
//     DataShards+ParityShards parts reconstruct the payload, so up to
//     ParityShards lost envelopes cost nothing
//   - SHA-256 digest verification of the reassembled payload
//   - A Collector that tolerates duplicates and reordering and evicts
//     transfers that never complete
//
// Parts are plain JSON values; the caller seals each one into its own
// encrypted envelope, so the relay sees transfer structure no more than it
// sees message contents.
package transfer
