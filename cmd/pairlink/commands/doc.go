// Package commands defines the pairlink CLI and wires the keystore, pairing
// and relay plumbing for subcommands.
//
// Commands
//
//   - keygen   Create the device identity and keystore
//   - offer    Print the pairing offer to show to a peer
//   - pair     Import a peer's offer and store the pairing
//   - unpair   Forget a stored pairing
//   - send     Encrypt and send a message to the paired peer
//   - recv     Receive and print messages until interrupted
//   - relay    Run the relay daemon
//
// # Implementation
//
// The identity and pairings live in a passphrase-sealed keystore under the
// home directory (--home, default ~/.pairlink). send and recv build a
// short-lived Device around the stored identity, pair it with the chosen
// peer and connect it to the relay named by --relay. The relay daemon takes
// its settings from an optional TOML file.
package commands
