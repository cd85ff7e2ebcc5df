// Package protocol defines the framing and control messages spoken between
// a device and the relay. Envelope payloads are opaque at this layer; the
// relay routes them without decrypting.
package protocol

// ProtocolVersion is bumped on incompatible wire changes.
const ProtocolVersion = 1

type MessageType uint8

const (
	MessageTypeHello    MessageType = 1
	MessageTypeHelloAck MessageType = 2
	MessageTypeEnvelope MessageType = 3
	MessageTypeClose    MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeHello:
		return "HELLO"
	case MessageTypeHelloAck:
		return "HELLO_ACK"
	case MessageTypeEnvelope:
		return "ENVELOPE"
	case MessageTypeClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}
