package relay

import "github.com/pairlink/go-pairlink/pairlink/envelope"

// mailbox buffers envelopes for a device that is currently offline. It is
// bounded: when full, the oldest envelope is dropped first. The relay is
// best effort by design; end-to-end loss recovery belongs to the devices.
// The server's lock guards all access.
type mailbox struct {
	envs []envelope.Envelope
	max  int
}

func newMailbox(max int) *mailbox {
	return &mailbox{max: max}
}

// push appends env, evicting the oldest entry when the box is full.
// It reports whether an envelope was dropped.
func (m *mailbox) push(env envelope.Envelope) bool {
	dropped := false
	if len(m.envs) >= m.max {
		copy(m.envs, m.envs[1:])
		m.envs = m.envs[:len(m.envs)-1]
		dropped = true
	}
	m.envs = append(m.envs, env)
	return dropped
}

// drain returns all buffered envelopes in arrival order and empties the box.
func (m *mailbox) drain() []envelope.Envelope {
	out := m.envs
	m.envs = nil
	return out
}

func (m *mailbox) len() int { return len(m.envs) }
