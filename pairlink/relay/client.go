package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	q "github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"github.com/pairlink/go-pairlink/pairlink/envelope"
	"github.com/pairlink/go-pairlink/pairlink/identity"
	"github.com/pairlink/go-pairlink/pairlink/protocol"
)

var (
	ErrClientClosed      = errors.New("relay: client closed")
	ErrUnexpectedMessage = errors.New("relay: unexpected message from relay")
)

// ClientConfig tunes a device's relay connection.
type ClientConfig struct {
	// ReceiveBuffer is the capacity of the Envelopes channel. A full
	// buffer applies backpressure to the relay stream instead of dropping.
	ReceiveBuffer int

	// KeepAlive keeps an idle connection open under the relay's idle
	// timeout.
	KeepAlive time.Duration

	// Logger receives connection events. Nil disables logging.
	Logger *zerolog.Logger
}

// DefaultClientConfig returns the config Dial starts from.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReceiveBuffer: 32,
		KeepAlive:     15 * time.Second,
	}
}

// Client is a device's connection to the relay. It implements the
// channel Transport interface via Publish. There is no automatic
// reconnection; when the connection drops, Envelopes is closed and the
// caller dials again.
type Client struct {
	deviceID identity.DeviceID
	conn     q.Connection
	stream   q.Stream
	log      *zerolog.Logger

	writeMu sync.Mutex
	envs    chan envelope.Envelope
	queued  int

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to the relay, announces deviceID and waits for the relay's
// ack. Envelopes queued while the device was offline are delivered on the
// Envelopes channel right after.
func Dial(ctx context.Context, addr string, deviceID identity.DeviceID, cfg ClientConfig) (*Client, error) {
	if err := deviceID.Validate(); err != nil {
		return nil, err
	}
	d := DefaultClientConfig()
	if cfg.ReceiveBuffer <= 0 {
		cfg.ReceiveBuffer = d.ReceiveBuffer
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = d.KeepAlive
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}

	tlsConf, err := newClientTLSConfig()
	if err != nil {
		return nil, err
	}
	conn, err := q.DialAddr(ctx, addr, tlsConf, &q.Config{
		KeepAlivePeriod: cfg.KeepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("relay: dial %s: %w", addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(1, "no stream")
		return nil, err
	}

	helloPayload, err := protocol.EncodeHello(protocol.NewHello(string(deviceID)))
	if err != nil {
		conn.CloseWithError(1, "bad hello")
		return nil, err
	}
	if err := protocol.WriteFrame(stream, protocol.Frame{Type: protocol.MessageTypeHello, Payload: helloPayload}); err != nil {
		conn.CloseWithError(1, "hello failed")
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		stream.SetReadDeadline(deadline)
	}
	frame, err := protocol.ReadFrame(stream)
	if err != nil {
		conn.CloseWithError(1, "no ack")
		return nil, err
	}
	stream.SetReadDeadline(time.Time{})
	if frame.Type != protocol.MessageTypeHelloAck {
		conn.CloseWithError(1, "no ack")
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessage, frame.Type)
	}
	ack, err := protocol.DecodeHelloAck(frame.Payload)
	if err != nil {
		conn.CloseWithError(1, "bad ack")
		return nil, err
	}

	c := &Client{
		deviceID: deviceID,
		conn:     conn,
		stream:   stream,
		log:      cfg.Logger,
		envs:     make(chan envelope.Envelope, cfg.ReceiveBuffer),
		queued:   ack.Queued,
		closed:   make(chan struct{}),
	}
	go c.receiveLoop()

	c.log.Info().Str("device", string(deviceID)).Str("relay", addr).Int("queued", ack.Queued).Msg("connected to relay")
	return c, nil
}

// DeviceID returns the identifier announced to the relay.
func (c *Client) DeviceID() identity.DeviceID { return c.deviceID }

// Queued reports how many envelopes were waiting at the relay when this
// client connected. They are delivered on Envelopes first.
func (c *Client) Queued() int { return c.queued }

// Envelopes delivers incoming envelopes in arrival order. The channel is
// closed when the connection ends; envelopes on it are unvalidated relay
// input and must go through the channel's Open or Handle.
func (c *Client) Envelopes() <-chan envelope.Envelope { return c.envs }

// Publish sends env to the relay for routing. It implements the channel
// Transport interface.
func (c *Client) Publish(ctx context.Context, env envelope.Envelope) error {
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}

	payload, err := envelope.Encode(env)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		c.stream.SetWriteDeadline(deadline)
		defer c.stream.SetWriteDeadline(time.Time{})
	}
	return protocol.WriteFrame(c.stream, protocol.Frame{Type: protocol.MessageTypeEnvelope, Payload: payload})
}

// Close tells the relay goodbye and tears the connection down. Envelopes is
// closed as a consequence.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		_ = protocol.WriteFrame(c.stream, protocol.Frame{Type: protocol.MessageTypeClose})
		c.writeMu.Unlock()
		err = c.conn.CloseWithError(0, "client closed")
	})
	return err
}

func (c *Client) receiveLoop() {
	defer close(c.envs)
	for {
		frame, err := protocol.ReadFrame(c.stream)
		if err != nil {
			select {
			case <-c.closed:
			default:
				c.log.Debug().Err(err).Msg("relay connection ended")
			}
			return
		}
		switch frame.Type {
		case protocol.MessageTypeEnvelope:
			env, err := envelope.Decode(frame.Payload)
			if err != nil {
				c.log.Warn().Err(err).Msg("dropping malformed envelope from relay")
				continue
			}
			select {
			case c.envs <- env:
			case <-c.closed:
				return
			}
		case protocol.MessageTypeClose:
			return
		default:
			c.log.Warn().Stringer("type", frame.Type).Msg("unexpected frame from relay")
		}
	}
}
