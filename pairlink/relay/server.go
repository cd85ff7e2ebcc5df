package relay

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	q "github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"github.com/pairlink/go-pairlink/pairlink/envelope"
	"github.com/pairlink/go-pairlink/pairlink/protocol"
)

var (
	ErrNotListening = errors.New("relay: server not listening")
)

// ServerConfig tunes the relay daemon.
type ServerConfig struct {
	// Addr is the UDP address to listen on.
	Addr string

	// MailboxSize bounds the per-device offline queue. When full, the
	// oldest envelope is dropped first.
	MailboxSize int

	// HelloTimeout bounds how long a fresh connection may stall before
	// sending its hello.
	HelloTimeout time.Duration

	// MaxIdleTimeout disconnects devices that have gone silent. QUIC
	// keepalives from the client keep healthy connections under it.
	MaxIdleTimeout time.Duration
}

// DefaultServerConfig returns the config the daemon starts from.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           "localhost:7447",
		MailboxSize:    128,
		HelloTimeout:   10 * time.Second,
		MaxIdleTimeout: 2 * time.Minute,
	}
}

func (c *ServerConfig) applyDefaults() {
	d := DefaultServerConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = d.MailboxSize
	}
	if c.HelloTimeout <= 0 {
		c.HelloTimeout = d.HelloTimeout
	}
	if c.MaxIdleTimeout <= 0 {
		c.MaxIdleTimeout = d.MaxIdleTimeout
	}
}

// Server routes envelopes between connected devices and mailboxes them for
// offline ones. It terminates QUIC but never touches envelope ciphertext.
type Server struct {
	cfg ServerConfig
	log zerolog.Logger

	ln *q.Listener

	mu        sync.Mutex
	routes    map[string]*deviceConn
	mailboxes map[string]*mailbox

	wg        sync.WaitGroup
	closed    chan struct{}
	closeOnce sync.Once
}

// deviceConn is one registered device. The write mutex serializes frames
// from the routing path and the mailbox flush onto its stream.
type deviceConn struct {
	id      string
	stream  q.Stream
	writeMu sync.Mutex
}

func (dc *deviceConn) send(f protocol.Frame) error {
	dc.writeMu.Lock()
	defer dc.writeMu.Unlock()
	return protocol.WriteFrame(dc.stream, f)
}

// NewServer creates a relay server. The logger is required; pass
// zerolog.Nop() to silence it.
func NewServer(cfg ServerConfig, log zerolog.Logger) *Server {
	cfg.applyDefaults()
	return &Server{
		cfg:       cfg,
		log:       log,
		routes:    make(map[string]*deviceConn),
		mailboxes: make(map[string]*mailbox),
		closed:    make(chan struct{}),
	}
}

// Listen binds the configured address. Addr is valid afterwards.
func (s *Server) Listen() error {
	tlsConf, err := newServerTLSConfig()
	if err != nil {
		return err
	}
	ln, err := q.ListenAddr(s.cfg.Addr, tlsConf, &q.Config{
		MaxIdleTimeout: s.cfg.MaxIdleTimeout,
	})
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("relay listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts device connections until the context is cancelled or the
// server is closed.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return ErrNotListening
	}
	for {
		conn, err := s.ln.Accept(ctx)
		if err != nil {
			select {
			case <-s.closed:
				return nil
			default:
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Close stops accepting, disconnects every device and waits for the
// per-connection goroutines to finish.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.ln != nil {
			err = s.ln.Close()
		}
		s.wg.Wait()
	})
	return err
}

func (s *Server) handleConn(ctx context.Context, conn q.Connection) {
	defer s.wg.Done()

	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-s.closed:
			conn.CloseWithError(0, "relay shutting down")
		case <-ctx.Done():
			conn.CloseWithError(0, "relay shutting down")
		case <-connDone:
		}
	}()

	remote := conn.RemoteAddr().String()
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		s.log.Debug().Str("remote", remote).Err(err).Msg("no control stream")
		return
	}

	stream.SetReadDeadline(time.Now().Add(s.cfg.HelloTimeout))
	frame, err := protocol.ReadFrame(stream)
	if err != nil || frame.Type != protocol.MessageTypeHello {
		s.log.Warn().Str("remote", remote).Err(err).Msg("connection without hello")
		conn.CloseWithError(1, "hello expected")
		return
	}
	hello, err := protocol.DecodeHello(frame.Payload)
	if err != nil {
		s.log.Warn().Str("remote", remote).Err(err).Msg("bad hello")
		conn.CloseWithError(1, "bad hello")
		return
	}
	stream.SetReadDeadline(time.Time{})

	dc := &deviceConn{id: hello.DeviceID, stream: stream}
	queued := s.register(dc)

	ackPayload, err := protocol.EncodeHelloAck(protocol.HelloAck{Queued: len(queued)})
	if err == nil {
		err = dc.send(protocol.Frame{Type: protocol.MessageTypeHelloAck, Payload: ackPayload})
	}
	if err != nil {
		s.unregister(dc)
		conn.CloseWithError(1, "ack failed")
		return
	}
	for i, env := range queued {
		if err := s.forward(dc, env); err != nil {
			// Put the undelivered tail back; the device will get it on
			// its next hello.
			s.requeue(hello.DeviceID, queued[i:])
			break
		}
	}

	s.log.Info().
		Str("device", hello.DeviceID).
		Str("remote", remote).
		Int("queued", len(queued)).
		Msg("device connected")

readLoop:
	for {
		frame, err := protocol.ReadFrame(stream)
		if err != nil {
			break
		}
		switch frame.Type {
		case protocol.MessageTypeEnvelope:
			env, err := envelope.Decode(frame.Payload)
			if err != nil {
				s.log.Warn().Str("device", hello.DeviceID).Err(err).Msg("dropping malformed envelope")
				continue
			}
			if env.SenderID != hello.DeviceID {
				s.log.Warn().
					Str("device", hello.DeviceID).
					Str("claimed_sender", env.SenderID).
					Msg("dropping envelope with spoofed sender")
				continue
			}
			s.route(env)
		case protocol.MessageTypeClose:
			break readLoop
		default:
			s.log.Warn().Str("device", hello.DeviceID).Stringer("type", frame.Type).Msg("unexpected frame")
		}
	}

	s.unregister(dc)
	conn.CloseWithError(0, "bye")
	s.log.Info().Str("device", hello.DeviceID).Msg("device disconnected")
}

// register installs dc as the live route for its device and takes over any
// mailbox contents. A newer connection for the same ID replaces the old
// route; the stale goroutine unregisters itself without effect.
func (s *Server) register(dc *deviceConn) []envelope.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[dc.id] = dc
	if mb := s.mailboxes[dc.id]; mb != nil {
		return mb.drain()
	}
	return nil
}

func (s *Server) unregister(dc *deviceConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.routes[dc.id] == dc {
		delete(s.routes, dc.id)
	}
}

// route delivers env to a live recipient or its mailbox.
func (s *Server) route(env envelope.Envelope) {
	s.mu.Lock()
	dc := s.routes[env.RecipientID]
	s.mu.Unlock()

	if dc != nil {
		if err := s.forward(dc, env); err == nil {
			return
		}
	}
	s.enqueue(env)
}

func (s *Server) forward(dc *deviceConn, env envelope.Envelope) error {
	payload, err := envelope.Encode(env)
	if err != nil {
		return err
	}
	return dc.send(protocol.Frame{Type: protocol.MessageTypeEnvelope, Payload: payload})
}

func (s *Server) enqueue(env envelope.Envelope) {
	s.mu.Lock()
	mb := s.mailboxes[env.RecipientID]
	if mb == nil {
		mb = newMailbox(s.cfg.MailboxSize)
		s.mailboxes[env.RecipientID] = mb
	}
	dropped := mb.push(env)
	s.mu.Unlock()

	if dropped {
		s.log.Warn().Str("recipient", env.RecipientID).Msg("mailbox full, dropped oldest envelope")
	}
}

func (s *Server) requeue(deviceID string, envs []envelope.Envelope) {
	s.mu.Lock()
	mb := s.mailboxes[deviceID]
	if mb == nil {
		mb = newMailbox(s.cfg.MailboxSize)
		s.mailboxes[deviceID] = mb
	}
	for _, env := range envs {
		mb.push(env)
	}
	s.mu.Unlock()
}
