package session

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ragnet-project/ragnet/internal/epoch"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/metrics"
	"github.com/ragnet-project/ragnet/internal/util"
)

const (
	dialTimeout = 30 * time.Second
	readTimeout = 90 * time.Second

	// maxVarFrame bounds variable frames; the length word is 16-bit so
	// nothing larger can be legal.
	maxVarFrame = 0xffff
)

// MalformedPolicy decides what a Conn does with a frame that matched a
// known opcode but failed to decode.
type MalformedPolicy int

const (
	// PolicyDrop discards the malformed frame and keeps reading.
	PolicyDrop MalformedPolicy = iota
	// PolicyDisconnect tears the connection down on the first
	// malformed frame.
	PolicyDisconnect
)

// ParsePolicy converts the config form ("drop", "disconnect").
func ParsePolicy(s string) (MalformedPolicy, error) {
	switch s {
	case "", "drop":
		return PolicyDrop, nil
	case "disconnect":
		return PolicyDisconnect, nil
	}
	return 0, fmt.Errorf("session: unknown malformed-frame policy %q", s)
}

func (p MalformedPolicy) String() string {
	if p == PolicyDisconnect {
		return "disconnect"
	}
	return "drop"
}

// Info is a point-in-time snapshot of a connection for status surfaces.
type Info struct {
	Name       string    `json:"name"`
	Remote     string    `json:"remote"`
	Connected  bool      `json:"connected"`
	Bound      bool      `json:"bound"`
	Epoch      string    `json:"epoch,omitempty"`
	Frames     uint64    `json:"frames"`
	Sent       uint64    `json:"sent"`
	Unknown    uint64    `json:"unknown_opcodes"`
	Malformed  uint64    `json:"malformed_frames"`
	LastFrame  time.Time `json:"last_frame"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Conn owns one logical game-server connection: login, character
// select, or map. It starts Unbound; Bind installs the negotiated
// epoch's dispatch table exactly once, and the binding holds for the
// connection's whole lifetime. One goroutine runs the read loop;
// frames are dispatched strictly in arrival order.
type Conn struct {
	mu sync.Mutex

	name   string
	policy MalformedPolicy
	logger zerolog.Logger
	bus    *events.Bus

	tcp        net.Conn
	dispatcher Dispatcher
	framer     epoch.Framer

	frames      uint64
	sent        uint64
	unknown     uint64
	malformed   uint64
	lastFrame   time.Time
	connectedAt time.Time
	closed      bool
}

// Dial opens a TCP connection to a game server. The connection starts
// Unbound; callers must Bind before Run.
func Dial(ctx context.Context, name, addr string, policy MalformedPolicy) (*Conn, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	tcp, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("session: dial %s server at %s: %w", name, addr, err)
	}
	c := newConn(name, tcp, policy)
	c.logger.Info().Str("addr", addr).Msg("connected")
	return c, nil
}

// NewConn wraps an established transport, for tests and for callers
// that manage dialing themselves.
func NewConn(name string, tcp net.Conn, policy MalformedPolicy) *Conn {
	return newConn(name, tcp, policy)
}

func newConn(name string, tcp net.Conn, policy MalformedPolicy) *Conn {
	return &Conn{
		name:        name,
		policy:      policy,
		logger:      util.SessionLogger(name),
		tcp:         tcp,
		connectedAt: time.Now(),
	}
}

// AttachBus wires the connection to an event bus. Lifecycle
// transitions and dispatch anomalies are published there in addition
// to logs and counters. A nil bus keeps the connection silent.
func (c *Conn) AttachBus(bus *events.Bus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bus = bus
}

// emit publishes on the attached bus, if any.
func (c *Conn) emit(t events.EventType, payload interface{}) {
	c.mu.Lock()
	bus := c.bus
	c.mu.Unlock()
	if bus == nil {
		return
	}
	bus.Emit(context.Background(), events.Event{Type: t, Source: c.name, Payload: payload})
}

// Bind installs the negotiated epoch's receiver. It succeeds exactly
// once per connection; the Unbound to Bound transition is
// irreversible.
func Bind[H any](c *Conn, cat *epoch.Catalog[H], handlers H) error {
	c.mu.Lock()
	if c.dispatcher != nil {
		c.mu.Unlock()
		return ErrAlreadyBound
	}
	c.dispatcher = NewReceiver(cat, handlers)
	c.framer = cat
	var remote string
	if c.tcp != nil {
		remote = c.tcp.RemoteAddr().String()
	}
	c.mu.Unlock()

	c.logger.Info().Str("epoch", cat.ID().String()).Msg("bound to epoch")
	c.emit(events.EventSessionBound, events.SessionPayload{
		Conn:   c.name,
		Remote: remote,
		Epoch:  cat.ID().String(),
		At:     time.Now(),
	})
	return nil
}

// Bound reports whether the epoch has been negotiated.
func (c *Conn) Bound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatcher != nil
}

// Epoch returns the bound epoch, or false while Unbound.
func (c *Conn) Epoch() (epoch.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher == nil {
		return 0, false
	}
	return c.dispatcher.Epoch(), true
}

// Name returns the connection's session label.
func (c *Conn) Name() string { return c.name }

// Info returns a snapshot for status surfaces.
func (c *Conn) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	info := Info{
		Name:        c.name,
		Connected:   !c.closed && c.tcp != nil,
		Bound:       c.dispatcher != nil,
		Frames:      c.frames,
		Sent:        c.sent,
		Unknown:     c.unknown,
		Malformed:   c.malformed,
		LastFrame:   c.lastFrame,
		ConnectedAt: c.connectedAt,
	}
	if c.tcp != nil {
		info.Remote = c.tcp.RemoteAddr().String()
	}
	if c.dispatcher != nil {
		info.Epoch = c.dispatcher.Epoch().String()
	}
	return info
}

// Send writes one opcode-prefixed frame to the wire. Outbound frames
// come from the bound epoch's constructors, so the type system already
// guarantees they match the negotiated revision.
func (c *Conn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.tcp == nil {
		return ErrClosed
	}
	if _, err := c.tcp.Write(frame); err != nil {
		return fmt.Errorf("session: send on %s: %w", c.name, err)
	}
	c.sent++
	metrics.FramesSent.WithLabelValues(c.name).Inc()
	return nil
}

// Run reads frames until the context is cancelled, the peer closes, or
// the malformed policy tears the connection down. It returns nil on a
// clean shutdown and the terminal error otherwise. Run requires a
// bound connection.
func (c *Conn) Run(ctx context.Context) error {
	c.mu.Lock()
	d, f := c.dispatcher, c.framer
	tcp := c.tcp
	c.mu.Unlock()
	if d == nil {
		return ErrNotBound
	}

	// Unblock the read loop on cancellation.
	stop := context.AfterFunc(ctx, func() { tcp.SetReadDeadline(time.Now()) })
	defer stop()

	br := bufio.NewReader(tcp)
	for {
		frame, err := readFrame(br, f)
		if err != nil {
			if ctx.Err() != nil {
				c.Close()
				return nil
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info().Msg("server closed connection")
				c.Close()
				return nil
			}
			var unknown *UnknownOpcodeError
			if errors.As(err, &unknown) {
				c.mu.Lock()
				c.unknown++
				c.mu.Unlock()
				metrics.UnknownOpcodes.WithLabelValues(c.name).Inc()
				c.emit(events.EventUnknownOpcode, events.UnknownOpcodePayload{
					Conn:   c.name,
					Epoch:  unknown.Epoch.String(),
					Opcode: unknown.Opcode,
				})
			}
			c.logger.Error().Err(err).Msg("read loop terminated")
			c.Close()
			return err
		}

		c.mu.Lock()
		c.frames++
		c.lastFrame = time.Now()
		c.mu.Unlock()
		metrics.FramesReceived.WithLabelValues(c.name, d.Epoch().String()).Inc()

		if err := d.Dispatch(frame); err != nil {
			if fatal := c.handleDispatchError(err); fatal {
				c.Close()
				return err
			}
		}
	}
}

// handleDispatchError applies the per-condition policy and reports
// whether the error is fatal for the connection.
func (c *Conn) handleDispatchError(err error) bool {
	var unknown *UnknownOpcodeError
	if errors.As(err, &unknown) {
		c.mu.Lock()
		c.unknown++
		c.mu.Unlock()
		metrics.UnknownOpcodes.WithLabelValues(c.name).Inc()
		c.logger.Warn().
			Str("opcode", fmt.Sprintf("0x%04x", unknown.Opcode)).
			Str("epoch", unknown.Epoch.String()).
			Msg("unknown opcode, frame dropped")
		c.emit(events.EventUnknownOpcode, events.UnknownOpcodePayload{
			Conn:   c.name,
			Epoch:  unknown.Epoch.String(),
			Opcode: unknown.Opcode,
		})
		return false
	}

	var malformed *MalformedFrameError
	if errors.As(err, &malformed) {
		c.mu.Lock()
		c.malformed++
		c.mu.Unlock()
		metrics.MalformedFrames.WithLabelValues(c.name).Inc()
		c.logger.Error().
			Err(malformed.Err).
			Str("packet", malformed.Name).
			Str("opcode", fmt.Sprintf("0x%04x", malformed.Opcode)).
			Str("policy", c.policy.String()).
			Msg("malformed frame")
		c.emit(events.EventMalformedFrame, events.MalformedFramePayload{
			Conn:   c.name,
			Epoch:  malformed.Epoch.String(),
			Opcode: malformed.Opcode,
			Packet: malformed.Name,
			Reason: malformed.Err.Error(),
		})
		return c.policy == PolicyDisconnect
	}

	// Anything else is a programming error in a handler; surface it.
	c.logger.Error().Err(err).Msg("dispatch failed")
	return true
}

// readFrame reads one complete frame: the leading opcode, then exactly
// the bytes its size rule demands. An opcode the framer cannot size is
// a protocol desync, fatal at this layer because the frame boundary is
// unknowable.
func readFrame(br *bufio.Reader, f epoch.Framer) ([]byte, error) {
	var head [2]byte
	if _, err := io.ReadFull(br, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	opcode := binary.LittleEndian.Uint16(head[:])

	size, ok := f.FrameSize(opcode)
	if !ok {
		return nil, fmt.Errorf("session: cannot delimit frame, stream desynchronized: %w",
			&UnknownOpcodeError{Epoch: f.ID(), Opcode: opcode})
	}

	if size == epoch.SizeVariable {
		var lw [2]byte
		if _, err := io.ReadFull(br, lw[:]); err != nil {
			return nil, fmt.Errorf("session: reading length word for 0x%04x: %w", opcode, err)
		}
		total := int(binary.LittleEndian.Uint16(lw[:]))
		if total < 4 || total > maxVarFrame {
			return nil, fmt.Errorf("session: invalid frame length %d for 0x%04x", total, opcode)
		}
		frame := make([]byte, total)
		copy(frame, head[:])
		copy(frame[2:], lw[:])
		if _, err := io.ReadFull(br, frame[4:]); err != nil {
			return nil, fmt.Errorf("session: reading variable frame 0x%04x: %w", opcode, err)
		}
		return frame, nil
	}

	frame := make([]byte, size)
	copy(frame, head[:])
	if _, err := io.ReadFull(br, frame[2:]); err != nil {
		return nil, fmt.Errorf("session: reading fixed frame 0x%04x: %w", opcode, err)
	}
	return frame, nil
}

// Keepalive sends frames built by buildFrame every interval until the
// context is cancelled or the connection closes. The frame builder
// receives a monotonic client tick.
func (c *Conn) Keepalive(ctx context.Context, interval time.Duration, buildFrame func(tick uint32) []byte) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick := uint32(time.Since(start) / time.Millisecond)
			if err := c.Send(buildFrame(tick)); err != nil {
				if !errors.Is(err, ErrClosed) {
					c.logger.Warn().Err(err).Msg("keepalive send failed")
				}
				return
			}
			c.logger.Trace().Uint32("tick", tick).Msg("keepalive sent")
		}
	}
}

// Close shuts the transport down. Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.tcp != nil {
		c.tcp.Close()
	}
	c.logger.Info().Msg("disconnected")
}
