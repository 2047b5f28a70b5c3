package junta

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mkrause/junta/errs"
)

// MessageContent is the payload of an inbound or outbound application
// message: either a text frame or a binary frame. It mirrors the
// original server's MessageContent enum.
type MessageContent interface{ isMessageContent() }

// TextContent is a UTF-8 text WebSocket frame, encoded/decoded as JSON
// by the protocol layer.
type TextContent string

func (TextContent) isMessageContent() {}

// BinaryContent is a binary WebSocket frame, encoded/decoded as CBOR by
// the protocol layer.
type BinaryContent []byte

func (BinaryContent) isMessageContent() {}

// ClientEvent is one of the three things that can happen on a
// connection: it was just accepted, it delivered a message, or its peer
// closed it. It mirrors the original server's ClientEvent enum.
type ClientEvent interface{ isClientEvent() }

// EventConnect fires once, immediately after a connection is accepted
// and registered.
type EventConnect struct{}

func (EventConnect) isClientEvent() {}

// EventMessage carries one inbound application frame.
type EventMessage struct{ Content MessageContent }

func (EventMessage) isClientEvent() {}

// EventClose fires once a connection's peer has sent a WebSocket close
// frame (or the connection was torn down locally). Reason is nil when
// no close code/text was supplied.
type EventClose struct{ Reason *CloseReason }

func (EventClose) isClientEvent() {}

// CloseReason carries the optional code and text from a WebSocket close
// frame.
type CloseReason struct {
	Code int
	Text string
}

// Connection represents one accepted, registered WebSocket peer. It owns
// an outbound send queue drained by its writer pump (see driver.go) and
// an Extensions bag shared by every Context built for its messages.
type Connection struct {
	ID      uuid.UUID
	addr    net.Addr
	logger  *slog.Logger
	ext     *Extensions
	seq     atomic.Uint64
	outbox  chan MessageContent
	closed  chan struct{}
	once    sync.Once
	reg     *Registry
}

func newConnection(id uuid.UUID, addr net.Addr, logger *slog.Logger, reg *Registry, outboxSize int) *Connection {
	return &Connection{
		ID:     id,
		addr:   addr,
		logger: logger.With(slog.String("conn_id", id.String())),
		ext:    NewExtensions(),
		outbox: make(chan MessageContent, outboxSize),
		closed: make(chan struct{}),
		reg:    reg,
	}
}

// Addr returns the remote address the connection was accepted from.
func (c *Connection) Addr() net.Addr { return c.addr }

// Logger returns the connection-scoped logger, carrying the connection
// id as an attribute.
func (c *Connection) Logger() *slog.Logger { return c.logger }

// Extensions returns the bag shared by every Context derived from this
// connection's messages.
func (c *Connection) Extensions() *Extensions { return c.ext }

// NextSeq returns a monotonically increasing sequence number, used by
// the protocol layer to mint outbound request correlation ids.
func (c *Connection) NextSeq() uint64 { return c.seq.Add(1) }

// Send enqueues msg for delivery to this connection's peer. It does not
// block: if the outbound queue is full, ctx is already cancelled, or the
// connection is closing, it returns a Transport error instead of
// enqueueing msg.
func (c *Connection) Send(ctx context.Context, msg MessageContent) error {
	select {
	case <-c.closed:
		return errs.New(errs.Transport, "connection closed")
	default:
	}
	select {
	case c.outbox <- msg:
		return nil
	case <-c.closed:
		return errs.New(errs.Transport, "connection closed")
	case <-ctx.Done():
		return errs.Wrap(errs.Transport, "send", ctx.Err())
	default:
		return errs.New(errs.Transport, "outbound queue full")
	}
}

// Broadcast sends msg to every other registered connection, grounded on
// the original Client::broadcast (Server::Broadcast::broadcast).
func (c *Connection) Broadcast(ctx context.Context, msg MessageContent) error {
	return c.reg.Broadcast(ctx, c, msg)
}

// SendAll sends msg to every registered connection, including this one.
func (c *Connection) SendAll(ctx context.Context, msg MessageContent) error {
	return c.reg.SendAll(ctx, msg)
}

// Close triggers connection teardown: the writer pump sends a close
// frame and the driver unwinds. Safe to call more than once or
// concurrently.
func (c *Connection) Close() {
	c.once.Do(func() { close(c.closed) })
}

// Done returns a channel closed once the connection has started tearing
// down, so callers outside this package (e.g. package protocol's
// outbound Request) can select on connection closure alongside a
// context deadline.
func (c *Connection) Done() <-chan struct{} { return c.closed }

func (c *Connection) done() <-chan struct{} { return c.Done() }
