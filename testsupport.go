package junta

import (
	"io"
	"log/slog"
)

// NewTestConnection builds a Connection registered in reg with a
// discarding logger and no underlying transport, for use by this
// package's own tests and by other packages in this module (protocol,
// pubsub) that need a Connection to exercise Send/Broadcast/Extensions
// without a real WebSocket handshake.
func NewTestConnection(reg *Registry) *Connection {
	conn := newConnection(newConnectionID(), nil, discardLogger(), reg, defaultOutboxSize)
	reg.add(conn)
	return conn
}

// NewTestContext builds a root Context around event for conn, for tests
// exercising a handler or protocol arm directly instead of driving a
// real connection through its I/O loop.
func NewTestContext(conn *Connection, event ClientEvent) *Context[ClientEvent] {
	return newContext(conn, conn.ext, event)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Outbox exposes the connection's outbound queue for tests that want to
// assert what a Send/Broadcast/SendAll call enqueued, without driving a
// real writer pump.
func (c *Connection) Outbox() <-chan MessageContent { return c.outbox }
