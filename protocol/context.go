package protocol

import "github.com/mkrause/junta"

// Context wraps the decoded payload of one Req event alongside the
// underlying connection context, grounded on
// original_source/junta-protocol/src/context.rs's ProtocolContext<I>.
// Handlers registered with RequestProtocol receive one of these instead of the raw
// junta.Context, so they work with their own request/response types
// instead of the wire Event envelope.
type Context[I any] struct {
	jc   *junta.Context[junta.ClientEvent]
	data I
}

// Data returns the decoded request payload.
func (c *Context[I]) Data() I { return c.data }

// Connection returns the connection the message arrived on.
func (c *Context[I]) Connection() *junta.Connection { return c.jc.Connection() }

// Extensions returns the bag shared by every Context on this connection.
func (c *Context[I]) Extensions() *junta.Extensions { return c.jc.Extensions() }

// WithData rebuilds a Context around a differently-typed payload,
// carrying the same connection forward — the Go equivalent of
// ProtocolContext::with_data.
func WithData[I, O any](c *Context[I], data O) *Context[O] {
	return &Context[O]{jc: c.jc, data: data}
}
