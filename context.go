package junta

// Context carries one in-flight message through the service/middleware
// pipeline. It pairs the message value (of type I) with the Connection
// it arrived on and the Extensions bag middleware uses to pass state
// downstream — the Go shape of the original server's Context<I>.
type Context[I any] struct {
	conn    *Connection
	ext     *Extensions
	message I
	binary  bool
}

// newContext builds the root Context for a freshly received ClientEvent.
func newContext(conn *Connection, ext *Extensions, message ClientEvent) *Context[ClientEvent] {
	binary := false
	if msg, ok := message.(EventMessage); ok {
		_, binary = msg.Content.(BinaryContent)
	}
	return &Context[ClientEvent]{conn: conn, ext: ext, message: message, binary: binary}
}

// Message returns the value this Context currently carries.
func (c *Context[I]) Message() I { return c.message }

// Connection returns the connection the message arrived on (or, for an
// outbound request context, the connection it will be sent on).
func (c *Context[I]) Connection() *Connection { return c.conn }

// Extensions returns the bag shared by every Context derived from this
// connection.
func (c *Context[I]) Extensions() *Extensions { return c.ext }

// Binary reports whether the original inbound frame for this context was
// a binary (CBOR) frame, as opposed to a text (JSON) frame.
func (c *Context[I]) Binary() bool { return c.binary }

// WithMessage rebuilds ctx around a new message value, of a possibly
// different type, carrying the same Connection and Extensions forward.
// This is how a pipeline stage hands a decoded or transformed value to
// the next stage without losing the connection/extensions that travel
// with the request — the Go equivalent of Context::with_message, which
// Go cannot express as a method since a method can't introduce a new
// type parameter beyond its receiver's.
func WithMessage[I, O any](ctx *Context[I], message O) *Context[O] {
	return &Context[O]{conn: ctx.conn, ext: ctx.ext, message: message, binary: ctx.binary}
}
