package protocol

import (
	"context"

	"github.com/mkrause/junta"
	"github.com/mkrause/junta/service"
)

// EventContext carries one decoded Event alongside the junta.Context it
// arrived in — the Go shape of the design's ChildContext<ClientEvent,
// Event>: the protocol service decodes the wire frame exactly once and
// hands the typed Event down the inner pipeline instead of raw bytes.
type EventContext struct {
	jc    *junta.Context[junta.ClientEvent]
	Event Event
}

// Connection returns the connection the event arrived on.
func (ec *EventContext) Connection() *junta.Connection { return ec.jc.Connection() }

// Extensions returns the bag shared by every Context on this connection.
func (ec *EventContext) Extensions() *junta.Extensions { return ec.jc.Extensions() }

// Binary reports whether the originating frame was binary (CBOR), so a
// reply can be encoded symmetrically.
func (ec *EventContext) Binary() bool { return ec.jc.Binary() }

// NewEventContext builds an EventContext directly, for tests exercising
// a single protocol arm's ShouldCall/Call without routing a frame
// through New's decode step.
func NewEventContext(jc *junta.Context[junta.ClientEvent], ev Event) *EventContext {
	return &EventContext{jc: jc, Event: ev}
}

// Chain is the type every protocol arm (request, response, sub, unsub,
// pub) and every composition of them (service.Or, service.OrAll)
// satisfies — one should_call-gated stage of the inner pipeline spec
// §4.4 describes.
type Chain = service.Service[*EventContext, struct{}]

// New builds a junta.Handler from a user-supplied Chain of protocol
// arms, grounded on protocol_service.rs's ProtocolService::call:
//
//  1. Non-Message ClientEvents (Connect, Close) resolve immediately —
//     the protocol layer has nothing to decode for them.
//  2. Message events are decoded as an Event, CBOR if the frame was
//     binary else JSON; a decode failure makes the handler's ShouldCall
//     return false, so the frame falls through silently rather than
//     tearing the connection down. Call on such a frame logs it at debug
//     level and resolves Ok.
//  3. The decoded Event is wrapped as an EventContext and dispatched
//     through ResponseProtocol first, then userChain — the "always
//     ResponseProtocol ⊕ user-supplied ProtocolChain" pipeline the
//     design mandates, so a Res frame is matched against the pending
//     table before any user Req/Sub/Unsub/Pub arm gets a look.
//
// The pending-request table ResponseProtocol and ctx.Request both read
// is installed lazily via junta.GetOrSet the first time either side
// touches it — the Go equivalent of the design's PersistMiddleware,
// without a literal middleware stage, since Extensions already grows
// lazily and per-connection.
func New(userChain Chain) junta.Handler {
	inner := service.Or[*EventContext, struct{}](NewResponseProtocol(), userChain)

	return service.CheckFn[*junta.Context[junta.ClientEvent], struct{}](
		func(jc *junta.Context[junta.ClientEvent]) bool {
			msg, ok := jc.Message().(junta.EventMessage)
			if !ok {
				return true
			}
			_, err := DecodeEvent(msg.Content)
			return err == nil
		},
		service.Fn(func(ctx context.Context, jc *junta.Context[junta.ClientEvent]) (struct{}, error) {
			msg, ok := jc.Message().(junta.EventMessage)
			if !ok {
				return struct{}{}, nil
			}
			ev, err := DecodeEvent(msg.Content)
			if err != nil {
				jc.Connection().Logger().Debug("protocol: dropping undecodable message", "err", err)
				return struct{}{}, nil
			}
			return inner.Call(ctx, &EventContext{jc: jc, Event: ev})
		}),
	)
}
