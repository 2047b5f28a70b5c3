package protocol

import (
	"context"

	"github.com/mkrause/junta/service"
)

// RequestHandler is the user-supplied callback for one named Req arm. It
// receives the decoded request payload (and the connection it arrived
// on, via rc) and returns the value to encode as Res(name, Ok(...)), or
// an error encoded as Res(name, Err{code: 0, message: err.Error()}).
type RequestHandler[D, R any] func(ctx context.Context, rc *Context[D]) (R, error)

// RequestProtocol implements one named Req arm, the lightweight
// name-based router described in spec §4.5: should_call matches on
// (Req, name), and a match decodes the payload, calls handle, and sends
// the resulting Res back symmetrically (binary in, binary out). Multiple
// arms compose via service.OrAll into the Chain passed to New.
func RequestProtocol[D, R any](name string, handle RequestHandler[D, R]) Chain {
	return service.CheckFn[*EventContext, struct{}](
		func(ec *EventContext) bool {
			return ec.Event.Type == EventReq && ec.Event.Name == name
		},
		service.Fn(func(ctx context.Context, ec *EventContext) (struct{}, error) {
			data, err := DecodeData[D](ec.Event)
			if err != nil {
				return replyErr(ctx, ec, name, err)
			}
			rc := &Context[D]{jc: ec.jc, data: data}
			result, err := handle(ctx, rc)
			if err != nil {
				return replyErr(ctx, ec, name, err)
			}
			return replyOk(ctx, ec, name, result)
		}),
	)
}

func replyOk(ctx context.Context, ec *EventContext, name string, value any) (struct{}, error) {
	return reply(ctx, ec, name, ResResult{Ok: value})
}

func replyErr(ctx context.Context, ec *EventContext, name string, cause error) (struct{}, error) {
	return reply(ctx, ec, name, ResResult{Err: &ResError{Code: 0, Message: cause.Error()}})
}

func reply(ctx context.Context, ec *EventContext, name string, result ResResult) (struct{}, error) {
	ev := Event{ID: ec.Event.ID, Type: EventRes, Name: name, Result: &result}
	msg, err := EncodeEvent(ev, ec.Binary())
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, ec.Connection().Send(ctx, msg)
}
