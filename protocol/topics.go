package protocol

import (
	"context"

	"github.com/mkrause/junta"
	"github.com/mkrause/junta/service"
)

// SubProtocol, UnsubProtocol, and PubProtocol give the reserved Sub,
// Unsub, and Pub wire slots real behavior (spec §9's open question,
// resolved per SPEC_FULL.md §4.8): a connection joins or leaves a named
// topic, and a Pub fans its value out to every current member of that
// topic via the supplied junta.Topics backend (pubsub.Local or
// connect/redisx.Topics). Compose them into the Chain passed to New
// alongside any RequestProtocol arms via service.OrAll.

// SubProtocol records the calling connection as a member of the topic
// named in a Sub event.
func SubProtocol(topics junta.Topics) Chain {
	return service.CheckFn[*EventContext, struct{}](
		func(ec *EventContext) bool { return ec.Event.Type == EventSub },
		service.Fn(func(ctx context.Context, ec *EventContext) (struct{}, error) {
			if err := topics.Subscribe(ctx, ec.Event.Name, ec.Connection()); err != nil {
				ec.Connection().Logger().Error("sub failed", "topic", ec.Event.Name, "err", err)
			}
			return struct{}{}, nil
		}),
	)
}

// UnsubProtocol removes the calling connection from the topic named in
// an Unsub event.
func UnsubProtocol(topics junta.Topics) Chain {
	return service.CheckFn[*EventContext, struct{}](
		func(ec *EventContext) bool { return ec.Event.Type == EventUnsub },
		service.Fn(func(ctx context.Context, ec *EventContext) (struct{}, error) {
			if err := topics.Unsubscribe(ctx, ec.Event.Name, ec.Connection()); err != nil {
				ec.Connection().Logger().Error("unsub failed", "topic", ec.Event.Name, "err", err)
			}
			return struct{}{}, nil
		}),
	)
}

// PubProtocol fans the value of a Pub event out to every current member
// of its named topic, the sender included — unlike broadcast, Pub does
// not special-case the sender (spec §9: a connection that wants to skip
// its own publishes unsubscribes around the call).
func PubProtocol(topics junta.Topics) Chain {
	return service.CheckFn[*EventContext, struct{}](
		func(ec *EventContext) bool { return ec.Event.Type == EventPub },
		service.Fn(func(ctx context.Context, ec *EventContext) (struct{}, error) {
			msg, err := EncodeEvent(Event{ID: ec.Event.ID, Type: EventPub, Name: ec.Event.Name, Data: ec.Event.Data}, ec.Binary())
			if err != nil {
				return struct{}{}, err
			}
			if err := topics.Publish(ctx, ec.Event.Name, msg); err != nil {
				ec.Connection().Logger().Error("pub failed", "topic", ec.Event.Name, "err", err)
			}
			return struct{}{}, nil
		}),
	)
}
