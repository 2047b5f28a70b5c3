package protocol

import (
	"context"

	"github.com/mkrause/junta"
	"github.com/mkrause/junta/errs"
)

// Request sends a Req event named name with payload data on conn, then
// blocks until a matching Res arrives, ctx is cancelled, or the
// connection closes. It is the outbound half of the Req/Res protocol
// arm, grounded on context_ext.rs's ContextExt::request, reimplemented
// as a direct blocking call since junta has no futures runtime to box a
// continuation into.
func Request[D any](ctx context.Context, conn *junta.Connection, binary bool, name string, data any) (D, error) {
	var zero D

	table := pendingTableForConn(conn)
	id := conn.NextSeq()
	waiter := table.register(id, name)

	msg, err := EncodeEvent(Event{ID: id, Type: EventReq, Name: name, Data: data}, binary)
	if err != nil {
		table.cancel(id, name)
		return zero, err
	}
	if err := conn.Send(ctx, msg); err != nil {
		table.cancel(id, name)
		return zero, err
	}

	select {
	case result := <-waiter:
		if result.Err != nil {
			return zero, errs.New(errs.InvalidRequest, result.Err.Message)
		}
		return DecodeData[D](Event{Data: result.Ok})
	case <-ctx.Done():
		table.cancel(id, name)
		return zero, errs.Wrap(errs.ReceiverClosed, "request "+name, ctx.Err())
	case <-conn.Done():
		table.cancel(id, name)
		return zero, errs.New(errs.ReceiverClosed, "request "+name+": connection closed")
	}
}
