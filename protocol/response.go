package protocol

import "context"

// responseProtocol matches an inbound Res event against the calling
// connection's pending-request table and wakes the waiter, grounded on
// response_protocol.rs's ResponseProtocol::call.
type responseProtocol struct{}

// NewResponseProtocol returns the arm New always installs ahead of the
// user chain, per spec §4.4/§4.6.
func NewResponseProtocol() Chain { return responseProtocol{} }

func (responseProtocol) ShouldCall(ec *EventContext) bool {
	if ec.Event.Type != EventRes {
		return false
	}
	table := pendingTableFor(ec)
	return table.has(ec.Event.ID, ec.Event.Name)
}

func (responseProtocol) Call(_ context.Context, ec *EventContext) (struct{}, error) {
	table := pendingTableFor(ec)
	result := ResResult{}
	if ec.Event.Result != nil {
		result = *ec.Event.Result
	}
	// resolve re-checks the (id, name) pair under the table's own lock:
	// if the waiter was cancelled between ShouldCall and here (the
	// requester gave up), resolve reports false and this is a no-op, per
	// spec §4.6 step 4 — not an error.
	if !table.resolve(ec.Event.ID, ec.Event.Name, result) {
		ec.Connection().Logger().Debug("response: no waiter for event", "id", ec.Event.ID, "name", ec.Event.Name)
	}
	return struct{}{}, nil
}

func pendingTableFor(ec *EventContext) *PendingTable {
	return pendingTableForConn(ec.Connection())
}
