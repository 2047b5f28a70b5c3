package protocol

import (
	"sync"

	"github.com/mkrause/junta"
)

// pendingTableForConn returns (lazily installing if absent) the
// per-connection pending-request table, the single shared instance both
// ctx.Request and responseProtocol mutate.
func pendingTableForConn(conn *junta.Connection) *PendingTable {
	return junta.GetOrSet(conn.Extensions(), func() *PendingTable { return NewPendingTable() })
}

// pendingKey identifies one outstanding outbound request by the
// correlation id the sender minted and the request name it was sent
// under — a response only resolves a waiter if both match, grounded on
// response_protocol.rs's listener lookup (`m.id == ... && m.name == ...`).
type pendingKey struct {
	id   uint64
	name string
}

// PendingTable correlates outbound Req events with their eventual Res,
// one per connection. It is installed lazily into a Connection's
// Extensions bag by pendingTableForConn, mirroring the original's
// State<ListenerList> plugin injected via junta-persist middleware.
type PendingTable struct {
	mu    sync.Mutex
	waits map[pendingKey]chan ResResult
}

// NewPendingTable returns an empty table.
func NewPendingTable() *PendingTable {
	return &PendingTable{waits: make(map[pendingKey]chan ResResult)}
}

// register opens a one-shot waiter for (id, name). The returned channel
// receives exactly one ResResult once resolve is called for the same
// key, or is never sent to if the caller abandons it via cancel.
func (t *PendingTable) register(id uint64, name string) chan ResResult {
	ch := make(chan ResResult, 1)
	t.mu.Lock()
	t.waits[pendingKey{id, name}] = ch
	t.mu.Unlock()
	return ch
}

// cancel removes a waiter without resolving it, used once a Request
// caller gives up (context cancelled, timeout).
func (t *PendingTable) cancel(id uint64, name string) {
	t.mu.Lock()
	delete(t.waits, pendingKey{id, name})
	t.mu.Unlock()
}

// resolve delivers result to the waiter registered for (id, name), if
// any, and reports whether one was found.
func (t *PendingTable) resolve(id uint64, name string, result ResResult) bool {
	t.mu.Lock()
	key := pendingKey{id, name}
	ch, ok := t.waits[key]
	if ok {
		delete(t.waits, key)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- result
	return true
}

// has reports whether a waiter is currently registered for (id, name),
// used by ResponseProtocol's check to decide whether it claims an
// inbound Res event.
func (t *PendingTable) has(id uint64, name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.waits[pendingKey{id, name}]
	return ok
}
