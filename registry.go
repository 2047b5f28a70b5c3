package junta

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry is the live set of accepted connections, grounded on the
// original server's ClientList (Arc<RwLock<HashMap<Uuid, Arc<Client>>>>).
// It also implements the fan-out operations the original Broadcast trait
// exposed on top of that map.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Connection
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]*Connection)}
}

func (r *Registry) add(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

func (r *Registry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Get looks up a connection by id.
func (r *Registry) Get(id uuid.UUID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Len reports how many connections are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Each calls fn once per registered connection, holding the registry's
// read lock for the duration. fn must not block on the connection it is
// given, or it will stall every other Each/SendAll/Broadcast caller.
func (r *Registry) Each(fn func(*Connection)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conns {
		fn(c)
	}
}

// SendAll enqueues msg for delivery to every registered connection,
// grounded on Broadcast::send_all. Per-connection failures are logged,
// not propagated; the call always resolves Ok.
func (r *Registry) SendAll(ctx context.Context, msg MessageContent) error {
	return r.sendTo(ctx, msg, nil)
}

// Broadcast enqueues msg for delivery to every registered connection
// except skip, grounded on Broadcast::broadcast (Client::broadcast).
// Per-connection failures are logged, not propagated; the call always
// resolves Ok.
func (r *Registry) Broadcast(ctx context.Context, skip *Connection, msg MessageContent) error {
	return r.sendTo(ctx, msg, skip)
}

func (r *Registry) sendTo(ctx context.Context, msg MessageContent, skip *Connection) error {
	r.mu.RLock()
	targets := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		if skip != nil && c.ID == skip.ID {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(ctx, msg); err != nil {
			c.Logger().Error("fanout send failed", "err", err)
		}
	}
	return nil
}
