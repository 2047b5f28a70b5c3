// Package pubsub implements the junta.Topics interface the protocol
// layer's Sub/Unsub/Pub arm uses to resolve the open question spec §9
// leaves to the implementation: which connections belong to a named
// topic, and who a Pub fans out to.
//
// Local is the in-process default. connect/redisx.Topics satisfies the
// same interface backed by Redis PUBLISH/SUBSCRIBE, for fanout across
// more than one junta process.
package pubsub

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mkrause/junta"
)

// Local is an in-process topic membership table, grounded on the
// registry/broadcaster shape in junta's own registry.go: a map guarded
// by a reader-writer lock, snapshotted under the read lock before any
// send so the lock is never held across a connection's Send.
type Local struct {
	mu     sync.RWMutex
	topics map[string]map[uuid.UUID]*junta.Connection
}

// NewLocal returns an empty Local topic table.
func NewLocal() *Local {
	return &Local{topics: make(map[string]map[uuid.UUID]*junta.Connection)}
}

// Subscribe adds conn as a member of name.
func (l *Local) Subscribe(_ context.Context, name string, conn *junta.Connection) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	members, ok := l.topics[name]
	if !ok {
		members = make(map[uuid.UUID]*junta.Connection)
		l.topics[name] = members
	}
	members[conn.ID] = conn
	return nil
}

// Unsubscribe removes conn from name, if present.
func (l *Local) Unsubscribe(_ context.Context, name string, conn *junta.Connection) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	members, ok := l.topics[name]
	if !ok {
		return nil
	}
	delete(members, conn.ID)
	if len(members) == 0 {
		delete(l.topics, name)
	}
	return nil
}

// Publish delivers msg to every current member of name, the publishing
// connection included if it is a member — Pub does not special-case the sender the way broadcast
// does (spec §4.8/§9). Per-member delivery failures are logged, not
// propagated, the same best-effort fanout policy as Registry.SendAll.
func (l *Local) Publish(ctx context.Context, name string, msg junta.MessageContent) error {
	l.mu.RLock()
	members := l.topics[name]
	targets := make([]*junta.Connection, 0, len(members))
	for _, c := range members {
		targets = append(targets, c)
	}
	l.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(ctx, msg); err != nil {
			c.Logger().Error("pub fanout failed", "topic", name, "err", err)
		}
	}
	return nil
}

// DropConnection removes conn from every topic it belongs to, called
// once a connection's driver is tearing down.
func (l *Local) DropConnection(conn *junta.Connection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for name, members := range l.topics {
		if _, ok := members[conn.ID]; ok {
			delete(members, conn.ID)
			if len(members) == 0 {
				delete(l.topics, name)
			}
		}
	}
}
