package junta

import "context"

// Topics resolves the Sub/Unsub/Pub protocol arm (see package protocol):
// it tracks which connections are members of which named topic and fans
// a Publish out to every current member. The interface lives in this
// package (rather than on package pubsub, which implements it) so that
// junta itself never has to import an implementation — pubsub.Local and
// connect/redisx.Topics both satisfy it.
type Topics interface {
	// Subscribe adds conn as a member of the named topic.
	Subscribe(ctx context.Context, name string, conn *Connection) error
	// Unsubscribe removes conn from the named topic.
	Unsubscribe(ctx context.Context, name string, conn *Connection) error
	// Publish delivers msg to every current member of the named topic,
	// the publishing connection included if it is a member.
	Publish(ctx context.Context, name string, msg MessageContent) error
	// DropConnection removes conn from every topic it belongs to. Called
	// once a connection's driver is tearing down.
	DropConnection(conn *Connection)
}
