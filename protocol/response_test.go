package protocol_test

import (
	"context"
	"testing"
	"time"

	"github.com/mkrause/junta"
	"github.com/mkrause/junta/errs"
	"github.com/mkrause/junta/protocol"
	"github.com/mkrause/junta/service"
	"github.com/stretchr/testify/require"
)

// Scenario D — server-initiated request: the pending-table entry is
// removed once the matching Res arrives and the caller's future
// resolves with the decoded payload.
func TestRequestResolvesOnMatchingResponse(t *testing.T) {
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)
	handler := protocol.New(service.OrAll[*protocol.EventContext, struct{}](greetingArm()))

	type result struct {
		val string
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := protocol.Request[string](context.Background(), conn, true, "ping", "hello")
		done <- result{v, err}
	}()

	// Drain the outbound Req the request API sent, so we know its id.
	reqMsg := <-conn.Outbox()
	reqEv, err := protocol.DecodeEvent(reqMsg)
	require.NoError(t, err)
	require.Equal(t, protocol.EventReq, reqEv.Type)
	require.Equal(t, "ping", reqEv.Name)

	resEv := protocol.Event{ID: reqEv.ID, Type: protocol.EventRes, Name: "ping",
		Result: &protocol.ResResult{Ok: "pong"}}
	resMsg, err := protocol.EncodeEvent(resEv, true)
	require.NoError(t, err)

	jc := junta.NewTestContext(conn, junta.EventMessage{Content: resMsg})
	_, err = handler.Call(context.Background(), jc)
	require.NoError(t, err)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Equal(t, "pong", r.val)
	case <-time.After(time.Second):
		t.Fatal("request never resolved")
	}
}

// Scenario F — close during an in-flight request: the peer closes
// without replying, and the request future resolves with ReceiverClosed
// instead of leaking a pending entry.
func TestRequestCancelledLeavesNoPendingEntry(t *testing.T) {
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)

	done := make(chan error, 1)
	go func() {
		_, err := protocol.Request[string](context.Background(), conn, true, "slow", nil)
		done <- err
	}()

	<-conn.Outbox() // the outbound Req was sent
	conn.Close()

	select {
	case err := <-done:
		require.Error(t, err)
		require.True(t, errs.Is(err, errs.ReceiverClosed))
	case <-time.After(time.Second):
		t.Fatal("request never unblocked on connection close")
	}

	// A response arriving after close must not find a waiter:
	// ResponseProtocol's should_call returns false and it falls through.
	handler := protocol.New(service.OrAll[*protocol.EventContext, struct{}](greetingArm()))
	resEv := protocol.Event{ID: 1, Type: protocol.EventRes, Name: "slow", Result: &protocol.ResResult{Ok: "late"}}
	resMsg, err := protocol.EncodeEvent(resEv, true)
	require.NoError(t, err)
	jc := junta.NewTestContext(conn, junta.EventMessage{Content: resMsg})
	_, err = handler.Call(context.Background(), jc)
	require.Error(t, err) // InvalidRequest: nothing claims a stale Res
}

// Cancelling the caller's own context (distinct from the peer closing
// the connection) also resolves the request with ReceiverClosed rather
// than leaking the pending entry.
func TestRequestContextCancelledResolvesReceiverClosed(t *testing.T) {
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := protocol.Request[string](ctx, conn, true, "slow", nil)
		done <- err
	}()

	<-conn.Outbox() // the outbound Req was sent
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		require.True(t, errs.Is(err, errs.ReceiverClosed))
	case <-time.After(time.Second):
		t.Fatal("request never unblocked on cancel")
	}
}
