package junta_test

import (
	"context"
	"testing"

	"github.com/mkrause/junta"
	"github.com/stretchr/testify/require"
)

// Invariant 7 / Scenario E — broadcast-except-self.
func TestBroadcastExceptSelf(t *testing.T) {
	ctx := context.Background()
	reg := junta.NewRegistry()
	c1 := junta.NewTestConnection(reg)
	c2 := junta.NewTestConnection(reg)
	c3 := junta.NewTestConnection(reg)

	require.Equal(t, 3, reg.Len())
	require.NoError(t, c1.Broadcast(ctx, junta.TextContent("hi")))

	require.Equal(t, junta.TextContent("hi"), <-c2.Outbox())
	require.Equal(t, junta.TextContent("hi"), <-c3.Outbox())
	require.Empty(t, c1.Outbox())
}

func TestSendAllReachesEveryConnection(t *testing.T) {
	ctx := context.Background()
	reg := junta.NewRegistry()
	c1 := junta.NewTestConnection(reg)
	c2 := junta.NewTestConnection(reg)

	require.NoError(t, reg.SendAll(ctx, junta.TextContent("all")))
	require.Equal(t, junta.TextContent("all"), <-c1.Outbox())
	require.Equal(t, junta.TextContent("all"), <-c2.Outbox())
}

// spec §4.3/§7: fanout is best-effort — a failing recipient's error is
// logged, not propagated, and every other recipient still gets the
// message.
func TestSendAllSwallowsPerConnectionFailures(t *testing.T) {
	ctx := context.Background()
	reg := junta.NewRegistry()
	dead := junta.NewTestConnection(reg)
	alive := junta.NewTestConnection(reg)
	dead.Close()

	err := reg.SendAll(ctx, junta.TextContent("all"))
	require.NoError(t, err)
	require.Equal(t, junta.TextContent("all"), <-alive.Outbox())
}

func TestBroadcastSwallowsPerConnectionFailures(t *testing.T) {
	ctx := context.Background()
	reg := junta.NewRegistry()
	sender := junta.NewTestConnection(reg)
	dead := junta.NewTestConnection(reg)
	alive := junta.NewTestConnection(reg)
	dead.Close()

	err := sender.Broadcast(ctx, junta.TextContent("hi"))
	require.NoError(t, err)
	require.Equal(t, junta.TextContent("hi"), <-alive.Outbox())
}

func TestRegistryGet(t *testing.T) {
	reg := junta.NewRegistry()
	c1 := junta.NewTestConnection(reg)

	got, ok := reg.Get(c1.ID)
	require.True(t, ok)
	require.Same(t, c1, got)

	_, ok = reg.Get(junta.NewTestConnection(junta.NewRegistry()).ID)
	require.False(t, ok)
}
