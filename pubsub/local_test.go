package pubsub_test

import (
	"context"
	"testing"

	"github.com/mkrause/junta"
	"github.com/mkrause/junta/pubsub"
	"github.com/stretchr/testify/require"
)

func TestLocalPublishReachesSubscribersOnly(t *testing.T) {
	ctx := context.Background()
	local := pubsub.NewLocal()

	reg := junta.NewRegistry()
	a := junta.NewTestConnection(reg)
	b := junta.NewTestConnection(reg)
	c := junta.NewTestConnection(reg)

	require.NoError(t, local.Subscribe(ctx, "room", a))
	require.NoError(t, local.Subscribe(ctx, "room", b))
	// c never subscribes.

	require.NoError(t, local.Publish(ctx, "room", junta.TextContent("hi")))

	require.Equal(t, junta.TextContent("hi"), <-a.Outbox())
	require.Equal(t, junta.TextContent("hi"), <-b.Outbox())
	require.Empty(t, c.Outbox())
}

func TestLocalPublishSwallowsPerMemberFailures(t *testing.T) {
	ctx := context.Background()
	local := pubsub.NewLocal()
	reg := junta.NewRegistry()
	dead := junta.NewTestConnection(reg)
	alive := junta.NewTestConnection(reg)

	require.NoError(t, local.Subscribe(ctx, "room", dead))
	require.NoError(t, local.Subscribe(ctx, "room", alive))
	dead.Close()

	err := local.Publish(ctx, "room", junta.TextContent("hi"))
	require.NoError(t, err)
	require.Equal(t, junta.TextContent("hi"), <-alive.Outbox())
}

func TestLocalUnsubscribeRemovesMembership(t *testing.T) {
	ctx := context.Background()
	local := pubsub.NewLocal()
	reg := junta.NewRegistry()
	a := junta.NewTestConnection(reg)

	require.NoError(t, local.Subscribe(ctx, "room", a))
	require.NoError(t, local.Unsubscribe(ctx, "room", a))
	require.NoError(t, local.Publish(ctx, "room", junta.TextContent("hi")))
	require.Empty(t, a.Outbox())
}

func TestLocalDropConnectionClearsAllTopics(t *testing.T) {
	ctx := context.Background()
	local := pubsub.NewLocal()
	reg := junta.NewRegistry()
	a := junta.NewTestConnection(reg)

	require.NoError(t, local.Subscribe(ctx, "room-1", a))
	require.NoError(t, local.Subscribe(ctx, "room-2", a))
	local.DropConnection(a)

	require.NoError(t, local.Publish(ctx, "room-1", junta.TextContent("hi")))
	require.NoError(t, local.Publish(ctx, "room-2", junta.TextContent("hi")))
	require.Empty(t, a.Outbox())
}
