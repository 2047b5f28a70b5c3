package redisx_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/mkrause/junta"
	"github.com/mkrause/junta/connect/redisx"
	"github.com/mkrause/junta/internal/dockertest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisTopicsFanOutAcrossTwoHandles(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if !dockertest.Available(ctx) {
		t.Skip("docker not available")
	}

	ctr, err := dockertest.Start(ctx, dockertest.Config{Image: "redis:7-alpine", ContainerPort: 6379})
	require.NoError(t, err)
	defer ctr.Stop(context.Background())

	addr := "127.0.0.1:" + strconv.Itoa(ctr.HostPort)
	require.Eventually(t, func() bool {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		return rdb.Ping(ctx).Err() == nil
	}, 15*time.Second, 200*time.Millisecond)

	// Two Topics handles over the same Redis instance stand in for two
	// junta processes sharing fanout.
	rdbA := redis.NewClient(&redis.Options{Addr: addr})
	defer rdbA.Close()
	rdbB := redis.NewClient(&redis.Options{Addr: addr})
	defer rdbB.Close()
	topicsA := redisx.New(rdbA)
	topicsB := redisx.New(rdbB)

	regA := junta.NewRegistry()
	regB := junta.NewRegistry()
	localOnA := junta.NewTestConnection(regA)
	localOnB := junta.NewTestConnection(regB)

	require.NoError(t, topicsA.Subscribe(ctx, "room", localOnA))
	require.NoError(t, topicsB.Subscribe(ctx, "room", localOnB))

	// Give Redis a moment to register both subscriptions.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, topicsA.Publish(ctx, "room", junta.TextContent("hi")))

	select {
	case msg := <-localOnA.Outbox():
		require.Equal(t, junta.TextContent("hi"), msg)
	case <-time.After(5 * time.Second):
		t.Fatal("publisher's own process never received its own Pub")
	}
	select {
	case msg := <-localOnB.Outbox():
		require.Equal(t, junta.TextContent("hi"), msg)
	case <-time.After(5 * time.Second):
		t.Fatal("remote process never received the Pub")
	}
}
