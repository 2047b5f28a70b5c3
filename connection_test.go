package junta_test

import (
	"context"
	"testing"

	"github.com/mkrause/junta"
	"github.com/mkrause/junta/errs"
	"github.com/stretchr/testify/require"
)

func TestSendAfterCloseFails(t *testing.T) {
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)
	conn.Close()

	err := conn.Send(context.Background(), junta.TextContent("x"))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Transport))
}

func TestCloseIsIdempotent(t *testing.T) {
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)
	conn.Close()
	require.NotPanics(t, conn.Close)
}

// Back-pressure: a full outbound queue surfaces a transport error to
// the caller instead of silently dropping the message (spec §4.2).
func TestSendReturnsErrorWhenQueueFull(t *testing.T) {
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)

	for i := 0; i < cap(conn.Outbox()); i++ {
		require.NoError(t, conn.Send(context.Background(), junta.TextContent("x")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := conn.Send(ctx, junta.TextContent("overflow"))
	require.Error(t, err)
}

func TestNextSeqMonotonic(t *testing.T) {
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)
	first := conn.NextSeq()
	second := conn.NextSeq()
	require.Less(t, first, second)
}
