package protocol_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mkrause/junta"
	"github.com/mkrause/junta/errs"
	"github.com/mkrause/junta/protocol"
	"github.com/mkrause/junta/service"
	"github.com/stretchr/testify/require"
)

func greetingArm() protocol.Chain {
	return protocol.RequestProtocol("greeting", func(_ context.Context, rc *protocol.Context[string]) (string, error) {
		return fmt.Sprintf("Hello, %s", rc.Data()), nil
	})
}

func failArm() protocol.Chain {
	return protocol.RequestProtocol("fail", func(_ context.Context, _ *protocol.Context[any]) (any, error) {
		return nil, errors.New("boom")
	})
}

func dispatchMessage(t *testing.T, handler junta.Handler, conn *junta.Connection, content junta.MessageContent) error {
	t.Helper()
	jc := junta.NewTestContext(conn, junta.EventMessage{Content: content})
	_, err := handler.Call(context.Background(), jc)
	return err
}

// Scenario A — request/response.
func TestRequestProtocolGreeting(t *testing.T) {
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)
	handler := protocol.New(greetingArm())

	ev := protocol.Event{ID: 1, Type: protocol.EventReq, Name: "greeting", Data: "Alice"}
	msg, err := protocol.EncodeEvent(ev, true)
	require.NoError(t, err)

	require.NoError(t, dispatchMessage(t, handler, conn, msg))

	reply := <-conn.Outbox()
	require.IsType(t, junta.BinaryContent{}, reply)
	got, err := protocol.DecodeEvent(reply)
	require.NoError(t, err)
	require.Equal(t, uint64(1), got.ID)
	require.Equal(t, protocol.EventRes, got.Type)
	require.Equal(t, "greeting", got.Name)
	require.Nil(t, got.Result.Err)
	require.Equal(t, "Hello, Alice", got.Result.Ok)
}

// Scenario B — fallthrough: no arm matches, no response frame is sent,
// and the handler surfaces InvalidRequest for the driver to log.
func TestRequestProtocolFallthrough(t *testing.T) {
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)
	handler := protocol.New(greetingArm())

	ev := protocol.Event{ID: 2, Type: protocol.EventReq, Name: "unknown"}
	msg, err := protocol.EncodeEvent(ev, true)
	require.NoError(t, err)

	err = dispatchMessage(t, handler, conn, msg)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.InvalidRequest))
	require.Empty(t, conn.Outbox())
}

// Scenario C — handler error becomes a Res(name, Err{...}).
func TestRequestProtocolHandlerError(t *testing.T) {
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)
	handler := protocol.New(failArm())

	ev := protocol.Event{ID: 3, Type: protocol.EventReq, Name: "fail"}
	msg, err := protocol.EncodeEvent(ev, true)
	require.NoError(t, err)

	require.NoError(t, dispatchMessage(t, handler, conn, msg))

	reply := <-conn.Outbox()
	got, err := protocol.DecodeEvent(reply)
	require.NoError(t, err)
	require.Equal(t, uint64(3), got.ID)
	require.NotNil(t, got.Result.Err)
	require.Equal(t, int16(0), got.Result.Err.Code)
	require.Contains(t, got.Result.Err.Message, "boom")
}

func TestRequestProtocolArmsCompose(t *testing.T) {
	handler := protocol.New(service.OrAll[*protocol.EventContext, struct{}](greetingArm(), failArm()))
	reg := junta.NewRegistry()
	conn := junta.NewTestConnection(reg)

	ev := protocol.Event{ID: 4, Type: protocol.EventReq, Name: "fail"}
	msg, err := protocol.EncodeEvent(ev, true)
	require.NoError(t, err)
	require.NoError(t, dispatchMessage(t, handler, conn, msg))
	reply := <-conn.Outbox()
	got, err := protocol.DecodeEvent(reply)
	require.NoError(t, err)
	require.Equal(t, "fail", got.Name)
}
