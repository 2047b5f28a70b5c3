package junta

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matgreaves/run"
)

// Keepalive timing, grounded on the ping/pong pattern used throughout the
// retrieval pack's gorilla/websocket handlers (internal/ws/handler.go):
// the server pings at a cadence comfortably inside the peer's read
// deadline, and every inbound pong or ping pushes that deadline back
// out (text and binary frames do not).
const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// driveConnection runs a single connection's lifetime: it dispatches
// EventConnect, then alternates a reader goroutine (inbound frames) and
// a writer pump (outbound frames + keepalive pings) until either side
// closes, finally dispatching EventClose. It is wrapped in a run.Runner
// so the server's accept loop can supervise every connection the same
// way rig's proxy.Forwarder wraps its listen loop.
func driveConnection(wsConn *websocket.Conn, conn *Connection, reg *Registry, handler Handler, topics Topics) run.Runner {
	return run.Func(func(ctx context.Context) error {
		defer wsConn.Close()
		defer reg.remove(conn.ID)
		defer conn.Close()
		if topics != nil {
			defer topics.DropConnection(conn)
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		reg.add(conn)
		dispatch(runCtx, conn, handler, EventConnect{})

		readErrCh := make(chan error, 1)
		go func() { readErrCh <- readPump(runCtx, wsConn, conn, handler) }()

		writeErrCh := make(chan error, 1)
		go func() { writeErrCh <- writePump(wsConn, conn) }()

		var reason *CloseReason
		select {
		case err := <-readErrCh:
			reason = closeReasonFromErr(err)
		case <-writeErrCh:
		case <-ctx.Done():
		}
		conn.Close()
		cancel()
		<-writeErrCh

		dispatch(context.Background(), conn, handler, EventClose{Reason: reason})
		return nil
	})
}

func closeReasonFromErr(err error) *CloseReason {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*websocket.CloseError); ok {
		return &CloseReason{Code: ce.Code, Text: ce.Text}
	}
	return nil
}

func dispatch(ctx context.Context, conn *Connection, handler Handler, event ClientEvent) {
	c := newContext(conn, conn.ext, event)
	if !handler.ShouldCall(c) {
		return
	}
	if _, err := handler.Call(ctx, c); err != nil {
		conn.Logger().Error("handler failed", "event", event, "err", err)
	}
}

func readPump(ctx context.Context, wsConn *websocket.Conn, conn *Connection, handler Handler) error {
	wsConn.SetReadLimit(4 << 20)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	// Per spec §4.2, a Ping enqueues its Pong reply on the same bounded
	// outbound queue every application message travels, rather than
	// writing straight to the socket from the read goroutine.
	wsConn.SetPingHandler(func(appData string) error {
		_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
		select {
		case conn.outbox <- pongFrame{data: []byte(appData)}:
		case <-conn.done():
		case <-ctx.Done():
		}
		return nil
	})

	for {
		mt, data, err := wsConn.ReadMessage()
		if err != nil {
			return err
		}
		var content MessageContent
		switch mt {
		case websocket.TextMessage:
			content = TextContent(data)
		case websocket.BinaryMessage:
			content = BinaryContent(data)
		default:
			continue
		}
		dispatch(ctx, conn, handler, EventMessage{Content: content})
	}
}

func writePump(wsConn *websocket.Conn, conn *Connection) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-conn.outbox:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				return nil
			}
			if err := writeFrame(wsConn, msg); err != nil {
				return err
			}
		case <-ticker.C:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case <-conn.done():
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = wsConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}

// pongFrame is a Pong reply queued onto a connection's outbound queue by
// its Ping handler, rather than written directly from the read
// goroutine — see readPump.
type pongFrame struct{ data []byte }

func (pongFrame) isMessageContent() {}

func writeFrame(wsConn *websocket.Conn, msg MessageContent) error {
	switch m := msg.(type) {
	case TextContent:
		return wsConn.WriteMessage(websocket.TextMessage, []byte(m))
	case BinaryContent:
		return wsConn.WriteMessage(websocket.BinaryMessage, []byte(m))
	case pongFrame:
		return wsConn.WriteMessage(websocket.PongMessage, m.data)
	default:
		return nil
	}
}

func newConnectionID() uuid.UUID { return uuid.New() }
