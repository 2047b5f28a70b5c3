package junta

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/matgreaves/run"
	"github.com/mkrause/junta/errs"
)

const defaultSubprotocol = "junta"
const defaultOutboxSize = 32

// ServerBuilder configures a Server before it starts accepting
// connections, grounded on the original ServerBuilder (Server::bind ->
// ServerBuilder::logger/serve).
type ServerBuilder struct {
	addr        string
	logger      *slog.Logger
	subproto    string
	topics      Topics
	outboxSize  int
}

// Bind starts building a Server that will listen on addr.
func Bind(addr string) *ServerBuilder {
	return &ServerBuilder{
		addr:       addr,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		subproto:   defaultSubprotocol,
		outboxSize: defaultOutboxSize,
	}
}

// Logger sets the structured logger threaded down to every connection.
// Defaults to a discarding logger, mirroring Server::bind's
// Logger::root(Discard, o!{}).
func (b *ServerBuilder) Logger(l *slog.Logger) *ServerBuilder {
	b.logger = l
	return b
}

// Subprotocol overrides the WebSocket subprotocol negotiated during the
// handshake. Defaults to "junta".
func (b *ServerBuilder) Subprotocol(name string) *ServerBuilder {
	b.subproto = name
	return b
}

// Topics installs the Sub/Unsub/Pub backend that each connection is
// dropped from (DropConnection) when its driver tears down. The protocol
// layer's topic arms take their backend as an argument and do not read
// this one. If never called, no backend is installed: Server.Topics
// returns nil and closing connections are not removed from any topic.
func (b *ServerBuilder) Topics(t Topics) *ServerBuilder {
	b.topics = t
	return b
}

// OutboxSize sets the per-connection outbound queue depth. Defaults to 32.
func (b *ServerBuilder) OutboxSize(n int) *ServerBuilder {
	b.outboxSize = n
	return b
}

// Serve finalizes configuration and returns a Server ready to accept
// connections, grounded on ServerBuilder::serve.
func (b *ServerBuilder) Serve(handler Handler) (*Server, error) {
	if b.addr == "" {
		return nil, errs.New(errs.MissingOption, "bind address")
	}
	if handler == nil {
		return nil, errs.New(errs.MissingOption, "handler")
	}
	return &Server{
		addr:     b.addr,
		logger:   b.logger,
		subproto: b.subproto,
		topics:   b.topics,
		outbox:   b.outboxSize,
		handler:  handler,
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			Subprotocols:    []string{b.subproto},
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}, nil
}

// Server accepts WebSocket connections on addr and dispatches their
// lifecycle events to handler, grounded on the original Server/ServerHandler.
type Server struct {
	addr     string
	logger   *slog.Logger
	subproto string
	topics   Topics
	outbox   int
	handler  Handler
	registry *Registry
	upgrader websocket.Upgrader
	baseCtx  atomic.Pointer[context.Context]
}

func (s *Server) connCtx() context.Context {
	if p := s.baseCtx.Load(); p != nil {
		return *p
	}
	return context.Background()
}

// Registry returns the live connection set, for use by application code
// that wants to broadcast outside of a handler call (e.g. from a timer).
func (s *Server) Registry() *Registry { return s.registry }

// Topics returns the configured Sub/Unsub/Pub backend, or nil if none
// was installed.
func (s *Server) Topics() Topics { return s.topics }

// ServeHTTP upgrades the request to a WebSocket connection and drives
// its lifetime until the peer disconnects or the server's Runner context
// is cancelled. It is safe to mount on any net/http mux alongside other
// routes (e.g. a health endpoint).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !offersSubprotocol(r, s.subproto) {
		http.Error(w, "missing required subprotocol", http.StatusBadRequest)
		return
	}
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	conn := newConnection(newConnectionID(), remoteAddr(wsConn), s.connLogger(), s.registry, s.outbox)
	go driveConnection(wsConn, conn, s.registry, s.handler, s.topics).Run(s.connCtx())
}

func (s *Server) connLogger() *slog.Logger {
	return s.logger
}

// offersSubprotocol reports whether r's Sec-WebSocket-Protocol header
// includes want, grounded on spec §4.3: the server requires its named
// subprotocol and rejects handshakes lacking it (gorilla/websocket's
// Upgrader otherwise happily completes a handshake with no subprotocol
// negotiated at all).
func offersSubprotocol(r *http.Request, want string) bool {
	for _, p := range websocket.Subprotocols(r) {
		if p == want {
			return true
		}
	}
	return false
}

func remoteAddr(c *websocket.Conn) net.Addr {
	if c == nil {
		return nil
	}
	return c.UnderlyingConn().RemoteAddr()
}

// Runner returns a run.Runner that serves WebSocket connections on the
// Server's bound address until ctx is cancelled, mirroring the way
// rig's proxy.Forwarder.Runner() wraps a listen loop for supervision by
// a run.Group.
func (s *Server) Runner() run.Runner {
	return run.Func(func(ctx context.Context) error {
		s.baseCtx.Store(&ctx)
		httpSrv := &http.Server{Addr: s.addr, Handler: s}
		errCh := make(chan error, 1)
		go func() { errCh <- httpSrv.ListenAndServe() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		return httpSrv.Close()
	})
}
