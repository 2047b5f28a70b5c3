// Package httpx serves the ops HTTP endpoint cmd/juntad mounts alongside
// its WebSocket listener (SPEC_FULL.md §4.3a): a plain health/liveness
// probe that does not need the WS subprotocol handshake to answer.
// Adapted from rig's connect/httpx/server.go, dropping its endpoint/
// wiring resolution (junta is a standalone framework, not an
// environment orchestrator) in favor of a plain address string.
package httpx

import (
	"context"
	"net/http"
	"time"
)

// Serve starts an HTTP server on addr with the given handler. It blocks
// until ctx is cancelled, then shuts down gracefully with a 5-second
// timeout, the same shape as rig's Serve(ctx, ep, handler).
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Healthz builds a liveness-probe handler that reports 200 while ready
// returns true, mounted at "/healthz" by cmd/juntad alongside the WS
// listener so a probe doesn't need the WS subprotocol handshake.
func Healthz(ready func() bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
