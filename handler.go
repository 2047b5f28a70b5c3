package junta

import (
	"context"

	"github.com/mkrause/junta/service"
)

// Handler is the entry point of a server's pipeline: it is called once
// per ClientEvent (Connect, Message, Close) on the connection that
// produced it. Handlers are built from the service/middleware algebra in
// package service — Then, Stack, Or, Pipe all compose values of this
// type — mirroring the original server's Handler trait, whose single
// method handled a &Client plus a ClientEvent and returned nothing but
// a completion signal.
type Handler = service.Service[*Context[ClientEvent], struct{}]

// HandlerFunc adapts a plain function to a Handler.
func HandlerFunc(f func(ctx *Context[ClientEvent]) error) Handler {
	return service.Fn(func(_ context.Context, c *Context[ClientEvent]) (struct{}, error) {
		return struct{}{}, f(c)
	})
}
