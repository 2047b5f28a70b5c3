// Package service implements the pipeline algebra described in the
// design: services that branch on a predicate, middleware that wraps a
// next-step continuation, and the combinators (Or, Stack, Then, Pipe)
// that compose them.
//
// The original design speaks of services and middleware returning
// futures; idiomatic Go has no need for a hand-rolled future type here,
// since every connection already dispatches one message at a time on its
// own goroutine (see the junta package). A Service.Call blocks its
// caller's goroutine and returns (O, error) directly, with
// context.Context threading cancellation the way any blocking Go API
// would. This follows the design note in spec §9: prefer a small number
// of dyn-dispatched pipeline nodes, with generics confined to leaf
// adapters — performance here is dominated by I/O and encoding, not
// dispatch.
package service

import (
	"context"
	"sync/atomic"

	"github.com/mkrause/junta/errs"
)

// Service is a callable unit with input type I and output type O.
// ShouldCall gates dispatch in a chain; it must be pure and cheap.
type Service[I, O any] interface {
	Call(ctx context.Context, in I) (O, error)
	ShouldCall(in I) bool
}

// serviceFunc adapts a plain function (and an optional predicate) into
// a Service.
type serviceFunc[I, O any] struct {
	fn    func(context.Context, I) (O, error)
	check func(I) bool
}

func (s serviceFunc[I, O]) Call(ctx context.Context, in I) (O, error) { return s.fn(ctx, in) }

func (s serviceFunc[I, O]) ShouldCall(in I) bool {
	if s.check == nil {
		return true
	}
	return s.check(in)
}

// Fn wraps a callable as a Service whose ShouldCall always returns true.
func Fn[I, O any](f func(context.Context, I) (O, error)) Service[I, O] {
	return serviceFunc[I, O]{fn: f}
}

// CheckFn constructs a Service whose ShouldCall delegates to check.
func CheckFn[I, O any](check func(I) bool, svc Service[I, O]) Service[I, O] {
	return serviceFunc[I, O]{fn: svc.Call, check: check}
}

// Or produces a service that calls s1 if s1.ShouldCall(input) is true,
// else s2 if s2.ShouldCall(input) is true, else fails with
// errs.InvalidRequest. First-match-wins; the chain's ShouldCall is the
// disjunction of both arms.
func Or[I, O any](s1, s2 Service[I, O]) Service[I, O] {
	return serviceFunc[I, O]{
		fn: func(ctx context.Context, in I) (O, error) {
			switch {
			case s1.ShouldCall(in):
				return s1.Call(ctx, in)
			case s2.ShouldCall(in):
				return s2.Call(ctx, in)
			default:
				var zero O
				return zero, errs.New(errs.InvalidRequest, "no service in chain matched")
			}
		},
		check: func(in I) bool { return s1.ShouldCall(in) || s2.ShouldCall(in) },
	}
}

// OrAll folds Or over a list of services, implementing an O(n)
// name-based router (used by the request protocol to compose arms).
func OrAll[I, O any](first Service[I, O], rest ...Service[I, O]) Service[I, O] {
	result := first
	for _, s := range rest {
		result = Or(result, s)
	}
	return result
}

// Next is the single-use continuation a Middleware uses to invoke the
// downstream stage of its chain. Calling it more than once is a
// contract violation: the second call returns errs.NullFuture instead
// of re-invoking the downstream stage, since Go has no move-only value
// to enforce this at compile time.
type Next[I, O any] struct {
	consumed   atomic.Bool
	downstream func(context.Context, I) (O, error)
}

// Call invokes the downstream stage with (possibly rewritten) input in
// and returns its result. If the middleware never calls Call, the
// downstream stage never runs — the middleware's own return value is
// the chain's result.
func (n *Next[I, O]) Call(ctx context.Context, in I) (O, error) {
	if !n.consumed.CompareAndSwap(false, true) {
		var zero O
		return zero, errs.New(errs.NullFuture, "next called after being consumed")
	}
	return n.downstream(ctx, in)
}

func newNext[I, O any](downstream func(context.Context, I) (O, error)) *Next[I, O] {
	return &Next[I, O]{downstream: downstream}
}

// Middleware wraps a next-step continuation. It either resolves without
// invoking next (short-circuit) or invokes next.Call exactly once.
type Middleware[I, O any] interface {
	Call(ctx context.Context, in I, next *Next[I, O]) (O, error)
}

type middlewareFunc[I, O any] func(context.Context, I, *Next[I, O]) (O, error)

func (f middlewareFunc[I, O]) Call(ctx context.Context, in I, next *Next[I, O]) (O, error) {
	return f(ctx, in, next)
}

// MiddlewareFn wraps a callable as a Middleware.
func MiddlewareFn[I, O any](f func(context.Context, I, *Next[I, O]) (O, error)) Middleware[I, O] {
	return middlewareFunc[I, O](f)
}

// Stack composes m1 and m2 left-to-right: requests enter m1 first. The
// continuation m1 receives forwards into m2, which in turn receives the
// outer continuation — so m2 runs only if m1 invokes its next, and the
// stage after the stack runs only if m2 (in turn) invokes its own next.
func Stack[I, O any](m1, m2 Middleware[I, O]) Middleware[I, O] {
	return MiddlewareFn(func(ctx context.Context, in I, outerNext *Next[I, O]) (O, error) {
		innerNext := newNext(func(ctx context.Context, in2 I) (O, error) {
			return m2.Call(ctx, in2, outerNext)
		})
		return m1.Call(ctx, in, innerNext)
	})
}

// Then yields a terminating Service: m.Call(input, next) where next's
// downstream is svc. The resulting service's ShouldCall delegates to
// svc, mirroring the source's ChainHandler (the terminal service gates
// dispatch for the whole stack).
func Then[I, O any](m Middleware[I, O], svc Service[I, O]) Service[I, O] {
	return serviceFunc[I, O]{
		fn: func(ctx context.Context, in I) (O, error) {
			next := newNext(svc.Call)
			return m.Call(ctx, in, next)
		},
		check: svc.ShouldCall,
	}
}

// Pipe composes s1 and s2 by type: executes s1, then feeds its output
// into s2. ShouldCall delegates to s1, the entry stage.
func Pipe[I, M, O any](s1 Service[I, M], s2 Service[M, O]) Service[I, O] {
	return serviceFunc[I, O]{
		fn: func(ctx context.Context, in I) (O, error) {
			mid, err := s1.Call(ctx, in)
			if err != nil {
				var zero O
				return zero, err
			}
			return s2.Call(ctx, mid)
		},
		check: s1.ShouldCall,
	}
}
