// Package bridge connects registered handlers to incoming calls through a
// flat (context, dispatch function) pair per method.
package bridge

import (
	"errors"

	"github.com/ozontech/brpcgen/zerocopy"
)

var ErrHandlerNotSet = errors.New("dispatch handler is not set")

// DispatchFunc handles one call. Zero means success, anything else fails
// the call with EINTERNAL.
type DispatchFunc func(ctx any, req zerocopy.Buf, resp zerocopy.BufMut) int32

// HandlerSlot holds the registration of one method. It is written during
// service setup and only read while serving.
type HandlerSlot struct {
	ctx      any
	dispatch DispatchFunc
}

// Set registers fn, replacing any previous registration.
func (s *HandlerSlot) Set(ctx any, fn DispatchFunc) {
	s.ctx = ctx
	s.dispatch = fn
}

func (s *HandlerSlot) IsSet() bool {
	return s.dispatch != nil
}

func (s *HandlerSlot) Context() any {
	return s.ctx
}

// Dispatch panics with ErrHandlerNotSet on an unset slot.
func (s *HandlerSlot) Dispatch(req zerocopy.Buf, resp zerocopy.BufMut) int32 {
	if s.dispatch == nil {
		panic(ErrHandlerNotSet)
	}
	return s.dispatch(s.ctx, req, resp)
}

// ClosureGuard runs done exactly once, on whichever path leaves the scope.
//
//	guard := NewClosureGuard(done)
//	defer guard.Run()
type ClosureGuard struct {
	done func()
}

func NewClosureGuard(done func()) *ClosureGuard {
	return &ClosureGuard{done}
}

func (g *ClosureGuard) Run() {
	if done := g.done; done != nil {
		g.done = nil
		done()
	}
}

// Release detaches the closure, the caller becomes responsible for it.
func (g *ClosureGuard) Release() func() {
	done := g.done
	g.done = nil
	return done
}
