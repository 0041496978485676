// Package report collects the outcome of bridge calls made by the bench
// command.
package report

import (
	"errors"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ozontech/brpcgen/brpc"
)

// Reporter is started with Run and stopped with Close. Acquire is safe for
// concurrent use.
type Reporter interface {
	Run() error
	Close() error
	Acquire(method string) CallState
}

// CallState tracks one call. End must be the last method called.
type CallState interface {
	SetSize(request, response int)
	End(err error)
}

// Multi fans every call out to nested reporters.
type Multi struct {
	nested []Reporter
}

func NewMulti(nested ...Reporter) *Multi {
	return &Multi{nested}
}

func (m *Multi) Run() error {
	g := new(errgroup.Group)
	for _, r := range m.nested {
		g.Go(r.Run)
	}
	return g.Wait()
}

func (m *Multi) Close() error {
	g := new(errgroup.Group)
	for _, r := range m.nested {
		g.Go(r.Close)
	}
	return g.Wait()
}

func (m *Multi) Acquire(method string) CallState {
	ms := make(multiState, len(m.nested))
	for i, r := range m.nested {
		ms[i] = r.Acquire(method)
	}
	return ms
}

type multiState []CallState

func (s multiState) SetSize(request, response int) {
	for _, s := range s {
		s.SetSize(request, response)
	}
}

func (s multiState) End(err error) {
	for _, s := range s {
		s.End(err)
	}
}

// Nop discards everything.
type Nop struct {
	close chan struct{}
}

func NewNop() *Nop {
	return &Nop{make(chan struct{})}
}

func (n *Nop) Run() error {
	<-n.close
	return nil
}

func (n *Nop) Close() error {
	close(n.close)
	return nil
}

func (*Nop) Acquire(string) CallState { return nopState{} }

type nopState struct{}

func (nopState) SetSize(int, int) {}
func (nopState) End(error)        {}

// errno extracts the system error behind a failed call, 999 for other
// transport failures.
func errno(err error) int64 {
	if err == nil || !brpc.IsTransport(err) {
		return 0
	}
	var no syscall.Errno
	if errors.As(err, &no) {
		return int64(no)
	}
	return 999
}
