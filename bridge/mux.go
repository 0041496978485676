package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ozontech/brpcgen/brpc"
)

// Mux routes calls to services by their fully qualified name.
type Mux struct {
	mu       sync.RWMutex
	services map[string]*Service
	log      *zap.Logger
}

func NewMux(opts ...Option) *Mux {
	c := newConf(opts)
	return &Mux{services: make(map[string]*Service), log: c.log.Named("mux")}
}

func (m *Mux) Register(svc *Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.services[svc.Name()]; ok {
		return fmt.Errorf("service %s already registered", svc.Name())
	}
	m.services[svc.Name()] = svc
	m.log.Debug("service registered", zap.String("service", svc.Name()), zap.Strings("methods", svc.Methods()))
	return nil
}

func (m *Mux) Service(name string) (*Service, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	svc, ok := m.services[name]
	return svc, ok
}

// Services returns registered services sorted by name.
func (m *Mux) Services() []*Service {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Service, 0, len(m.services))
	for _, svc := range m.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// CallMethod serves method with cntl's attachments. done runs exactly once.
func (m *Mux) CallMethod(ctx context.Context, method brpc.MethodRef, cntl *brpc.Controller, done func()) {
	guard := NewClosureGuard(done)
	defer guard.Run()

	if err := ctx.Err(); err != nil {
		code := brpc.ECLOSE
		if errors.Is(err, context.DeadlineExceeded) {
			code = brpc.ERPCTIMEDOUT
		}
		cntl.SetFailed(code, "%s: %v", method, err)
		return
	}

	svc, ok := m.Service(method.Service)
	if !ok {
		cntl.SetFailed(brpc.ENOSERVICE, "service %s not found", method.Service)
		return
	}
	svc.CallMethod(method.Method, cntl, guard.Release())
}

// LocalChannel calls services of a Mux in the calling goroutine. Request
// and response attachments are shared with the serving side.
type LocalChannel struct {
	mux *Mux
}

var _ brpc.Channel = (*LocalChannel)(nil)

func NewLocalChannel(mux *Mux) *LocalChannel {
	return &LocalChannel{mux}
}

func (c *LocalChannel) CallMethod(ctx context.Context, method brpc.MethodRef, cntl *brpc.Controller) {
	c.mux.CallMethod(ctx, method, cntl, nil)
}
