package bridge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/schema"
)

type conf struct {
	log *zap.Logger
}

type Option func(*conf)

func WithLogger(log *zap.Logger) Option {
	return func(c *conf) {
		c.log = log
	}
}

func newConf(opts []Option) conf {
	c := conf{log: zap.NewNop()}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// Service adapts the handler slots of one schema service to incoming
// calls. It never decodes anything itself.
type Service struct {
	name    string
	methods []string
	index   map[string]int
	slots   []HandlerSlot
	log     *zap.Logger
}

func NewService(pkg string, desc schema.Service, opts ...Option) *Service {
	c := newConf(opts)
	s := &Service{
		name:    desc.FullName(pkg),
		methods: desc.MethodNames(),
		index:   make(map[string]int, len(desc.Methods)),
		slots:   make([]HandlerSlot, len(desc.Methods)),
	}
	for i, m := range s.methods {
		s.index[m] = i
	}
	s.log = c.log.Named("service").With(zap.String("service", s.name))
	return s
}

// Name is the fully qualified service name.
func (s *Service) Name() string {
	return s.name
}

func (s *Service) Methods() []string {
	return s.methods
}

func (s *Service) SetHandler(method string, ctx any, fn DispatchFunc) error {
	i, ok := s.index[method]
	if !ok {
		return brpc.NewError(brpc.ENOMETHOD, fmt.Sprintf("%s has no method %s", s.name, method))
	}
	s.slots[i].Set(ctx, fn)
	return nil
}

// CallMethod serves one call. done runs exactly once on every path.
// Calling a method whose handler was never set panics.
func (s *Service) CallMethod(method string, cntl *brpc.Controller, done func()) {
	guard := NewClosureGuard(done)
	defer guard.Run()

	i, ok := s.index[method]
	if !ok {
		cntl.SetFailed(brpc.ENOMETHOD, "%s has no method %s", s.name, method)
		return
	}
	slot := &s.slots[i]
	if !slot.IsSet() {
		panic(fmt.Errorf("%s.%s: %w", s.name, method, ErrHandlerNotSet))
	}

	req := cntl.RequestAttachment().NewReader()
	resp := cntl.ResponseAttachment().NewWriter()
	rc := slot.Dispatch(req, resp)
	resp.Flush()

	if rc != 0 {
		s.log.Debug("handler failed", zap.String("method", method), zap.Int32("status", rc))
		cntl.ResponseAttachment().Reset()
		cntl.SetFailed(brpc.EINTERNAL, "brpc handler failed")
	}
}
