//go:build cgo && brpc

package brpcsys

/*
#cgo CXXFLAGS: -std=c++11
#cgo LDFLAGS: -lbrpc -lprotobuf -lgflags -lleveldb -lssl -lcrypto -lstdc++
#include "ffi.h"
*/
import "C"

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/ozontech/brpcgen/consts"
)

// Service is implemented by generated service wrappers.
type Service interface {
	ServicePtr() unsafe.Pointer
	// Release detaches the native service from the wrapper.
	Release() unsafe.Pointer
}

type Ownership int

const (
	ServerOwnsService Ownership = iota
	ServerDoesntOwnService
)

type ServerOptions struct {
	IdleTimeout time.Duration
	NumThreads  int
}

type conf struct {
	log *zap.Logger
}

type Option func(*conf)

func WithLogger(log *zap.Logger) Option {
	return func(c *conf) {
		c.log = log
	}
}

// Server owns a brpc::Server.
type Server struct {
	_     NoCopy
	inner unsafe.Pointer
	log   *zap.Logger
}

func NewServer(opts ...Option) *Server {
	c := conf{log: zap.NewNop()}
	for _, o := range opts {
		o(&c)
	}
	return &Server{inner: C.brpcsys_server_new(), log: c.log.Named("brpcsys")}
}

// AddService registers svc. With ServerOwnsService the wrapper is released
// and must not be closed afterwards.
func (s *Server) AddService(svc Service, ownership Ownership) error {
	if rc := C.brpcsys_server_add_service(s.inner, svc.ServicePtr(), C.int(ownership)); rc != 0 {
		return fmt.Errorf("add service: rc=%d", int(rc))
	}
	if ownership == ServerOwnsService {
		svc.Release()
	}
	return nil
}

func (s *Server) Start(port int, opts *ServerOptions) error {
	if opts == nil {
		opts = &ServerOptions{}
	}
	idle := opts.IdleTimeout
	if idle == 0 {
		idle = consts.DefaultIdleTimeout
	}

	if rc := C.brpcsys_server_start(s.inner, C.int(port), C.int(idle/time.Second), C.int(opts.NumThreads)); rc != 0 {
		return fmt.Errorf("start server on port %d: rc=%d", port, int(rc))
	}
	s.log.Info("server started", zap.Int("port", port), zap.Duration("idle_timeout", idle))
	return nil
}

// RunUntilAskedToQuit blocks until the process receives SIGINT or SIGTERM.
func (s *Server) RunUntilAskedToQuit() {
	C.brpcsys_server_run_until_asked_to_quit(s.inner)
}

// Run blocks until ctx is done or the process is asked to quit, then stops
// the server.
func (s *Server) Run(ctx context.Context) error {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-t.C:
			if IsAskedToQuit() {
				s.Stop()
				return nil
			}
		}
	}
}

func (s *Server) Stop() {
	C.brpcsys_server_stop(s.inner)
	s.log.Info("server stopped")
}

func (s *Server) Close() {
	if s.inner != nil {
		C.brpcsys_server_destroy(s.inner)
		s.inner = nil
	}
}

func IsAskedToQuit() bool {
	return C.brpcsys_is_asked_to_quit() != 0
}
