package bridge

import (
	"context"

	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/schema"
)

// Stub sends calls of one service over a channel. It only moves prepared
// attachments, the result is inspected on the controller.
type Stub struct {
	ch      brpc.Channel
	service string
	methods map[string]struct{}
}

func NewStub(ch brpc.Channel, pkg string, desc schema.Service) *Stub {
	methods := make(map[string]struct{}, len(desc.Methods))
	for _, m := range desc.Methods {
		methods[m.Name] = struct{}{}
	}
	return &Stub{ch: ch, service: desc.FullName(pkg), methods: methods}
}

func (s *Stub) Service() string {
	return s.service
}

func (s *Stub) CallMethod(ctx context.Context, method string, cntl *brpc.Controller) {
	if _, ok := s.methods[method]; !ok {
		cntl.SetFailed(brpc.ENOMETHOD, "%s has no method %s", s.service, method)
		return
	}
	s.ch.CallMethod(ctx, brpc.MethodRef{Service: s.service, Method: method}, cntl)
}
