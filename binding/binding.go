// Package binding turns typed handlers and calls into the flat dispatch
// contract of the bridge. Generated bindings and pure Go hosts both use it.
package binding

import (
	"context"

	"google.golang.org/protobuf/proto"

	"github.com/ozontech/brpcgen/bridge"
	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/zerocopy"
)

// Message is satisfied by pointers to generated message structs.
type Message[T any] interface {
	*T
	proto.Message
}

// Handler serves one method. The response is allocated by the caller.
type Handler[PReq, PResp proto.Message] func(req PReq, resp PResp) error

// Adapt returns the dispatch pair of fn: fn itself travels as the context
// and the dispatch function decodes the request once, calls fn once and
// encodes the response once. Any failure is reported as -1.
func Adapt[Req, Resp any, PReq Message[Req], PResp Message[Resp]](fn func(PReq, PResp) error) (any, bridge.DispatchFunc) {
	return Handler[PReq, PResp](fn), dispatch[Req, Resp, PReq, PResp]
}

func dispatch[Req, Resp any, PReq Message[Req], PResp Message[Resp]](ctx any, req zerocopy.Buf, resp zerocopy.BufMut) int32 {
	fn, ok := ctx.(Handler[PReq, PResp])
	if !ok {
		return -1
	}

	in := PReq(new(Req))
	if err := brpc.Decode(req, in); err != nil {
		return -1
	}
	out := PResp(new(Resp))
	if err := fn(in, out); err != nil {
		return -1
	}
	if err := brpc.Encode(resp, out); err != nil {
		return -1
	}
	return 0
}

func SetHandler[Req, Resp any, PReq Message[Req], PResp Message[Resp]](svc *bridge.Service, method string, fn func(PReq, PResp) error) error {
	ctx, d := Adapt(fn)
	return svc.SetHandler(method, ctx, d)
}

// Invoke encodes req into the request attachment, runs call and decodes
// the response. Errors match brpc.ErrSerialize, brpc.ErrDeserialize or
// carry the transport code reported by the controller.
func Invoke[Resp any, PResp Message[Resp]](cntl brpc.CallControl, req proto.Message, call func()) (PResp, error) {
	if err := brpc.Encode(cntl.RequestBuf(), req); err != nil {
		return nil, err
	}

	call()
	if cntl.Failed() {
		if err := cntl.Err(); err != nil {
			return nil, err
		}
		return nil, brpc.NewError(brpc.UNKNOWN, "call failed")
	}

	out := PResp(new(Resp))
	if err := brpc.Decode(cntl.ResponseBuf(), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Call performs one call of method through stub.
func Call[Resp any, PResp Message[Resp]](ctx context.Context, stub *bridge.Stub, method string, req proto.Message, opts ...zerocopy.Option) (PResp, error) {
	cntl := brpc.NewController(opts...)
	defer cntl.Reset()

	return Invoke[Resp, PResp](cntl, req, func() {
		stub.CallMethod(ctx, method, cntl)
	})
}
