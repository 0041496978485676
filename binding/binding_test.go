package binding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ozontech/brpcgen/bridge"
	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/schema"
	"github.com/ozontech/brpcgen/zerocopy"
)

type StringValue = wrapperspb.StringValue

var echoDesc = schema.Service{
	Name: "Echo",
	Methods: []schema.Method{
		{Name: "Say"},
		{Name: "Fail"},
		{Name: "Unset"},
	},
}

var errHandler = errors.New("handler error")

func newEcho(t *testing.T) (*bridge.Service, *bridge.Stub) {
	t.Helper()

	svc := bridge.NewService("demo", echoDesc)
	require.NoError(t, SetHandler(svc, "Say", func(req *StringValue, resp *StringValue) error {
		resp.Value = "echo: " + req.GetValue()
		return nil
	}))
	require.NoError(t, SetHandler(svc, "Fail", func(*StringValue, *StringValue) error {
		return errHandler
	}))

	mux := bridge.NewMux()
	require.NoError(t, mux.Register(svc))
	return svc, bridge.NewStub(bridge.NewLocalChannel(mux), "demo", echoDesc)
}

func TestCall(t *testing.T) {
	t.Parallel()
	_, stub := newEcho(t)

	resp, err := Call[StringValue](context.Background(), stub, "Say", wrapperspb.String("hi"))
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", resp.GetValue())
}

func TestCallSmallBlocks(t *testing.T) {
	t.Parallel()
	_, stub := newEcho(t)

	long := string(make([]byte, 1000))
	resp, err := Call[StringValue](context.Background(), stub, "Say", wrapperspb.String(long), zerocopy.WithBlockSize(7))
	require.NoError(t, err)
	assert.Equal(t, "echo: "+long, resp.GetValue())
}

func TestHandlerFailureMapping(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	_, stub := newEcho(t)

	for i := 0; i < 3; i++ {
		resp, err := Call[StringValue](context.Background(), stub, "Fail", wrapperspb.String("hi"))
		assert.Nil(resp)
		assert.ErrorIs(err, &brpc.Error{Code: brpc.EINTERNAL})
		assert.True(brpc.IsTransport(err))
		assert.NotErrorIs(err, errHandler)
	}
}

func TestUnsetHandlerPanics(t *testing.T) {
	t.Parallel()
	svc, _ := newEcho(t)

	var done int
	cntl := brpc.NewController()
	assert.PanicsWithError(t, "demo.Echo.Unset: "+bridge.ErrHandlerNotSet.Error(), func() {
		svc.CallMethod("Unset", cntl, func() { done++ })
	})
	assert.Equal(t, 1, done)
}

func TestCompletionRunsOnce(t *testing.T) {
	t.Parallel()
	svc, _ := newEcho(t)

	tests := []struct {
		name    string
		method  string
		request func(*testing.T, *brpc.Controller)
		opts    []zerocopy.Option
		failed  bool
	}{
		{
			name:   "success",
			method: "Say",
			request: func(t *testing.T, cntl *brpc.Controller) {
				require.NoError(t, brpc.Encode(cntl.RequestBuf(), wrapperspb.String("hi")))
			},
		},
		{
			name:   "decode failure",
			method: "Say",
			request: func(t *testing.T, cntl *brpc.Controller) {
				_, err := cntl.RequestAttachment().Write([]byte{0x09, 0x0a})
				require.NoError(t, err)
			},
			failed: true,
		},
		{
			name:   "handler failure",
			method: "Fail",
			request: func(t *testing.T, cntl *brpc.Controller) {
				require.NoError(t, brpc.Encode(cntl.RequestBuf(), wrapperspb.String("hi")))
			},
			failed: true,
		},
		{
			name:   "encode failure",
			method: "Say",
			request: func(t *testing.T, cntl *brpc.Controller) {
				require.NoError(t, brpc.Encode(cntl.RequestBuf(), wrapperspb.String("hi")))
			},
			opts:   []zerocopy.Option{zerocopy.WithBlockSize(4), zerocopy.WithLimit(8)},
			failed: true,
		},
		{
			name:    "unknown method",
			method:  "Missing",
			request: func(*testing.T, *brpc.Controller) {},
			failed:  true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			cntl := brpc.NewController(tc.opts...)
			tc.request(t, cntl)

			var done int
			svc.CallMethod(tc.method, cntl, func() { done++ })
			assert.Equal(1, done)
			assert.Equal(tc.failed, cntl.Failed())
			if tc.failed {
				assert.Equal(0, cntl.ResponseAttachment().Len())
			}
		})
	}
}

func TestInvokeErrorKinds(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	var called bool
	cntl := brpc.NewController(zerocopy.WithBlockSize(2), zerocopy.WithLimit(2))
	_, err := Invoke[StringValue](cntl, wrapperspb.String("too long"), func() { called = true })
	assert.ErrorIs(err, brpc.ErrSerialize)
	assert.False(brpc.IsTransport(err))
	assert.False(called)

	cntl = brpc.NewController()
	_, err = Invoke[StringValue](cntl, wrapperspb.String("hi"), func() {
		_, _ = cntl.ResponseAttachment().Write([]byte{0x03, 0xff, 0xff, 0xff})
	})
	assert.ErrorIs(err, brpc.ErrDeserialize)
	assert.False(brpc.IsTransport(err))

	cntl = brpc.NewController()
	_, err = Invoke[StringValue](cntl, wrapperspb.String("hi"), func() {
		cntl.SetFailed(brpc.EFAILEDSOCKET, "connection reset")
	})
	assert.ErrorIs(err, &brpc.Error{Code: brpc.EFAILEDSOCKET})
	assert.True(brpc.IsTransport(err))
}

func TestCallRoutingErrors(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	_, stub := newEcho(t)

	_, err := Call[StringValue](context.Background(), stub, "Missing", wrapperspb.String("hi"))
	assert.Equal(brpc.ENOMETHOD, brpc.CodeOf(err))

	other := bridge.NewStub(bridge.NewLocalChannel(bridge.NewMux()), "demo", echoDesc)
	_, err = Call[StringValue](context.Background(), other, "Say", wrapperspb.String("hi"))
	assert.Equal(brpc.ENOSERVICE, brpc.CodeOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Call[StringValue](ctx, stub, "Say", wrapperspb.String("hi"))
	assert.Equal(brpc.ECLOSE, brpc.CodeOf(err))
}

func TestSetHandlerUnknownMethod(t *testing.T) {
	t.Parallel()
	svc, _ := newEcho(t)
	err := SetHandler(svc, "Missing", func(*StringValue, *StringValue) error { return nil })
	assert.Equal(t, brpc.ENOMETHOD, brpc.CodeOf(err))
}

func TestDispatchRejectsForeignContext(t *testing.T) {
	t.Parallel()
	_, d := Adapt(func(*StringValue, *StringValue) error { return nil })

	b := zerocopy.NewBlocks()
	require.NoError(t, brpc.Encode(b.NewWriter(), wrapperspb.String("hi")))
	out := zerocopy.NewBlocks()
	assert.Equal(t, int32(-1), d("not a handler", b.NewReader(), out.NewWriter()))
}
