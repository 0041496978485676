package grpctransport

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ozontech/brpcgen/binding"
	"github.com/ozontech/brpcgen/bridge"
	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/consts"
	"github.com/ozontech/brpcgen/schema"
	"github.com/ozontech/brpcgen/zerocopy"
)

var echoFile = &schema.File{
	Path:    "demo/echo.proto",
	Package: "demo",
	Services: []schema.Service{{
		Name: "Echo",
		Methods: []schema.Method{
			{Name: "Say"},
			{Name: "Fail"},
		},
	}},
}

func start(t *testing.T, opts ...Option) *grpc.ClientConn {
	t.Helper()

	svc := bridge.NewService(echoFile.Package, echoFile.Services[0])
	require.NoError(t, binding.SetHandler(svc, "Say", func(req, resp *wrapperspb.StringValue) error {
		resp.Value = "echo: " + req.GetValue()
		return nil
	}))
	require.NoError(t, binding.SetHandler(svc, "Fail", func(*wrapperspb.StringValue, *wrapperspb.StringValue) error {
		return errors.New("boom")
	}))
	mux := bridge.NewMux()
	require.NoError(t, mux.Register(svc))

	srv, err := NewServer(mux, append(opts, WithLogger(zaptest.NewLogger(t)))...)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func stub(conn grpc.ClientConnInterface, pkg string) *bridge.Stub {
	return bridge.NewStub(NewChannel(conn), pkg, echoFile.Services[0])
}

func TestCall(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	s := stub(start(t), "demo")
	for _, size := range []int{0, 1, 100, 100_000} {
		msg := string(make([]byte, size))
		resp, err := binding.Call[wrapperspb.StringValue](context.Background(), s, "Say", wrapperspb.String(msg), zerocopy.WithBlockSize(512))
		require.NoError(t, err)
		assert.Equal("echo: "+msg, resp.GetValue())
	}
}

func TestCallErrors(t *testing.T) {
	t.Parallel()
	conn := start(t)

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	tests := []struct {
		name   string
		ctx    context.Context
		stub   *bridge.Stub
		method string
		code   brpc.ErrorCode
	}{
		{"handler failure", context.Background(), stub(conn, "demo"), "Fail", brpc.EINTERNAL},
		{"unknown service", context.Background(), stub(conn, "other"), "Say", brpc.ENOSERVICE},
		{"unknown method", context.Background(), stub(conn, "demo"), "Missing", brpc.ENOMETHOD},
		{"deadline", expired, stub(conn, "demo"), "Say", brpc.ERPCTIMEDOUT},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)

			resp, err := binding.Call[wrapperspb.StringValue](tc.ctx, tc.stub, tc.method, wrapperspb.String("hi"))
			assert.Nil(resp)
			assert.Equal(tc.code, brpc.CodeOf(err))
		})
	}
}

func TestCallLimit(t *testing.T) {
	t.Parallel()
	conn := start(t, WithBlocks(zerocopy.WithLimit(16)))

	tests := []struct {
		name string
		req  string
		opts []zerocopy.Option
	}{
		{"request over server limit", string(make([]byte, 64)), nil},
		{"response over client limit", "hi", []zerocopy.Option{zerocopy.WithLimit(8)}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)

			resp, err := binding.Call[wrapperspb.StringValue](context.Background(), stub(conn, "demo"), "Say", wrapperspb.String(tc.req), tc.opts...)
			assert.Nil(resp)
			assert.Equal(brpc.ELIMIT, brpc.CodeOf(err), "%v", err)
		})
	}
}

func TestLimitStatus(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	conn := start(t, WithBlocks(zerocopy.WithLimit(16)))
	req := zerocopy.NewBlocks()
	_, err := req.Write(make([]byte, 64))
	require.NoError(t, err)

	var trailer metadata.MD
	err = conn.Invoke(context.Background(), "/demo.Echo/Say",
		&frame{blocks: req},
		&frame{blocks: zerocopy.NewBlocks()},
		grpc.CallContentSubtype(consts.CodecName),
		grpc.Trailer(&trailer),
	)
	assert.Equal(codes.ResourceExhausted, status.Code(err))
	assert.Equal([]string{strconv.Itoa(int(brpc.ELIMIT))}, trailer.Get(consts.ErrorCodeHeader))
}

func TestReflection(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	conn := start(t, WithReflection(echoFile))
	files, err := schema.NewRemoteLoader(conn).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Equal("demo/echo.proto", f.Path)
	require.Len(t, f.Services, 1)
	assert.Equal("Echo", f.Services[0].Name)
	assert.Equal([]string{"Say", "Fail"}, f.Services[0].MethodNames())

	say, ok := f.Services[0].Method("Say")
	require.True(t, ok)
	assert.Equal(schema.TransportRequest, say.Input.Name)
	assert.Equal(schema.TransportResponse, say.Output.Name)
}

func TestCodecRejectsForeignMessages(t *testing.T) {
	t.Parallel()

	_, err := codec{}.Marshal(wrapperspb.String("x"))
	assert.Error(t, err)
	assert.Error(t, codec{}.Unmarshal(nil, wrapperspb.String("x")))
}

func TestCodecUnmarshalKeepsStorageError(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	f := &frame{blocks: zerocopy.NewBlocks(zerocopy.WithLimit(4))}
	assert.NoError(codec{}.Unmarshal(make([]byte, 8), f))
	assert.ErrorIs(f.err, zerocopy.ErrLimitExceeded)
	assert.Equal(brpc.ELIMIT, frameCode(f.err, brpc.ERESPONSE))
	assert.Equal(brpc.ERESPONSE, frameCode(errors.New("boom"), brpc.ERESPONSE))

	f = &frame{blocks: zerocopy.NewBlocks()}
	assert.NoError(codec{}.Unmarshal([]byte("abc"), f))
	assert.NoError(f.err)
	assert.Equal([]byte("abc"), f.blocks.Bytes())
}
