// Package grpctransport carries bridge calls over gRPC. Attachments travel
// as raw message bodies, the brpc error code travels in a trailer.
package grpctransport

import (
	"context"
	"net"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"

	"github.com/ozontech/brpcgen/bridge"
	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/consts"
	"github.com/ozontech/brpcgen/schema"
	"github.com/ozontech/brpcgen/zerocopy"
)

type conf struct {
	log        *zap.Logger
	reflection []*schema.File
	blockOpts  []zerocopy.Option
	grpcOpts   []grpc.ServerOption
}

type Option func(*conf)

func WithLogger(log *zap.Logger) Option {
	return func(c *conf) {
		c.log = log
	}
}

// WithReflection serves gRPC reflection for the transport schemas of files.
func WithReflection(files ...*schema.File) Option {
	return func(c *conf) {
		c.reflection = append(c.reflection, files...)
	}
}

// WithBlocks configures the attachments of every served call.
func WithBlocks(opts ...zerocopy.Option) Option {
	return func(c *conf) {
		c.blockOpts = append(c.blockOpts, opts...)
	}
}

func WithServerOptions(opts ...grpc.ServerOption) Option {
	return func(c *conf) {
		c.grpcOpts = append(c.grpcOpts, opts...)
	}
}

// Server serves every service of a Mux. Calls for unknown services are
// answered by the Mux itself.
type Server struct {
	mux  *bridge.Mux
	grpc *grpc.Server
	conf
}

func NewServer(mux *bridge.Mux, opts ...Option) (*Server, error) {
	c := conf{log: zap.NewNop()}
	for _, o := range opts {
		o(&c)
	}
	c.log = c.log.Named("grpc")

	s := &Server{mux: mux, conf: c}
	s.grpc = grpc.NewServer(append(c.grpcOpts, grpc.UnknownServiceHandler(s.handle))...)

	if len(c.reflection) > 0 {
		reg, err := schema.TransportRegistry(c.reflection...)
		if err != nil {
			return nil, err
		}
		reflectionpb.RegisterServerReflectionServer(s.grpc, reflection.NewServerV1(reflection.ServerOptions{
			Services:           s,
			DescriptorResolver: reg,
		}))
	}
	return s, nil
}

// GetServiceInfo lists the services of the Mux for reflection.
func (s *Server) GetServiceInfo() map[string]grpc.ServiceInfo {
	out := make(map[string]grpc.ServiceInfo)
	for _, svc := range s.mux.Services() {
		info := grpc.ServiceInfo{Metadata: consts.CodecName}
		for _, m := range svc.Methods() {
			info.Methods = append(info.Methods, grpc.MethodInfo{Name: m})
		}
		out[svc.Name()] = info
	}
	return out
}

func (s *Server) handle(_ any, stream grpc.ServerStream) error {
	full, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "method is unknown")
	}
	method, ok := brpc.ParseMethodRef(full)
	if !ok {
		return status.Errorf(codes.Unimplemented, "malformed method %q", full)
	}

	cntl := brpc.NewController(s.blockOpts...)
	defer cntl.Reset()

	req := &frame{blocks: cntl.RequestAttachment()}
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	if req.err != nil {
		code := frameCode(req.err, brpc.EREQUEST)
		s.log.Debug("request rejected", zap.Stringer("method", method), zap.Error(req.err))
		stream.SetTrailer(metadata.Pairs(consts.ErrorCodeHeader, strconv.Itoa(int(code))))
		return status.Error(grpcCode(code), req.err.Error())
	}

	s.mux.CallMethod(stream.Context(), method, cntl, nil)
	if cntl.Failed() {
		s.log.Debug("call failed",
			zap.Stringer("method", method),
			zap.Stringer("code", cntl.ErrorCode()),
			zap.String("text", cntl.ErrorText()),
		)
		stream.SetTrailer(metadata.Pairs(consts.ErrorCodeHeader, strconv.Itoa(int(cntl.ErrorCode()))))
		return status.Error(grpcCode(cntl.ErrorCode()), cntl.ErrorText())
	}
	return stream.SendMsg(&frame{blocks: cntl.ResponseAttachment()})
}

// Serve accepts connections on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("serving", zap.Stringer("addr", lis.Addr()))
		return s.grpc.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		s.grpc.GracefulStop()
		return nil
	})
	return g.Wait()
}

func (s *Server) Stop() {
	s.grpc.Stop()
}
