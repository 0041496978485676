// Package h2ctransport carries bridge calls the way brpc's HTTP protocol
// does: POST /package.Service/Method with the attachment as the body. The
// server speaks HTTP/1.1 and cleartext HTTP/2.
package h2ctransport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/ozontech/brpcgen/bridge"
	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/consts"
	"github.com/ozontech/brpcgen/zerocopy"
)

type conf struct {
	log       *zap.Logger
	blockOpts []zerocopy.Option
	client    *http.Client
}

type Option func(*conf)

func WithLogger(log *zap.Logger) Option {
	return func(c *conf) {
		c.log = log
	}
}

// WithBlocks configures the attachments of every served call.
func WithBlocks(opts ...zerocopy.Option) Option {
	return func(c *conf) {
		c.blockOpts = append(c.blockOpts, opts...)
	}
}

// WithHTTPClient replaces the prior knowledge h2c client of a Channel.
func WithHTTPClient(client *http.Client) Option {
	return func(c *conf) {
		c.client = client
	}
}

func newConf(opts []Option) conf {
	c := conf{log: zap.NewNop()}
	for _, o := range opts {
		o(&c)
	}
	return c
}

type Server struct {
	mux *bridge.Mux
	conf
}

var _ http.Handler = (*Server)(nil)

func NewServer(mux *bridge.Mux, opts ...Option) *Server {
	c := newConf(opts)
	c.log = c.log.Named("h2c")
	return &Server{mux: mux, conf: c}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	method, ok := brpc.ParseMethodRef(r.URL.Path)
	if !ok {
		s.fail(w, brpc.ENOMETHOD, "malformed method "+r.URL.Path)
		return
	}

	cntl := brpc.NewController(s.blockOpts...)
	defer cntl.Reset()

	if _, err := cntl.RequestAttachment().ReadFrom(r.Body); err != nil {
		if errors.Is(err, zerocopy.ErrLimitExceeded) {
			s.fail(w, brpc.ELIMIT, err.Error())
			return
		}
		s.fail(w, brpc.EREQUEST, err.Error())
		return
	}

	s.mux.CallMethod(r.Context(), method, cntl, nil)
	if cntl.Failed() {
		s.log.Debug("call failed",
			zap.Stringer("method", method),
			zap.Stringer("code", cntl.ErrorCode()),
			zap.String("text", cntl.ErrorText()),
		)
		s.fail(w, cntl.ErrorCode(), cntl.ErrorText())
		return
	}

	resp := cntl.ResponseAttachment()
	w.Header().Set("Content-Type", consts.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(resp.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := resp.WriteTo(w); err != nil {
		s.log.Debug("response write failed", zap.Stringer("method", method), zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, code brpc.ErrorCode, text string) {
	body := callStatus{Code: code, Text: text}.marshal()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(consts.ErrorCodeHeader, strconv.Itoa(int(code)))
	w.WriteHeader(httpStatus(code))
	_, _ = w.Write(body)
}

// Handler serves HTTP/1.1 and prior knowledge cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s, &http2.Server{IdleTimeout: consts.DefaultIdleTimeout})
}

// Serve accepts connections on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		IdleTimeout: consts.DefaultIdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("serving", zap.Stringer("addr", lis.Addr()))
		if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), consts.DefaultTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
