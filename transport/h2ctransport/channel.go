package h2ctransport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/http2"

	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/consts"
	"github.com/ozontech/brpcgen/zerocopy"
)

// Channel is a brpc.Channel posting calls to a base URL.
type Channel struct {
	base   string
	client *http.Client
}

var _ brpc.Channel = (*Channel)(nil)

// NewChannel accepts "host:port" or a full http:// URL.
func NewChannel(addr string, opts ...Option) *Channel {
	c := newConf(opts)
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	if c.client == nil {
		c.client = &http.Client{
			Timeout: consts.DefaultTimeout,
			Transport: &http2.Transport{
				AllowHTTP: true,
				DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, network, addr)
				},
			},
		}
	}
	return &Channel{base: strings.TrimSuffix(addr, "/"), client: c.client}
}

func (c *Channel) CallMethod(ctx context.Context, method brpc.MethodRef, cntl *brpc.Controller) {
	reqBlocks := cntl.RequestAttachment()
	body := newRequestBody(reqBlocks)
	// транспорт может читать и закрывать тело после возврата из Do,
	// а вызывающий сразу после CallMethod отдаёт блоки в пул
	defer body.detach()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+method.Path(), body)
	if err != nil {
		cntl.SetFailed(brpc.EREQUEST, "%s: %v", method, err)
		return
	}
	req.ContentLength = int64(reqBlocks.Len())
	req.Header.Set("Content-Type", consts.ContentType)

	resp, err := c.client.Do(req)
	if err != nil {
		cntl.SetFailed(transportCode(ctx, err), "%s: %v", method, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fail(cntl, method, resp)
		return
	}
	if _, err := cntl.ResponseAttachment().ReadFrom(resp.Body); err != nil {
		cntl.ResponseAttachment().Reset()
		code := brpc.ERESPONSE
		if errors.Is(err, zerocopy.ErrLimitExceeded) {
			code = brpc.ELIMIT
		}
		cntl.SetFailed(code, "%s: read response: %v", method, err)
	}
}

// fail prefers the JSON status body, then the error code header, then the
// HTTP status.
var errBodyDetached = errors.New("request body is detached from the attachment")

// requestBody reads a request attachment until it is detached. After
// detach returns no read touches the attachment.
type requestBody struct {
	mu sync.Mutex
	r  *zerocopy.BufReader
}

func newRequestBody(b *zerocopy.Blocks) *requestBody {
	return &requestBody{r: zerocopy.NewBufReader(b.NewReader())}
}

func (b *requestBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.r == nil {
		return 0, errBodyDetached
	}
	return b.r.Read(p)
}

func (b *requestBody) Close() error {
	b.detach()
	return nil
}

func (b *requestBody) detach() {
	b.mu.Lock()
	b.r = nil
	b.mu.Unlock()
}

func fail(cntl *brpc.Controller, method brpc.MethodRef, resp *http.Response) {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if st, err := unmarshalStatus(body); err == nil && st.Code != brpc.NOERROR {
		cntl.SetFailed(st.Code, "%s", st.Text)
		return
	}

	code := codeOf(resp.StatusCode)
	if v := resp.Header.Get(consts.ErrorCodeHeader); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			code = brpc.FromCode(int32(n))
		}
	}
	cntl.SetFailed(code, "%s: %s", method, resp.Status)
}

func transportCode(ctx context.Context, err error) brpc.ErrorCode {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return brpc.ERPCTIMEDOUT
	case ctx.Err() != nil:
		return brpc.ECLOSE
	default:
		return brpc.EFAILEDSOCKET
	}
}
