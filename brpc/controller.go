package brpc

import (
	"fmt"

	"github.com/ozontech/brpcgen/zerocopy"
)

// CallControl is what a typed client call needs from a controller.
type CallControl interface {
	RequestBuf() zerocopy.BufMut
	ResponseBuf() zerocopy.Buf
	Failed() bool
	Err() error
}

// Controller carries a single call: request and response attachments and
// the failure status. It must not be shared between concurrent calls.
type Controller struct {
	request  *zerocopy.Blocks
	response *zerocopy.Blocks
	failed   bool
	code     ErrorCode
	text     string
}

var _ CallControl = (*Controller)(nil)

func NewController(opts ...zerocopy.Option) *Controller {
	return &Controller{
		request:  zerocopy.NewBlocks(opts...),
		response: zerocopy.NewBlocks(opts...),
	}
}

func (c *Controller) RequestAttachment() *zerocopy.Blocks  { return c.request }
func (c *Controller) ResponseAttachment() *zerocopy.Blocks { return c.response }

// RequestBuf returns a writer appending to the request attachment.
func (c *Controller) RequestBuf() zerocopy.BufMut {
	return c.request.NewWriter()
}

// ResponseBuf returns a reader over the response attachment.
func (c *Controller) ResponseBuf() zerocopy.Buf {
	return c.response.NewReader()
}

func (c *Controller) SetFailed(code ErrorCode, format string, args ...any) {
	if code == NOERROR {
		code = UNKNOWN
	}
	c.failed = true
	c.code = code
	c.text = fmt.Sprintf(format, args...)
}

func (c *Controller) Failed() bool         { return c.failed }
func (c *Controller) ErrorCode() ErrorCode { return c.code }
func (c *Controller) ErrorText() string    { return c.text }

func (c *Controller) Err() error {
	if !c.failed {
		return nil
	}
	return NewError(c.code, c.text)
}

// Reset prepares the controller for another call.
func (c *Controller) Reset() {
	c.request.Reset()
	c.response.Reset()
	c.failed = false
	c.code = NOERROR
	c.text = ""
}
