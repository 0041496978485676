//go:build cgo && brpc

package brpcsys

/*
#include <stdlib.h>
#include "ffi.h"
*/
import "C"

import (
	"unsafe"

	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/zerocopy"
)

// Controller owns a brpc::Controller for a single client call.
type Controller struct {
	_     NoCopy
	inner unsafe.Pointer
	bufs  []interface{ Close() }
}

var _ brpc.CallControl = (*Controller)(nil)

func NewController() *Controller {
	return &Controller{inner: C.brpcsys_controller_new()}
}

func (c *Controller) Ptr() unsafe.Pointer {
	return c.inner
}

// RequestBuf returns a writer over the request attachment. It lives until
// Close.
func (c *Controller) RequestBuf() zerocopy.BufMut {
	w := &ZeroCopyBufMut{inner: C.brpcsys_zc_buf_mut_new(C.brpcsys_controller_request_attachment(c.inner)), owned: true}
	c.bufs = append(c.bufs, w)
	return w
}

// ResponseBuf returns a reader over the response attachment as it is now.
func (c *Controller) ResponseBuf() zerocopy.Buf {
	r := &ZeroCopyBuf{inner: C.brpcsys_zc_buf_new(C.brpcsys_controller_response_attachment(c.inner)), owned: true}
	c.bufs = append(c.bufs, r)
	return r
}

func (c *Controller) Failed() bool {
	return C.brpcsys_controller_failed(c.inner) != 0
}

func (c *Controller) ErrorCode() brpc.ErrorCode {
	return brpc.FromCode(int32(C.brpcsys_controller_error_code(c.inner)))
}

func (c *Controller) ErrorText() string {
	return C.GoString(C.brpcsys_controller_error_text(c.inner))
}

func (c *Controller) Err() error {
	if !c.Failed() {
		return nil
	}
	return brpc.NewError(c.ErrorCode(), c.ErrorText())
}

func (c *Controller) SetFailed(code brpc.ErrorCode, text string) {
	if code == brpc.NOERROR {
		code = brpc.UNKNOWN
	}
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	C.brpcsys_controller_set_failed(c.inner, C.int(code), ctext)
}

func (c *Controller) Close() {
	for _, b := range c.bufs {
		b.Close()
	}
	c.bufs = nil
	if c.inner != nil {
		C.brpcsys_controller_destroy(c.inner)
		c.inner = nil
	}
}
