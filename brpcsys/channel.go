//go:build cgo && brpc

package brpcsys

/*
#include <stdlib.h>
#include "ffi.h"
*/
import "C"

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/ozontech/brpcgen/consts"
)

type ChannelOptions struct {
	Timeout  time.Duration
	MaxRetry int
}

// Channel owns a brpc::Channel speaking HTTP.
type Channel struct {
	_     NoCopy
	inner unsafe.Pointer
}

func NewChannel(addr string, opts *ChannelOptions) (*Channel, error) {
	o := ChannelOptions{Timeout: consts.DefaultTimeout, MaxRetry: 3}
	if opts != nil {
		if opts.Timeout != 0 {
			o.Timeout = opts.Timeout
		}
		o.MaxRetry = opts.MaxRetry
	}

	caddr := C.CString(addr)
	defer C.free(unsafe.Pointer(caddr))

	ch := &Channel{inner: C.brpcsys_channel_new()}
	if rc := C.brpcsys_channel_init(ch.inner, caddr, C.int(o.Timeout.Milliseconds()), C.int(o.MaxRetry)); rc != 0 {
		ch.Close()
		return nil, fmt.Errorf("init channel to %s: rc=%d", addr, int(rc))
	}
	return ch, nil
}

func (c *Channel) Ptr() unsafe.Pointer {
	return c.inner
}

func (c *Channel) Close() {
	if c.inner != nil {
		C.brpcsys_channel_destroy(c.inner)
		c.inner = nil
	}
}
