//go:build cgo && brpc

package brpcsys

/*
#include <stdlib.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"go.uber.org/zap"

	"github.com/ozontech/brpcgen/bridge"
)

type dispatchContext struct {
	ctx any
	fn  bridge.DispatchFunc
}

// NewContext returns a native pointer that carries ctx and fn through the
// shim back to brpcsys_dispatch. It must be freed with FreeContext after
// the owning service is destroyed.
func NewContext(ctx any, fn bridge.DispatchFunc) unsafe.Pointer {
	p := C.malloc(C.size_t(unsafe.Sizeof(cgo.Handle(0))))
	*(*cgo.Handle)(p) = cgo.NewHandle(dispatchContext{ctx: ctx, fn: fn})
	return p
}

func FreeContext(p unsafe.Pointer) {
	if p == nil {
		return
	}
	(*(*cgo.Handle)(p)).Delete()
	C.free(p)
}

//export brpcsys_dispatch
func brpcsys_dispatch(handle, req, resp unsafe.Pointer) (rc C.int) {
	dc, ok := (*(*cgo.Handle)(handle)).Value().(dispatchContext)
	if !ok {
		return -1
	}

	// паника не должна пересечь границу C++
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("dispatch panicked", zap.Any("panic", r))
			rc = -1
		}
	}()
	return C.int(dc.fn(dc.ctx, &ZeroCopyBuf{inner: req}, &ZeroCopyBufMut{inner: resp}))
}
