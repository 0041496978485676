//go:build cgo && brpc

package brpcsys

/*
#include "ffi.h"
*/
import "C"

import (
	"errors"
	"unsafe"

	"github.com/ozontech/brpcgen/zerocopy"
)

var errAppend = errors.New("iobuf append failed")

// IOBuf owns a butil::IOBuf.
type IOBuf struct {
	_     NoCopy
	inner unsafe.Pointer
}

func NewIOBuf() *IOBuf {
	return &IOBuf{inner: C.brpcsys_iobuf_new()}
}

func (b *IOBuf) Len() int {
	return int(C.brpcsys_iobuf_size(b.inner))
}

func (b *IOBuf) Append(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if C.brpcsys_iobuf_append(b.inner, unsafe.Pointer(&p[0]), C.size_t(len(p))) != 0 {
		return errAppend
	}
	return nil
}

// Bytes copies the content out.
func (b *IOBuf) Bytes() []byte {
	out := make([]byte, b.Len())
	if len(out) > 0 {
		C.brpcsys_iobuf_copy_to(b.inner, unsafe.Pointer(&out[0]), C.size_t(len(out)))
	}
	return out
}

// NewReader returns a reader over the current content. The reader must be
// closed before the buffer.
func (b *IOBuf) NewReader() *ZeroCopyBuf {
	return &ZeroCopyBuf{inner: C.brpcsys_zc_buf_new(b.inner), owned: true}
}

// NewWriter returns a writer appending to the buffer.
func (b *IOBuf) NewWriter() *ZeroCopyBufMut {
	return &ZeroCopyBufMut{inner: C.brpcsys_zc_buf_mut_new(b.inner), owned: true}
}

func (b *IOBuf) Close() {
	if b.inner != nil {
		C.brpcsys_iobuf_destroy(b.inner)
		b.inner = nil
	}
}

// ZeroCopyBuf is a zerocopy.Buf backed by butil::ZeroCopyBuf. Windows
// point into native memory and stay valid until the next Advance.
type ZeroCopyBuf struct {
	inner unsafe.Pointer
	owned bool
}

var _ zerocopy.Buf = (*ZeroCopyBuf)(nil)

func (b *ZeroCopyBuf) Remaining() uint64 {
	return uint64(C.brpcsys_zc_buf_remaining(b.inner))
}

func (b *ZeroCopyBuf) Window() []byte {
	var data unsafe.Pointer
	var size C.int
	C.brpcsys_zc_buf_bytes(b.inner, &data, &size)
	return window(data, size)
}

func (b *ZeroCopyBuf) Advance(n int) bool {
	return C.brpcsys_zc_buf_advance(b.inner, C.int(n)) != 0
}

func (b *ZeroCopyBuf) Close() {
	if b.owned && b.inner != nil {
		C.brpcsys_zc_buf_destroy(b.inner)
	}
	b.inner = nil
}

// ZeroCopyBufMut is a zerocopy.BufMut backed by butil::ZeroCopyBufMut.
type ZeroCopyBufMut struct {
	inner unsafe.Pointer
	owned bool
}

var _ zerocopy.BufMut = (*ZeroCopyBufMut)(nil)

func (b *ZeroCopyBufMut) Remaining() uint64 {
	return uint64(C.brpcsys_zc_buf_mut_remaining(b.inner))
}

func (b *ZeroCopyBufMut) Window() []byte {
	var data unsafe.Pointer
	var size C.int
	C.brpcsys_zc_buf_mut_bytes(b.inner, &data, &size)
	return window(data, size)
}

func (b *ZeroCopyBufMut) Advance(n int) bool {
	if n < 0 {
		return false
	}
	return C.brpcsys_zc_buf_mut_advance(b.inner, C.size_t(n)) != 0
}

func (b *ZeroCopyBufMut) Flush() {
	C.brpcsys_zc_buf_mut_flush(b.inner)
}

func (b *ZeroCopyBufMut) Close() {
	if b.owned && b.inner != nil {
		C.brpcsys_zc_buf_mut_flush(b.inner)
		C.brpcsys_zc_buf_mut_destroy(b.inner)
	}
	b.inner = nil
}

func window(data unsafe.Pointer, size C.int) []byte {
	if data == nil || size <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(data), int(size))
}
