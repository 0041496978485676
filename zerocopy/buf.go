// Package zerocopy exposes chunked, non-contiguous storage as a cursor
// without copying it into one contiguous slice.
package zerocopy

import "errors"

var (
	ErrExhausted     = errors.New("buffer exhausted")
	ErrLimitExceeded = errors.New("blocks size limit exceeded")
)

// InputStream отдает очередной непрерывный блок на чтение.
type InputStream interface {
	Next() ([]byte, bool)
}

// OutputStream отдает очередной блок на запись. BackUp возвращает
// неиспользованный хвост последнего блока.
type OutputStream interface {
	Next() ([]byte, bool)
	BackUp(n int)
}

// Buf is a read view over a chunked buffer.
//
// Window is empty only when Remaining is zero. Advance crosses block
// boundaries transparently.
type Buf interface {
	Remaining() uint64
	Window() []byte
	Advance(n int) bool
}

// BufMut is a write view over a chunked buffer. Bytes become part of the
// buffer once they are written into Window and consumed by Advance.
// Flush hands the unused part of the window back to the storage.
type BufMut interface {
	Remaining() uint64
	Window() []byte
	Advance(n int) bool
	Flush()
}
