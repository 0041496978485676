package zerocopy

import "github.com/ozontech/brpcgen/consts"

// Writer is a BufMut over an OutputStream. Its capacity is unbounded
// until the stream refuses to hand out another block, after which the
// writer stays exhausted.
type Writer struct {
	window    []byte
	consumed  uint64
	exhausted bool
	stream    OutputStream
}

var _ BufMut = (*Writer)(nil)

func NewWriter(stream OutputStream) *Writer {
	w := &Writer{stream: stream}
	w.fetch()
	return w
}

func (w *Writer) Remaining() uint64 {
	if w.exhausted {
		return 0
	}
	return consts.WriterCapacity - w.consumed
}

// Window returns the writable region. After Flush it asks the stream for
// a fresh block.
func (w *Writer) Window() []byte {
	if len(w.window) == 0 && !w.exhausted {
		w.fetch()
	}
	return w.window
}

// Advance marks n bytes of the window as written. It fails without
// touching any state when n exceeds Remaining. It may still report false
// when the stream runs out of blocks midway.
func (w *Writer) Advance(n int) bool {
	if n < 0 || uint64(n) > w.Remaining() {
		return false
	}

	left := uint64(n)
	for left > 0 && !w.exhausted {
		skip := min(uint64(len(w.window)), left)
		w.window = w.window[skip:]
		w.consumed += skip
		left -= skip
		if len(w.window) == 0 {
			w.fetch()
		}
	}
	return left == 0
}

func (w *Writer) Flush() {
	if len(w.window) > 0 {
		w.stream.BackUp(len(w.window))
		w.window = nil
	}
}

// Written is the number of bytes consumed so far.
func (w *Writer) Written() uint64 {
	return w.consumed
}

func (w *Writer) fetch() {
	w.window = nil
	for {
		block, ok := w.stream.Next()
		if !ok {
			w.exhausted = true
			return
		}
		if len(block) > 0 {
			w.window = block
			return
		}
	}
}
