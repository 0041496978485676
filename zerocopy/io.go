package zerocopy

import "io"

// BufReader reads a Buf as an io.Reader and io.ByteReader.
type BufReader struct {
	b Buf
}

func NewBufReader(b Buf) *BufReader {
	return &BufReader{b}
}

func (r *BufReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.b.Remaining() == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.b.Window())
	r.b.Advance(n)
	return n, nil
}

func (r *BufReader) ReadByte() (byte, error) {
	w := r.b.Window()
	if len(w) == 0 {
		return 0, io.EOF
	}
	c := w[0]
	r.b.Advance(1)
	return c, nil
}

// BufWriter writes into a BufMut. Call Flush on the underlying BufMut
// when done.
type BufWriter struct {
	b BufMut
}

func NewBufWriter(b BufMut) *BufWriter {
	return &BufWriter{b}
}

func (w *BufWriter) Write(p []byte) (int, error) {
	var n int
	for n < len(p) {
		win := w.b.Window()
		if len(win) == 0 {
			return n, ErrExhausted
		}
		c := copy(win, p[n:])
		if !w.b.Advance(c) {
			return n, ErrExhausted
		}
		n += c
	}
	return n, nil
}
