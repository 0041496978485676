package zerocopy

// Reader is a Buf over an InputStream holding exactly length bytes.
type Reader struct {
	window   []byte
	consumed uint64
	capacity uint64
	stream   InputStream
}

var _ Buf = (*Reader)(nil)

func NewReader(stream InputStream, length uint64) *Reader {
	r := &Reader{capacity: length, stream: stream}
	r.fetch()
	return r
}

func (r *Reader) Remaining() uint64 {
	return r.capacity - r.consumed
}

func (r *Reader) Window() []byte {
	return r.window
}

// Advance consumes n bytes. Asking for more than Remaining consumes
// whatever is left and reports false.
func (r *Reader) Advance(n int) bool {
	if n < 0 {
		return false
	}

	left := uint64(n)
	for left > 0 && r.Remaining() > 0 {
		skip := min(uint64(len(r.window)), left)
		r.window = r.window[skip:]
		r.consumed += skip
		left -= skip
		if len(r.window) == 0 {
			r.fetch()
		}
	}
	return left == 0
}

func (r *Reader) fetch() {
	r.window = nil
	for r.Remaining() > 0 {
		block, ok := r.stream.Next()
		if !ok {
			// поток кончился раньше заявленной длины: дальше читать нечего
			r.capacity = r.consumed
			return
		}
		if len(block) == 0 {
			continue
		}
		if rest := r.Remaining(); uint64(len(block)) > rest {
			block = block[:rest]
		}
		r.window = block
		return
	}
}
