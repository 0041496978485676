package zerocopy

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/ozontech/brpcgen/consts"
	"github.com/ozontech/brpcgen/utils/pool"
)

var defaultPool = pool.NewBoundedSlicePool[[]byte](256)

type conf struct {
	blockSize int
	limit     uint64
	pool      *pool.SlicePool[[]byte]
}

type Option func(*conf)

func WithBlockSize(size int) Option {
	return func(c *conf) {
		c.blockSize = size
	}
}

// WithLimit caps the total size of the buffer. Zero means no limit.
func WithLimit(limit uint64) Option {
	return func(c *conf) {
		c.limit = limit
	}
}

// WithPool sets the pool blocks are taken from and returned to.
// All blocks in the pool must have the configured block size.
func WithPool(p *pool.SlicePool[[]byte]) Option {
	return func(c *conf) {
		c.pool = p
	}
}

// Blocks is chunked storage growing one block at a time. It backs the
// request and response attachments of a call and is not safe for
// concurrent use.
type Blocks struct {
	chunks   [][]byte
	size     uint64
	external int // first external chunks are borrowed and never recycled
	conf
}

func NewBlocks(opts ...Option) *Blocks {
	c := conf{blockSize: consts.DefaultBlockSize}
	for _, o := range opts {
		o(&c)
	}
	if c.blockSize < 1 {
		panic("assertion error: block size < 1")
	}
	if c.pool == nil && c.blockSize == consts.DefaultBlockSize {
		c.pool = defaultPool
	}
	return &Blocks{conf: c}
}

// FromChunks wraps existing chunks without copying them.
func FromChunks(chunks [][]byte, opts ...Option) *Blocks {
	b := NewBlocks(opts...)
	b.chunks = append(b.chunks, chunks...)
	b.external = len(chunks)
	for _, c := range chunks {
		b.size += uint64(len(c))
	}
	return b
}

func (b *Blocks) Len() int {
	return int(b.size)
}

func (b *Blocks) NewReader() *Reader {
	return NewReader(b.InputStream(), b.size)
}

func (b *Blocks) NewWriter() *Writer {
	return NewWriter(b.OutputStream())
}

func (b *Blocks) InputStream() InputStream {
	return &blocksInput{chunks: b.chunks}
}

func (b *Blocks) OutputStream() OutputStream {
	return blocksOutput{b}
}

// Chunks returns the non-empty chunks. The chunk memory is shared with b.
func (b *Blocks) Chunks() [][]byte {
	out := make([][]byte, 0, len(b.chunks))
	for _, c := range b.chunks {
		if len(c) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Bytes copies the content into one contiguous slice.
func (b *Blocks) Bytes() []byte {
	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

func (b *Blocks) Write(p []byte) (int, error) {
	out := blocksOutput{b}
	var n int
	for n < len(p) {
		block, ok := out.Next()
		if !ok {
			return n, ErrLimitExceeded
		}
		c := copy(block, p[n:])
		out.BackUp(len(block) - c)
		n += c
	}
	return n, nil
}

func (b *Blocks) ReadFrom(r io.Reader) (int64, error) {
	out := blocksOutput{b}
	var total int64
	for {
		block, ok := out.Next()
		if !ok {
			// лимит исчерпан: проверяем, что источник тоже пуст
			var probe [1]byte
			n, err := io.ReadFull(r, probe[:])
			switch {
			case n > 0:
				return total, ErrLimitExceeded
			case errors.Is(err, io.EOF):
				return total, nil
			default:
				return total, fmt.Errorf("read: %w", err)
			}
		}

		n, err := r.Read(block)
		out.BackUp(len(block) - n)
		total += int64(n)
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("read: %w", err)
		}
	}
}

func (b *Blocks) WriteTo(w io.Writer) (int64, error) {
	bufs := net.Buffers(b.Chunks())
	return bufs.WriteTo(w)
}

// Reset drops the content and recycles owned blocks.
func (b *Blocks) Reset() {
	for i, c := range b.chunks {
		if i >= b.external && b.pool != nil && cap(c) == b.blockSize {
			b.pool.Release(c[:0])
		}
		b.chunks[i] = nil
	}
	b.chunks = b.chunks[:0]
	b.size = 0
	b.external = 0
}

func (b *Blocks) alloc() []byte {
	if b.pool != nil {
		if block, ok := b.pool.Acquire(); ok {
			return block[:0]
		}
	}
	return make([]byte, 0, b.blockSize)
}

type blocksInput struct {
	chunks [][]byte
	i      int
}

func (s *blocksInput) Next() ([]byte, bool) {
	if s.i >= len(s.chunks) {
		return nil, false
	}
	c := s.chunks[s.i]
	s.i++
	return c, true
}

type blocksOutput struct {
	b *Blocks
}

func (s blocksOutput) Next() ([]byte, bool) {
	b := s.b
	if b.limit > 0 && b.size >= b.limit {
		return nil, false
	}

	l := len(b.chunks)
	if l == 0 || l <= b.external || len(b.chunks[l-1]) == cap(b.chunks[l-1]) {
		b.chunks = append(b.chunks, b.alloc())
		l++
	}

	last := b.chunks[l-1]
	from := len(last)
	grant := cap(last) - from
	if b.limit > 0 {
		grant = int(min(uint64(grant), b.limit-b.size))
	}
	b.chunks[l-1] = last[:from+grant]
	b.size += uint64(grant)
	return last[from : from+grant : from+grant], true
}

func (s blocksOutput) BackUp(n int) {
	b := s.b
	l := len(b.chunks)
	if n == 0 {
		return
	}
	if l == 0 || l <= b.external || n < 0 || n > len(b.chunks[l-1]) {
		panic("assertion error: back up beyond the last block")
	}
	b.chunks[l-1] = b.chunks[l-1][:len(b.chunks[l-1])-n]
	b.size -= uint64(n)
}
