package zerocopy

import (
	"bytes"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunked(parts ...string) *Blocks {
	chunks := make([][]byte, len(parts))
	for i, p := range parts {
		chunks[i] = []byte(p)
	}
	return FromChunks(chunks)
}

func TestReaderAdvanceMonotonic(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	b := chunked("0123", "45678", "9abcdef")

	one := b.NewReader()
	assert.Equal(uint64(16), one.Remaining())
	assert.Equal([]byte("0123"), one.Window())
	assert.True(one.Advance(10))

	two := b.NewReader()
	assert.True(two.Advance(3))
	assert.Equal(uint64(13), two.Remaining())
	assert.True(two.Advance(7))

	assert.Equal(uint64(6), one.Remaining())
	assert.Equal(one.Remaining(), two.Remaining())
	assert.Equal([]byte("abcdef"), one.Window())
	assert.Equal(one.Window(), two.Window())
}

func TestReaderSkipsEmptyBlocks(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	r := chunked("", "ab", "", "", "c", "").NewReader()
	assert.Equal([]byte("ab"), r.Window())
	assert.True(r.Advance(2))
	assert.Equal([]byte("c"), r.Window())
	assert.Equal(uint64(1), r.Remaining())
}

func TestReaderExhaustion(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	r := chunked("abc", "de").NewReader()
	assert.True(r.Advance(5))
	assert.Equal(uint64(0), r.Remaining())
	assert.Empty(r.Window())

	assert.False(r.Advance(1))
	assert.Equal(uint64(0), r.Remaining())
	assert.Empty(r.Window())

	_, err := NewBufReader(r).ReadByte()
	assert.ErrorIs(err, io.EOF)
}

func TestReaderAdvancePastEnd(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	r := chunked("abc", "de").NewReader()
	assert.False(r.Advance(8))
	assert.Equal(uint64(0), r.Remaining())
	assert.False(r.Advance(-1))
}

func TestReaderShortStream(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	b := chunked("abc", "def")
	r := NewReader(b.InputStream(), 100)
	assert.Equal(uint64(100), r.Remaining())
	assert.True(r.Advance(6))
	assert.Equal(uint64(0), r.Remaining())
	assert.Empty(r.Window())
}

func TestReaderClipsToLength(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	b := chunked("abc", "def")
	data, err := io.ReadAll(NewBufReader(NewReader(b.InputStream(), 4)))
	assert.NoError(err)
	assert.Equal([]byte("abcd"), data)
}

type fixedOutput struct {
	blocks   [][]byte
	backedUp int
}

func (o *fixedOutput) Next() ([]byte, bool) {
	if len(o.blocks) == 0 {
		return nil, false
	}
	b := o.blocks[0]
	o.blocks = o.blocks[1:]
	return b, true
}

func (o *fixedOutput) BackUp(n int) {
	o.backedUp += n
}

func TestWriterCapacityGuard(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	out := &fixedOutput{blocks: [][]byte{make([]byte, 4), {}, make([]byte, 4)}}
	w := NewWriter(out)
	assert.Equal(uint64(math.MaxUint64), w.Remaining())
	assert.Len(w.Window(), 4)
	assert.False(w.Advance(-1))

	bw := NewBufWriter(w)
	n, err := bw.Write([]byte("abcdefgh"))
	require.NoError(err)
	assert.Equal(8, n)

	// хранилище больше не растет
	assert.Equal(uint64(0), w.Remaining())
	assert.Empty(w.Window())

	written := w.Written()
	assert.False(w.Advance(1))
	assert.Equal(written, w.Written())

	_, err = bw.Write([]byte("i"))
	assert.ErrorIs(err, ErrExhausted)
}

func TestWriterFlush(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	b := NewBlocks(WithBlockSize(8))
	w := b.NewWriter()
	_, err := NewBufWriter(w).Write([]byte("abc"))
	require.NoError(err)
	w.Flush()
	assert.Equal(3, b.Len())

	_, err = NewBufWriter(w).Write([]byte("de"))
	require.NoError(err)
	w.Flush()
	assert.Equal(5, b.Len())
	assert.Len(b.Chunks(), 1)
	assert.Equal([]byte("abcde"), b.Bytes())
}

func TestRoundTripChunkings(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}

	for blockSize := 1; blockSize <= len(payload)+1; blockSize++ {
		b := NewBlocks(WithBlockSize(blockSize))
		w := b.NewWriter()
		n, err := NewBufWriter(w).Write(payload)
		require.NoError(t, err)
		require.Equal(t, len(payload), n)
		w.Flush()

		assert.Equal(t, len(payload), b.Len(), "block size %d", blockSize)
		assert.Len(t, b.Chunks(), (len(payload)+blockSize-1)/blockSize, "block size %d", blockSize)

		r := b.NewReader()
		assert.Equal(t, uint64(len(payload)), r.Remaining())
		got, err := io.ReadAll(NewBufReader(r))
		require.NoError(t, err)
		assert.Equal(t, payload, got, "block size %d", blockSize)
		assert.Equal(t, uint64(0), r.Remaining())
	}
}

func TestBlocksLimit(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	b := NewBlocks(WithBlockSize(4), WithLimit(10))
	n, err := b.Write([]byte("0123456789ab"))
	assert.ErrorIs(err, ErrLimitExceeded)
	assert.Equal(10, n)
	assert.Equal([]byte("0123456789"), b.Bytes())

	w := b.NewWriter()
	assert.Equal(uint64(0), w.Remaining())

	b = NewBlocks(WithBlockSize(4), WithLimit(10))
	total, err := b.ReadFrom(strings.NewReader("0123456789"))
	assert.NoError(err)
	assert.Equal(int64(10), total)

	b = NewBlocks(WithBlockSize(4), WithLimit(10))
	_, err = b.ReadFrom(strings.NewReader("0123456789a"))
	assert.ErrorIs(err, ErrLimitExceeded)
}

func TestBlocksWriteToAndReset(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	b := NewBlocks(WithBlockSize(3))
	_, err := b.ReadFrom(strings.NewReader("hello, world"))
	assert.NoError(err)
	assert.Equal(12, b.Len())

	var out bytes.Buffer
	n, err := b.WriteTo(&out)
	assert.NoError(err)
	assert.Equal(int64(12), n)
	assert.Equal("hello, world", out.String())
	// WriteTo не трогает содержимое
	assert.Equal([]byte("hello, world"), b.Bytes())

	b.Reset()
	assert.Equal(0, b.Len())
	assert.Empty(b.Chunks())

	_, err = b.Write([]byte("again"))
	assert.NoError(err)
	assert.Equal([]byte("again"), b.Bytes())
}

func TestBlocksDefaultPool(t *testing.T) {
	assert := assert.New(t)

	b := NewBlocks()
	_, err := b.Write(bytes.Repeat([]byte{1}, 10000))
	assert.NoError(err)
	assert.Len(b.Chunks(), 2)

	before := defaultPool.Len()
	b.Reset()
	assert.GreaterOrEqual(defaultPool.Len(), min(before+1, 256))
}

func TestFromChunksIsNotRecycled(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	ext := make([]byte, 2, 16)
	copy(ext, "ab")
	b := FromChunks([][]byte{ext})

	_, err := b.Write([]byte("cd"))
	assert.NoError(err)
	assert.Equal([]byte("abcd"), b.Bytes())
	assert.Len(b.Chunks(), 2)
	// чужой буфер не дописывается
	assert.Equal([]byte("ab"), ext)
}
