package pool

import "sync"

// SlicePool - стек переиспользуемых значений под мьютексом.
// При заданном limit лишние значения при Release отбрасываются.
type SlicePool[T any] struct {
	mu    sync.Mutex
	s     []T
	limit int
}

func NewSlicePool[T any]() *SlicePool[T] {
	return new(SlicePool[T])
}

func NewSlicePoolSize[T any](size int) *SlicePool[T] {
	return &SlicePool[T]{s: make([]T, 0, size)}
}

// NewBoundedSlicePool creates a pool that retains at most limit values.
func NewBoundedSlicePool[T any](limit int) *SlicePool[T] {
	if limit < 1 {
		panic("assertion error: limit < 1")
	}
	return &SlicePool[T]{s: make([]T, 0, limit), limit: limit}
}

func (p *SlicePool[T]) Acquire() (v T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	l := len(p.s)
	if l == 0 {
		return v, false
	}

	v = p.s[l-1]
	var zero T
	p.s[l-1] = zero
	p.s = p.s[:l-1]
	return v, true
}

// AcquireOr returns a pooled value or builds a new one with newFn.
func (p *SlicePool[T]) AcquireOr(newFn func() T) T {
	if v, ok := p.Acquire(); ok {
		return v
	}
	return newFn()
}

// Release returns v to the pool. It reports false when the pool is full
// and v was dropped.
func (p *SlicePool[T]) Release(v T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.limit > 0 && len(p.s) >= p.limit {
		return false
	}
	p.s = append(p.s, v)
	return true
}

func (p *SlicePool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.s)
}
