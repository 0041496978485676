package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/utils/pool"
)

// Phout writes one tab separated line per call in the phantom output
// format understood by load testing dashboards.
type Phout struct {
	w       *bufio.Writer
	ch      chan *phoutState
	pool    *pool.SlicePool[*phoutState]
	timeout time.Duration
}

func NewPhout(w io.Writer, timeout time.Duration) *Phout {
	return &Phout{
		w:       bufio.NewWriter(w),
		ch:      make(chan *phoutState, 256),
		pool:    pool.NewBoundedSlicePool[*phoutState](256),
		timeout: timeout,
	}
}

func (p *Phout) Run() error {
	for st := range p.ch {
		if _, err := p.w.Write(st.line()); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		p.pool.Release(st)
	}
	return p.w.Flush()
}

func (p *Phout) Close() error {
	close(p.ch)
	return nil
}

func (p *Phout) Acquire(method string) CallState {
	st, ok := p.pool.Acquire()
	if !ok {
		st = &phoutState{buf: make([]byte, 0, 128), reporter: p}
	}
	st.method = method
	st.start = now()
	st.reqSize, st.respSize = 0, 0
	st.err = nil
	return st
}

type phoutState struct {
	buf      []byte
	reporter *Phout

	method   string
	start    time.Time
	end      time.Time
	reqSize  int
	respSize int
	err      error
}

func (st *phoutState) SetSize(request, response int) {
	st.reqSize, st.respSize = request, response
}

func (st *phoutState) End(err error) {
	st.end = now()
	st.err = err
	st.reporter.ch <- st
}

const tab = '\t'

func (st *phoutState) line() []byte {
	b := st.buf[:0]
	b = strconv.AppendInt(b, st.start.Unix(), 10)
	b = append(b, '.')
	b = strconv.AppendInt(b, int64(st.start.Nanosecond()/1e6), 10)
	b = append(b, tab)
	b = append(b, st.method...)
	b = append(b, tab)

	rtt := st.end.Sub(st.start)
	b = strconv.AppendInt(b, rtt.Microseconds(), 10)
	b = append(b, tab)

	// connect, send, latency, receive и interval event не измеряются
	for i := 0; i < 5; i++ {
		b = append(b, '0', tab)
	}

	b = strconv.AppendInt(b, int64(st.reqSize), 10)
	b = append(b, tab)
	b = strconv.AppendInt(b, int64(st.respSize), 10)
	b = append(b, tab)
	b = strconv.AppendInt(b, errno(st.err), 10)
	b = append(b, tab)

	code := brpc.CodeOf(st.err)
	if code == brpc.NOERROR && rtt > st.reporter.timeout {
		code = brpc.ERPCTIMEDOUT
	}
	b = append(b, "brpc_"...)
	b = strconv.AppendInt(b, int64(code), 10)
	b = append(b, '\n')

	st.buf = b
	return b
}
