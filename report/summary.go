package report

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ozontech/brpcgen/utils/pool"
)

var now = time.Now

// Summary prints call rates and throughput once per interval and totals
// on Close.
type Summary struct {
	w        io.Writer
	interval time.Duration
	timeout  time.Duration
	pool     *pool.SlicePool[*summaryState]
	closeCh  chan struct{}

	start    time.Time
	ok       atomic.Uint64
	nook     atomic.Uint64
	req      atomic.Uint64
	sent     atomic.Uint64
	received atomic.Uint64

	last summarySnapshot
}

type summarySnapshot struct {
	ok, nook, req, sent, received uint64
	at                            time.Time
}

func NewSummary(w io.Writer, interval, timeout time.Duration) *Summary {
	start := now()
	return &Summary{
		w:        w,
		interval: interval,
		timeout:  timeout,
		pool:     pool.NewBoundedSlicePool[*summaryState](1024),
		closeCh:  make(chan struct{}),
		start:    start,
		last:     summarySnapshot{at: start},
	}
}

func (s *Summary) Run() error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case at := <-t.C:
			cur := s.snapshot(at)
			s.write("", cur.sub(s.last), at.Sub(s.last.at))
			s.last = cur
		case <-s.closeCh:
			at := now()
			s.write("total ", s.snapshot(at).sub(summarySnapshot{}), at.Sub(s.start))
			return nil
		}
	}
}

func (s *Summary) Close() error {
	close(s.closeCh)
	return nil
}

func (s *Summary) Acquire(string) CallState {
	s.req.Add(1)
	st, ok := s.pool.Acquire()
	if !ok {
		st = &summaryState{reporter: s}
	}
	st.start = now()
	return st
}

func (s *Summary) snapshot(at time.Time) summarySnapshot {
	return summarySnapshot{
		ok:       s.ok.Load(),
		nook:     s.nook.Load(),
		req:      s.req.Load(),
		sent:     s.sent.Load(),
		received: s.received.Load(),
		at:       at,
	}
}

func (a summarySnapshot) sub(b summarySnapshot) summarySnapshot {
	return summarySnapshot{
		ok:       a.ok - b.ok,
		nook:     a.nook - b.nook,
		req:      a.req - b.req,
		sent:     a.sent - b.sent,
		received: a.received - b.received,
		at:       a.at,
	}
}

func (s *Summary) write(prefix string, d summarySnapshot, period time.Duration) {
	ms := uint64(period.Milliseconds())
	total := d.ok + d.nook
	if ms == 0 {
		fmt.Fprintf(s.w, "%stotal=%d ok=%d nook=%d req=%d\n", prefix, total, d.ok, d.nook, d.req)
		return
	}
	fmt.Fprintf(s.w,
		"%stotal=%d ok=%d nook=%d req=%d out=%s/s in=%s/s req/s=%.2f resp/s=%.2f\n",
		prefix, total, d.ok, d.nook, d.req,
		humanize.Bytes(d.sent*1000/ms), humanize.Bytes(d.received*1000/ms),
		float64(d.req)*1000/float64(ms), float64(total)*1000/float64(ms),
	)
}

type summaryState struct {
	reporter *Summary
	start    time.Time
}

func (st *summaryState) SetSize(request, response int) {
	st.reporter.sent.Add(uint64(request))
	st.reporter.received.Add(uint64(response))
}

func (st *summaryState) End(err error) {
	r := st.reporter
	// ответ позже таймаута считается неуспешным
	if err != nil || now().Sub(st.start) > r.timeout {
		r.nook.Add(1)
	} else {
		r.ok.Add(1)
	}
	r.pool.Release(st)
}
