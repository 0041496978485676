// Package scheduler paces bench calls. A Scheduler maps the sequence
// number of a call to its offset from the start of the run.
package scheduler

import (
	"errors"
	"math"
	"time"
)

var ErrRate = errors.New("rate must be positive")

type Scheduler interface {
	// Next returns when call n should start. ok is false once the run is
	// over.
	Next(n int64) (at time.Duration, ok bool)
}

// Unlimited starts every call immediately.
type Unlimited struct{}

func (Unlimited) Next(int64) (time.Duration, bool) { return 0, true }

// Constant starts calls at a fixed rate.
type Constant struct {
	interval time.Duration
}

func NewConstant(rps uint64) (Constant, error) {
	if rps == 0 {
		return Constant{}, ErrRate
	}
	return Constant{interval: time.Second / time.Duration(rps)}, nil
}

func (c Constant) Next(n int64) (time.Duration, bool) {
	return time.Duration(n) * c.interval, true
}

// Line ramps the rate linearly from `from` to `to` calls per second over
// d. The rate keeps growing after d, a Duration limit stops it.
type Line struct {
	from  float64
	slope float64 // прирост rps за секунду
}

func NewLine(from, to float64, d time.Duration) (Line, error) {
	if from < 0 || to < 0 || from+to == 0 || d <= 0 {
		return Line{}, ErrRate
	}
	return Line{from: from, slope: (to - from) / d.Seconds()}, nil
}

// Next solves from*t + slope*t²/2 = n for t.
func (l Line) Next(n int64) (time.Duration, bool) {
	if l.slope == 0 {
		return time.Duration(float64(n) / l.from * float64(time.Second)), true
	}
	t := (math.Sqrt(l.from*l.from+2*l.slope*float64(n)) - l.from) / l.slope
	return time.Duration(t * float64(time.Second)), true
}

// Count stops after limit calls.
type Count struct {
	next  Scheduler
	limit int64
}

func NewCount(next Scheduler, limit int64) Count {
	return Count{next: next, limit: limit}
}

func (c Count) Next(n int64) (time.Duration, bool) {
	if n >= c.limit {
		return 0, false
	}
	return c.next.Next(n)
}

// Duration stops calls scheduled after d.
type Duration struct {
	next Scheduler
	d    time.Duration
}

func NewDuration(next Scheduler, d time.Duration) Duration {
	return Duration{next: next, d: d}
}

func (d Duration) Next(n int64) (time.Duration, bool) {
	at, ok := d.next.Next(n)
	if !ok || at > d.d {
		return 0, false
	}
	return at, true
}
