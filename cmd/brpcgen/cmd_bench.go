package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/report"
	"github.com/ozontech/brpcgen/scheduler"
	"github.com/ozontech/brpcgen/zerocopy"
)

type BenchCommand struct {
	Target

	Clients  int           `default:"1" help:"Concurrent callers."`
	RPS      uint64        `group:"rps" xor:"rate" help:"Constant call rate."`
	RPSFrom  float64       `group:"rps" xor:"rate" help:"Starting call rate of a linear ramp."`
	RPSTo    float64       `group:"rps" help:"Ending call rate of a linear ramp."`
	Ramp     time.Duration `group:"rps" help:"Length of the linear ramp (10s, 2h...)."`
	Count    int64         `help:"Limit calls count."`
	Duration time.Duration `help:"Limit duration (10s, 2h...)."`
	Phout    string        `help:"Phout report file." type:"path"`
	Interval time.Duration `default:"1s" help:"Summary report interval."`
}

func (c *BenchCommand) Validate() error {
	if c.Clients < 1 {
		return errors.New("--clients must be positive")
	}
	if (c.RPSFrom != 0 || c.RPSTo != 0) && c.Ramp == 0 {
		return errors.New("--ramp is required for a linear rate")
	}
	return nil
}

func (c *BenchCommand) scheduler() (scheduler.Scheduler, error) {
	var (
		s   scheduler.Scheduler = scheduler.Unlimited{}
		err error
	)
	switch {
	case c.RPS != 0:
		s, err = scheduler.NewConstant(c.RPS)
	case c.RPSFrom != 0 || c.RPSTo != 0:
		s, err = scheduler.NewLine(c.RPSFrom, c.RPSTo, c.Ramp)
	}
	if err != nil {
		return nil, err
	}
	if c.Count != 0 {
		s = scheduler.NewCount(s, c.Count)
	}
	if c.Duration != 0 {
		s = scheduler.NewDuration(s, c.Duration)
	}
	return s, nil
}

func (c *BenchCommand) Run(ctx context.Context, log *zap.Logger, w io.Writer) (err error) {
	sched, err := c.scheduler()
	if err != nil {
		return err
	}
	ref, md, err := c.resolve()
	if err != nil {
		return err
	}
	req, err := c.request(md)
	if err != nil {
		return err
	}

	// запрос кодируется один раз и копируется в каждый вызов
	payload := zerocopy.NewBlocks()
	if err := brpc.Encode(payload.NewWriter(), req); err != nil {
		return err
	}
	raw := payload.Bytes()

	ch, closeCh, err := c.dial()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeCh()) }()

	var reporter report.Reporter = report.NewSummary(w, c.Interval, c.Timeout)
	if c.Phout != "" {
		f, err := os.Create(c.Phout)
		if err != nil {
			return fmt.Errorf("creating phout file(%s): %w", c.Phout, err)
		}
		defer f.Close()
		reporter = report.NewMulti(report.NewPhout(f, c.Timeout), reporter)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(reporter.Run)

	var (
		n     atomic.Int64
		calls atomic.Int64
		wg    sync.WaitGroup
		begin = time.Now()
	)
	wg.Add(c.Clients)
	for i := 0; i < c.Clients; i++ {
		g.Go(func() error {
			defer wg.Done()
			timer := time.NewTimer(0)
			defer timer.Stop()
			<-timer.C

			for {
				at, ok := sched.Next(n.Add(1) - 1)
				if !ok {
					return nil
				}
				timer.Reset(time.Until(begin.Add(at)))
				select {
				case <-ctx.Done():
					return nil
				case <-timer.C:
				}
				c.call(ctx, ch, ref, raw, reporter)
				calls.Add(1)
			}
		})
	}
	g.Go(func() error {
		wg.Wait()
		return reporter.Close()
	})

	err = g.Wait()
	log.Info("bench finished", zap.Stringer("method", ref), zap.Int64("calls", calls.Load()), zap.Duration("elapsed", time.Since(begin)))
	return err
}

func (c *BenchCommand) call(ctx context.Context, ch brpc.Channel, ref brpc.MethodRef, raw []byte, r report.Reporter) {
	st := r.Acquire(ref.String())

	cntl := brpc.NewController()
	defer cntl.Reset()
	_, _ = cntl.RequestAttachment().Write(raw)

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	ch.CallMethod(ctx, ref, cntl)
	cancel()

	st.SetSize(len(raw), cntl.ResponseAttachment().Len())
	st.End(cntl.Err())
}
