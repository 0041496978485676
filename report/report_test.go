package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozontech/brpcgen/brpc"
)

func setNow(t *testing.T, at time.Time) {
	t.Helper()
	now = func() time.Time { return at }
}

func TestPhout(t *testing.T) {
	assert := assert.New(t)
	t.Cleanup(func() { now = time.Now })
	const timeout = 11 * time.Second

	b := new(bytes.Buffer)
	r := NewPhout(b, timeout)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run() }()

	var expected string
	call := func(method string, req, resp int, d time.Duration, err error, tail string) {
		start := time.Now()
		setNow(t, start)
		st := r.Acquire(method)
		st.SetSize(req, resp)
		setNow(t, start.Add(d))
		st.End(err)

		expected += fmt.Sprintf("%d.%d\t%s\t%d\t0\t0\t0\t0\t0\t%d\t%d\t%s\n",
			start.Unix(), start.Nanosecond()/1e6, method, d.Microseconds(), req, resp, tail)
	}

	call("demo.Echo.Say", 111, 222, time.Millisecond, nil, "0\tbrpc_0")
	call("demo.Echo.Say", 10, 0, time.Millisecond, brpc.NewError(brpc.EINTERNAL, "boom"), "999\tbrpc_2001")
	call("demo.Echo.Say", 10, 0, time.Millisecond,
		brpc.Wrap(brpc.EFAILEDSOCKET, fmt.Errorf("dial: %w", syscall.ECONNREFUSED)),
		fmt.Sprintf("%d\tbrpc_1009", int(syscall.ECONNREFUSED)))
	call("demo.Echo.Shout", 1, 1, 12*time.Second, nil, "0\tbrpc_1008")
	call("demo.Echo.Say", 1, 0, time.Millisecond, brpc.Wrap(brpc.ESERIALIZE, errors.New("bad")), "0\tbrpc_3001")

	require.NoError(t, r.Close())
	require.NoError(t, <-errCh)
	assert.Equal(expected, b.String())
}

func TestSummary(t *testing.T) {
	assert := assert.New(t)
	t.Cleanup(func() { now = time.Now })

	start := time.Now()
	setNow(t, start)

	b := new(bytes.Buffer)
	r := NewSummary(b, time.Hour, time.Second)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run() }()

	for i := 0; i < 4; i++ {
		st := r.Acquire("demo.Echo.Say")
		st.SetSize(1000, 500)
		if i == 3 {
			st.End(brpc.NewError(brpc.EINTERNAL, ""))
			continue
		}
		st.End(nil)
	}
	r.Acquire("demo.Echo.Say")

	setNow(t, start.Add(2*time.Second))
	require.NoError(t, r.Close())
	require.NoError(t, <-errCh)

	assert.Equal("total total=4 ok=3 nook=1 req=5 out=2.0 kB/s in=1.0 kB/s req/s=2.50 resp/s=2.00\n", b.String())
}

func TestMulti(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	var p1, p2 bytes.Buffer
	m := NewMulti(NewPhout(&p1, time.Hour), NewPhout(&p2, time.Hour), NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = m.Run()
	}()

	st := m.Acquire("demo.Echo.Say")
	st.SetSize(1, 2)
	st.End(nil)

	require.NoError(t, m.Close())
	wg.Wait()
	require.NoError(t, runErr)

	assert.Equal(p1.String(), p2.String())
	assert.True(strings.HasSuffix(p1.String(), "\t1\t2\t0\tbrpc_0\n"))
}

func TestErrno(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.Zero(errno(nil))
	assert.Zero(errno(brpc.ErrDeserialize))
	assert.EqualValues(999, errno(brpc.NewError(brpc.ECLOSE, "")))
	assert.EqualValues(syscall.EPIPE, errno(brpc.Wrap(brpc.EFAILEDSOCKET, syscall.EPIPE)))
}
