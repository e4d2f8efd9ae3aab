//go:build linux

package poll

import (
	"os"
	"os/signal"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sys/unix"
)

type waitResult struct {
	err     error
	empty   bool
	elapsed time.Duration
}

// waitSignalled runs p.Wait(timeout) on a locked OS thread and sends that
// thread SIGUSR1 while it is blocked in the selector.
func waitSignalled(t *testing.T, p *Poll, timeout time.Duration) waitResult {
	t.Helper()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGUSR1)
	t.Cleanup(func() { signal.Stop(sigs) })

	tids := make(chan int, 1)
	done := make(chan waitResult, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		tids <- unix.Gettid()
		events := NewEvents(8)
		start := time.Now()
		err := p.Wait(events, timeout)
		done <- waitResult{err: err, empty: events.IsEmpty(), elapsed: time.Since(start)}
	}()

	tid := <-tids
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, unix.Tgkill(unix.Getpid(), tid, unix.SIGUSR1))

	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not return")
		return waitResult{}
	}
}

func TestPoll_WaitRetriesInterruptKeepingTimeout(t *testing.T) {
	p := newTestPoll(t)

	res := waitSignalled(t, p, 300*time.Millisecond)
	require.NoError(t, res.err)
	require.True(t, res.empty)
	require.GreaterOrEqual(t, res.elapsed, 290*time.Millisecond)
}

func TestPoll_WaitReturnsOnInterrupt(t *testing.T) {
	p, err := New(WithLogger(zaptest.NewLogger(t)), WithReturnOnInterrupt())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	res := waitSignalled(t, p, 300*time.Millisecond)
	require.ErrorIs(t, res.err, ErrInterrupted)
	require.Less(t, res.elapsed, 250*time.Millisecond)
}
