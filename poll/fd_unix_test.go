//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package poll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newPipe returns a non-blocking pipe closed at test end.
func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	for _, fd := range p {
		require.NoError(t, unix.SetNonblock(fd, true))
	}
	t.Cleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0], p[1]
}

func drain(t *testing.T, fd int) int {
	t.Helper()
	total := 0
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EAGAIN {
			return total
		}
		require.NoError(t, err)
		if n == 0 {
			return total
		}
		total += n
	}
}

func TestFdSource_LevelReadable(t *testing.T) {
	p := newTestPoll(t)
	r, w := newPipe(t)
	src := NewFdSource(r)
	require.NoError(t, p.Register(src, 10, Readable, Level))
	events := NewEvents(8)

	require.NoError(t, p.Wait(events, 0))
	require.True(t, events.IsEmpty())

	_, err := unix.Write(w, []byte("abc"))
	require.NoError(t, err)

	// not drained: reported again
	for range 2 {
		require.NoError(t, p.Wait(events, time.Second))
		require.Equal(t, []Event{{Token: 10, Ready: Readable}}, events.All())
	}

	require.Equal(t, 3, drain(t, r))
	require.NoError(t, p.Wait(events, 20*time.Millisecond))
	require.True(t, events.IsEmpty())
}

func TestFdSource_EdgeOneShot(t *testing.T) {
	p := newTestPoll(t)
	r, w := newPipe(t)
	src := NewFdSource(r)
	require.NoError(t, p.Register(src, 11, Readable, Edge))
	events := NewEvents(8)

	_, err := unix.Write(w, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, p.Wait(events, time.Second))
	require.Equal(t, []Token{11}, tokens(events))

	// still readable but disarmed
	require.NoError(t, p.Wait(events, 20*time.Millisecond))
	require.True(t, events.IsEmpty())

	require.NoError(t, p.Reregister(src, 11, Readable, Edge))
	require.NoError(t, p.Wait(events, time.Second))
	require.Equal(t, []Token{11}, tokens(events))
}

func TestFdSource_Writable(t *testing.T) {
	p := newTestPoll(t)
	_, w := newPipe(t)
	require.NoError(t, p.Register(NewFdSource(w), 12, Writable, Level))

	events := NewEvents(8)
	require.NoError(t, p.Wait(events, time.Second))
	require.Equal(t, []Event{{Token: 12, Ready: Writable}}, events.All())
}

func TestFdSource_ReregisterChangesInterest(t *testing.T) {
	p := newTestPoll(t)
	_, w := newPipe(t)
	src := NewFdSource(w)
	require.NoError(t, p.Register(src, 13, Writable, Level))
	require.NoError(t, p.Reregister(src, 13, Readable, Level))

	// the write end never becomes readable
	events := NewEvents(8)
	require.NoError(t, p.Wait(events, 20*time.Millisecond))
	require.True(t, events.IsEmpty())

	reg, ok := p.Registration(13)
	require.True(t, ok)
	require.Equal(t, Readable, reg.Interest)
}

func TestFdSource_ReleaseBeforeClose(t *testing.T) {
	p := newTestPoll(t)
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() { unix.Close(fds[1]) })

	src := NewFdSource(fds[0])
	require.NoError(t, p.Register(src, 14, Readable, Level))
	require.NoError(t, src.Release())
	require.Equal(t, 0, p.Len())
	require.NoError(t, unix.Close(fds[0]))

	// releasing again is a no-op
	require.NoError(t, src.Release())

	events := NewEvents(8)
	require.NoError(t, p.Wait(events, 10*time.Millisecond))
	require.True(t, events.IsEmpty())
	require.NoError(t, p.Register(NewUserSource(), 14, Readable, Level))
}

func TestFdSource_ReregisterClosedDescriptorFails(t *testing.T) {
	p := newTestPoll(t)
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Close(fds[1]) })

	src := NewFdSource(fds[0])
	require.NoError(t, p.Register(src, 16, Readable|Writable, Level))
	require.NoError(t, unix.Close(fds[0]))

	// dropping the writable filter of a dead descriptor must not pass silently
	err = p.Reregister(src, 16, Readable, Level)
	require.ErrorIs(t, err, ErrBackendRejected)
	reg, ok := p.Registration(16)
	require.True(t, ok)
	require.Equal(t, Readable|Writable, reg.Interest)

	_ = p.Deregister(src)
	require.Equal(t, 0, p.Len())
}

func TestFdSource_HangupReportsInterest(t *testing.T) {
	p := newTestPoll(t)
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() { unix.Close(fds[0]) })

	require.NoError(t, p.Register(NewFdSource(fds[0]), 15, Readable, Level))
	require.NoError(t, unix.Close(fds[1]))

	events := NewEvents(8)
	require.NoError(t, p.Wait(events, time.Second))
	require.Equal(t, []Event{{Token: 15, Ready: Readable}}, events.All())
}

func TestFdSource_BoundToOnePoll(t *testing.T) {
	p := newTestPoll(t)
	q := newTestPoll(t)
	r, _ := newPipe(t)
	src := NewFdSource(r)

	require.NoError(t, p.Register(src, 1, Readable, Level))
	require.ErrorIs(t, q.Register(src, 1, Readable, Level), ErrBackendRejected)
	require.Equal(t, 0, q.Len())
}
