//go:build windows

package serial

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

// pipePair returns an overlapped named pipe server wrapped in a portSys and
// a synchronous client handle. The server's buffer is tiny so large writes
// stay with the driver until the client reads.
func pipePair(t *testing.T) (*portSys, windows.Handle, func() error) {
	t.Helper()
	name, err := windows.UTF16PtrFromString(fmt.Sprintf(`\\.\pipe\serial-test-%d-%d`, os.Getpid(), time.Now().UnixNano()))
	require.NoError(t, err)

	server, err := windows.CreateNamedPipe(name,
		windows.PIPE_ACCESS_DUPLEX|windows.FILE_FLAG_OVERLAPPED,
		windows.PIPE_TYPE_BYTE|windows.PIPE_WAIT,
		1, 1, 1, 0, nil)
	require.NoError(t, err)

	client, err := windows.CreateFile(name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, nil, windows.OPEN_EXISTING, 0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { windows.CloseHandle(client) })

	ev, err := windows.CreateEvent(nil, 1, 0, nil)
	require.NoError(t, err)
	defer windows.CloseHandle(ev)
	ov := windows.Overlapped{HEvent: ev}
	if err := windows.ConnectNamedPipe(server, &ov); err != nil && !errors.Is(err, windows.ERROR_PIPE_CONNECTED) {
		require.ErrorIs(t, err, windows.ERROR_IO_PENDING)
		var n uint32
		require.NoError(t, windows.GetOverlappedResult(server, &ov, &n, true))
	}

	s, err := newPortSys(server)
	require.NoError(t, err)
	closePort := sync.OnceValue(s.close)
	t.Cleanup(func() { closePort() })
	return s, client, closePort
}

func TestPortSys_WriteDoesNotWaitForDriver(t *testing.T) {
	s, client, _ := pipePair(t)
	data := make([]byte, 64<<10)

	start := time.Now()
	n, err := s.write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Less(t, time.Since(start), time.Second)

	// the driver still holds the first write
	require.False(t, s.src.Readiness().IsWritable())
	_, err = s.write([]byte("x"))
	require.ErrorIs(t, err, ErrWouldBlock)

	got := 0
	buf := make([]byte, 4096)
	for got < len(data) {
		var r uint32
		require.NoError(t, windows.ReadFile(client, buf, &r, nil))
		got += int(r)
	}

	require.Eventually(t, func() bool {
		return s.src.Readiness().IsWritable()
	}, 2*time.Second, 5*time.Millisecond)
	n, err = s.write([]byte("x"))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestPortSys_CloseCancelsPendingWrite(t *testing.T) {
	s, _, closePort := pipePair(t)
	_, err := s.write(make([]byte, 64<<10))
	require.NoError(t, err)
	require.NotNil(t, s.wdone)

	done := make(chan error, 1)
	go func() { done <- closePort() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close blocked on the outstanding write")
	}
	require.Nil(t, s.wdone)
}

func TestPortSys_WatcherFailureReachesRead(t *testing.T) {
	s, _, _ := pipePair(t)
	boom := errors.New("WaitCommEvent: device removed")
	s.watchFailed(boom)

	_, err := s.read(make([]byte, 8))
	require.ErrorIs(t, err, boom)
	require.NoError(t, s.takeWatchErr())
}
