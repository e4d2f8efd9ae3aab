//go:build windows

package poll

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"
)

// selector is the Windows backend: an I/O completion port used only as a
// wakeup channel. Every source on Windows is a UserSource whose readiness is
// collected by the Registry, so completions carry no payload.
type selector struct {
	port windows.Handle
}

func newSelector() (*selector, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("CreateIoCompletionPort: %w", err)
	}
	return &selector{port: port}, nil
}

func (s *selector) wait(events *Events, timeout time.Duration) error {
	ms := uint32(windows.INFINITE)
	if timeout >= 0 {
		ms = uint32(durationToMillis(timeout))
	}

	var (
		qty uint32
		key uintptr
		ov  *windows.Overlapped
	)
	err := windows.GetQueuedCompletionStatus(s.port, &qty, &key, &ov, ms)
	if err != nil {
		if err == windows.Errno(windows.WAIT_TIMEOUT) {
			return nil
		}
		return fmt.Errorf("GetQueuedCompletionStatus: %w", err)
	}
	// collapse wakeups posted while the loop was busy
	for windows.GetQueuedCompletionStatus(s.port, &qty, &key, &ov, 0) == nil {
	}
	return nil
}

func (s *selector) wake() error {
	if err := windows.PostQueuedCompletionStatus(s.port, 0, 0, nil); err != nil {
		return fmt.Errorf("PostQueuedCompletionStatus: %w", err)
	}
	return nil
}

func (s *selector) close() error {
	if err := windows.CloseHandle(s.port); err != nil {
		return fmt.Errorf("close completion port: %w", err)
	}
	return nil
}
