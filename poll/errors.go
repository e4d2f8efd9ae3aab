package poll

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateToken is returned by Register when the token is live.
	ErrDuplicateToken = errors.New("poll: token already registered")
	// ErrInvalidToken is returned when a call names a token or source that
	// is not registered, or a token owned by another source.
	ErrInvalidToken = errors.New("poll: token not registered")
	// ErrBackendRejected wraps registration failures reported by a source
	// or the OS selector.
	ErrBackendRejected = errors.New("poll: registration rejected")
	// ErrInterrupted is returned by Wait on a signal interruption, only
	// when the Poll was built with WithReturnOnInterrupt.
	ErrInterrupted = errors.New("poll: wait interrupted")
	// ErrBackendFailure wraps selector failures during New and Wait.
	ErrBackendFailure = errors.New("poll: backend failure")
	// ErrClosed is returned by every call on a closed Poll.
	ErrClosed = errors.New("poll: closed")
	// ErrNotifierFull is returned by Send when the queue is at capacity.
	ErrNotifierFull = errors.New("poll: notifier full")
	// ErrNotifierClosed is returned by Send after Close.
	ErrNotifierClosed = errors.New("poll: notifier closed")
	// ErrTimerClosed is returned by SetTimeout after Close.
	ErrTimerClosed = errors.New("poll: timer closed")

	errInterrupted = errors.New("interrupted system call")
	errNotBound    = errors.New("source is not registered with this poll")
	errBound       = errors.New("source is already registered with a poll")
)

func rejected(err error) error {
	if errors.Is(err, ErrBackendRejected) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackendRejected, err)
}
