package serial

import "errors"

var (
	// ErrOpenFailed wraps failures to open the device or put it in raw mode.
	ErrOpenFailed = errors.New("serial: open failed")
	// ErrConfigureFailed wraps failures to apply Settings, including
	// settings rejected by Validate.
	ErrConfigureFailed = errors.New("serial: configure failed")
	// ErrDuplicateFailed is returned by Duplicate when the OS refuses to
	// duplicate the descriptor or handle.
	ErrDuplicateFailed = errors.New("serial: duplicate failed")
	// ErrWouldBlock is returned by Read and Write when the operation cannot
	// make progress without blocking. It is transient: wait for readiness
	// and try again.
	ErrWouldBlock = errors.New("serial: operation would block")
	// ErrClosed is returned by every operation on a closed Port.
	ErrClosed = errors.New("serial: port closed")
	// ErrInvalidSettings is returned by Settings.Validate and the Parse
	// helpers.
	ErrInvalidSettings = errors.New("serial: invalid settings")
	// ErrUnsupportedPlatform is returned on systems without a port
	// implementation.
	ErrUnsupportedPlatform = errors.New("serial: unsupported platform")
)
