package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/luhtfiimanal/go-serial-poll/poll"
)

// Port is an open serial device in non-blocking raw mode.
//
// Read and Write never block: when the device is not ready they return
// ErrWouldBlock and the caller waits for readiness through a poll.Poll. Port
// implements poll.Source, so it is registered directly:
//
//	p.Register(port, token, poll.Readable, poll.Level)
//
// A Port is meant to be used from the goroutine that owns the Poll it is
// registered with. Close is safe to call more than once.
type Port struct {
	name     string
	settings Settings
	sys      *portSys

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ poll.Source = (*Port)(nil)

// Open opens name in raw mode at DefaultSettings. Errors wrap
// ErrOpenFailed.
func Open(name string) (*Port, error) {
	port, err := open(name)
	if err != nil {
		return nil, err
	}
	if err := port.Configure(DefaultSettings()); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	return port, nil
}

// OpenWithSettings opens name and applies s. When s cannot be applied the
// device is closed again and the error wraps ErrConfigureFailed.
func OpenWithSettings(name string, s Settings) (*Port, error) {
	port, err := open(name)
	if err != nil {
		return nil, err
	}
	if err := port.Configure(s); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

func open(name string) (*Port, error) {
	sys, err := openPort(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, name, err)
	}
	settings, err := sys.readSettings()
	if err != nil {
		sys.close()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, name, err)
	}
	return &Port{name: name, settings: settings, sys: sys}, nil
}

// Configure applies s to the open device. Errors wrap ErrConfigureFailed.
func (p *Port) Configure(s Settings) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfigureFailed, p.name, err)
	}
	if err := p.sys.configure(s); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfigureFailed, p.name, err)
	}

	// drivers may accept the request and silently keep other values
	got, err := p.sys.readSettings()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfigureFailed, p.name, err)
	}
	if got != s {
		p.restore()
		return fmt.Errorf("%w: %s: device kept %s, asked for %s", ErrConfigureFailed, p.name, got, s)
	}
	p.settings = s
	return nil
}

// restore puts back the settings in force before a rejected Configure.
func (p *Port) restore() {
	if p.settings.Validate() != nil {
		return
	}
	_ = p.sys.configure(p.settings)
}

// Name returns the device name the port was opened with.
func (p *Port) Name() string { return p.name }

// Settings returns the line settings last applied.
func (p *Port) Settings() Settings { return p.settings }

// Read reads whatever the device has buffered. It returns ErrWouldBlock
// when nothing is available and io.EOF when the device hung up.
func (p *Port) Read(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	n, err := p.sys.read(b)
	return n, p.wrap("read", err)
}

// Write writes as much of b as the device accepts without blocking. It
// returns ErrWouldBlock when nothing could be written.
func (p *Port) Write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	n, err := p.sys.write(b)
	return n, p.wrap("write", err)
}

// Flush blocks until all written output has been transmitted.
func (p *Port) Flush() error {
	if p.closed.Load() {
		return ErrClosed
	}
	return p.wrap("flush", p.sys.flush())
}

// Duplicate returns an independently owned Port for the same device. The
// two can be registered, read, written and closed independently.
func (p *Port) Duplicate() (*Port, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	sys, err := p.sys.duplicate()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDuplicateFailed, p.name, err)
	}
	return &Port{name: p.name, settings: p.settings, sys: sys}, nil
}

// WaitIdentity returns the descriptor or handle the port is waited on
// with. It stays valid until Close.
func (p *Port) WaitIdentity() Identity { return p.sys.identity() }

// Close drops any live registration of the port and releases the device.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		if err := p.sys.close(); err != nil {
			p.closeErr = fmt.Errorf("close %s: %w", p.name, err)
		}
	})
	return p.closeErr
}

// Register implements poll.Source.
func (p *Port) Register(r *poll.Registry, token poll.Token, interest poll.Interest, mode poll.Mode) error {
	if p.closed.Load() {
		return ErrClosed
	}
	return p.sys.register(r, token, interest, mode)
}

// Reregister implements poll.Source.
func (p *Port) Reregister(r *poll.Registry, token poll.Token, interest poll.Interest, mode poll.Mode) error {
	if p.closed.Load() {
		return ErrClosed
	}
	return p.sys.reregister(r, token, interest, mode)
}

// Deregister implements poll.Source.
func (p *Port) Deregister(r *poll.Registry) error {
	return p.sys.deregister(r)
}

func (p *Port) wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrWouldBlock) || err == io.EOF {
		return err
	}
	return fmt.Errorf("%s %s: %w", op, p.name, err)
}
