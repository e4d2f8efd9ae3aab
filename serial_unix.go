//go:build linux || darwin

package serial

import (
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/luhtfiimanal/go-serial-poll/poll"
)

// Identity is the descriptor a Port is waited on with.
type Identity = int

type portSys struct {
	fd  int
	src *poll.FdSource
	// open descriptors of the device shared by a port and its duplicates;
	// the last one to close clears TIOCEXCL
	handles *atomic.Int32
}

func openPort(name string) (*portSys, error) {
	var (
		fd  int
		err error
	)
	for {
		fd, err = unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set exclusive: %w", err)
	}
	if err := makeRaw(fd); err != nil {
		unix.IoctlSetInt(fd, unix.TIOCNXCL, 0)
		unix.Close(fd)
		return nil, err
	}
	handles := new(atomic.Int32)
	handles.Store(1)
	return &portSys{fd: fd, src: poll.NewFdSource(fd), handles: handles}, nil
}

func makeRaw(fd int) error {
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag |= unix.CREAD | unix.CLOCAL

	// reads return what is buffered; O_NONBLOCK turns "nothing" into EAGAIN
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, t); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

func (s *portSys) configure(settings Settings) error {
	t, err := unix.IoctlGetTermios(s.fd, ioctlGetTermios)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}
	if err := setSpeed(t, settings.BaudRate); err != nil {
		return err
	}

	t.Cflag &^= unix.CSIZE
	switch settings.CharSize {
	case Bits5:
		t.Cflag |= unix.CS5
	case Bits6:
		t.Cflag |= unix.CS6
	case Bits7:
		t.Cflag |= unix.CS7
	default:
		t.Cflag |= unix.CS8
	}

	t.Cflag &^= unix.PARENB | unix.PARODD
	t.Iflag &^= unix.INPCK
	switch settings.Parity {
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
		t.Iflag |= unix.INPCK
	case ParityEven:
		t.Cflag |= unix.PARENB
		t.Iflag |= unix.INPCK
	}

	if settings.StopBits == Stop2 {
		t.Cflag |= unix.CSTOPB
	} else {
		t.Cflag &^= unix.CSTOPB
	}

	t.Cflag &^= unix.CRTSCTS
	t.Iflag &^= unix.IXON | unix.IXOFF | unix.IXANY
	switch settings.FlowControl {
	case FlowSoftware:
		t.Iflag |= unix.IXON | unix.IXOFF
	case FlowHardware:
		t.Cflag |= unix.CRTSCTS
	}

	if err := unix.IoctlSetTermios(s.fd, ioctlSetTermios, t); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

func (s *portSys) readSettings() (Settings, error) {
	t, err := unix.IoctlGetTermios(s.fd, ioctlGetTermios)
	if err != nil {
		return Settings{}, fmt.Errorf("get termios: %w", err)
	}

	out := Settings{BaudRate: getSpeed(t), CharSize: Bits8, Parity: ParityNone, StopBits: Stop1}
	switch t.Cflag & unix.CSIZE {
	case unix.CS5:
		out.CharSize = Bits5
	case unix.CS6:
		out.CharSize = Bits6
	case unix.CS7:
		out.CharSize = Bits7
	}
	if t.Cflag&unix.PARENB != 0 {
		out.Parity = ParityEven
		if t.Cflag&unix.PARODD != 0 {
			out.Parity = ParityOdd
		}
	}
	if t.Cflag&unix.CSTOPB != 0 {
		out.StopBits = Stop2
	}
	switch {
	case t.Cflag&unix.CRTSCTS != 0:
		out.FlowControl = FlowHardware
	case t.Iflag&(unix.IXON|unix.IXOFF) != 0:
		out.FlowControl = FlowSoftware
	}
	return out, nil
}

func (s *portSys) read(b []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, b)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, ErrWouldBlock
		case err != nil:
			return 0, err
		case n == 0 && len(b) > 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

func (s *portSys) write(b []byte) (int, error) {
	for {
		n, err := unix.Write(s.fd, b)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, ErrWouldBlock
		case err != nil:
			return 0, err
		}
		return n, nil
	}
}

func (s *portSys) flush() error {
	for {
		err := drain(s.fd)
		if err != unix.EINTR {
			return err
		}
	}
}

func (s *portSys) duplicate() (*portSys, error) {
	fd, err := unix.FcntlInt(uintptr(s.fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	s.handles.Add(1)
	return &portSys{fd: fd, src: poll.NewFdSource(fd), handles: s.handles}, nil
}

func (s *portSys) identity() Identity { return s.fd }

func (s *portSys) close() error {
	// the selector must forget the descriptor before its number is reused
	rerr := s.src.Release()
	if s.handles.Add(-1) == 0 {
		unix.IoctlSetInt(s.fd, unix.TIOCNXCL, 0)
	}
	if err := unix.Close(s.fd); err != nil {
		return err
	}
	return rerr
}

func (s *portSys) register(r *poll.Registry, token poll.Token, interest poll.Interest, mode poll.Mode) error {
	return s.src.Register(r, token, interest, mode)
}

func (s *portSys) reregister(r *poll.Registry, token poll.Token, interest poll.Interest, mode poll.Mode) error {
	return s.src.Reregister(r, token, interest, mode)
}

func (s *portSys) deregister(r *poll.Registry) error {
	return s.src.Deregister(r)
}
