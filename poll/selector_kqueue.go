//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package poll

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

type fdReg struct {
	token    Token
	interest Interest
}

// selector is the kqueue backend. Read and write readiness arrive as
// separate filter records and are merged per token by Events. Wakeups go
// through a non-blocking self-pipe.
type selector struct {
	kq    int
	wakeR int
	wakeW int
	fds   map[int]fdReg
	buf   []unix.Kevent_t
}

func newSelector() (*selector, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("kqueue: %w", err)
	}
	unix.CloseOnExec(kq)

	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		unix.Close(kq)
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			unix.Close(kq)
			return nil, fmt.Errorf("wake pipe nonblock: %w", err)
		}
	}

	var ev [1]unix.Kevent_t
	unix.SetKevent(&ev[0], p[0], unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE)
	if _, err := unix.Kevent(kq, ev[:], nil, nil); err != nil {
		unix.Close(p[0])
		unix.Close(p[1])
		unix.Close(kq)
		return nil, fmt.Errorf("kevent add wake pipe: %w", err)
	}

	return &selector{
		kq:    kq,
		wakeR: p[0],
		wakeW: p[1],
		fds:   make(map[int]fdReg),
		buf:   make([]unix.Kevent_t, DefaultEventsCapacity),
	}, nil
}

func (s *selector) apply(fd int, interest Interest, mode Mode) error {
	flags := unix.EV_ADD | unix.EV_ENABLE
	if mode == Edge {
		flags |= unix.EV_CLEAR | unix.EV_ONESHOT
	}

	var changes []unix.Kevent_t
	var ev unix.Kevent_t
	if interest.IsReadable() {
		unix.SetKevent(&ev, fd, unix.EVFILT_READ, flags)
		changes = append(changes, ev)
	} else if err := s.remove(fd, unix.EVFILT_READ); err != nil {
		return fmt.Errorf("kevent delete read fd %d: %w", fd, err)
	}
	if interest.IsWritable() {
		unix.SetKevent(&ev, fd, unix.EVFILT_WRITE, flags)
		changes = append(changes, ev)
	} else if err := s.remove(fd, unix.EVFILT_WRITE); err != nil {
		return fmt.Errorf("kevent delete write fd %d: %w", fd, err)
	}

	if _, err := unix.Kevent(s.kq, changes, nil, nil); err != nil {
		return fmt.Errorf("kevent fd %d: %w", fd, err)
	}
	return nil
}

// remove deletes one filter. ENOENT means it was never added or a oneshot
// already fired.
func (s *selector) remove(fd, filter int) error {
	var ev [1]unix.Kevent_t
	unix.SetKevent(&ev[0], fd, filter, unix.EV_DELETE)
	if _, err := unix.Kevent(s.kq, ev[:], nil, nil); err != nil && err != unix.ENOENT {
		return err
	}
	return nil
}

func (s *selector) register(fd int, token Token, interest Interest, mode Mode) error {
	if _, ok := s.fds[fd]; ok {
		return fmt.Errorf("fd %d: %w", fd, unix.EEXIST)
	}
	if err := s.apply(fd, interest, mode); err != nil {
		return err
	}
	s.fds[fd] = fdReg{token: token, interest: interest}
	return nil
}

func (s *selector) reregister(fd int, token Token, interest Interest, mode Mode) error {
	if _, ok := s.fds[fd]; !ok {
		return fmt.Errorf("fd %d: %w", fd, unix.ENOENT)
	}
	if err := s.apply(fd, interest, mode); err != nil {
		return err
	}
	s.fds[fd] = fdReg{token: token, interest: interest}
	return nil
}

func (s *selector) deregister(fd int) error {
	delete(s.fds, fd)
	rerr := s.remove(fd, unix.EVFILT_READ)
	werr := s.remove(fd, unix.EVFILT_WRITE)
	if rerr != nil {
		return fmt.Errorf("kevent delete fd %d: %w", fd, rerr)
	}
	if werr != nil {
		return fmt.Errorf("kevent delete fd %d: %w", fd, werr)
	}
	return nil
}

func (s *selector) wait(events *Events, timeout time.Duration) error {
	n := events.remaining()
	if n == 0 {
		return nil
	}
	if n > len(s.buf) {
		s.buf = make([]unix.Kevent_t, n)
	}

	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}

	nev, err := unix.Kevent(s.kq, nil, s.buf[:n], ts)
	if err != nil {
		if err == unix.EINTR {
			return errInterrupted
		}
		return fmt.Errorf("kevent wait: %w", err)
	}

	for _, ev := range s.buf[:nev] {
		fd := int(ev.Ident)
		if fd == s.wakeR {
			s.drainWake()
			continue
		}
		reg, ok := s.fds[fd]
		if !ok {
			continue
		}
		var ready Interest
		switch ev.Filter {
		case unix.EVFILT_READ:
			ready = Readable
		case unix.EVFILT_WRITE:
			ready = Writable
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			ready |= reg.interest
		}
		events.add(reg.token, ready&reg.interest)
	}
	return nil
}

func (s *selector) wake() error {
	_, err := unix.Write(s.wakeW, []byte{1})
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("wake pipe write: %w", err)
	}
	return nil
}

func (s *selector) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(s.wakeR, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil || n < len(buf) {
			return
		}
	}
}

func (s *selector) close() error {
	unix.Close(s.wakeR)
	unix.Close(s.wakeW)
	if err := unix.Close(s.kq); err != nil {
		return fmt.Errorf("close kqueue: %w", err)
	}
	return nil
}
