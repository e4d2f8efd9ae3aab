//go:build linux

package poll

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

type fdReg struct {
	token    Token
	interest Interest
}

// selector is the epoll backend. Cross-goroutine wakeups go through an
// eventfd registered level-triggered alongside the sources.
type selector struct {
	epfd   int
	wakeFd int
	fds    map[int32]fdReg
	buf    []unix.EpollEvent
}

func newSelector() (*selector, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &ev); err != nil {
		unix.Close(wakeFd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl add eventfd: %w", err)
	}
	return &selector{
		epfd:   epfd,
		wakeFd: wakeFd,
		fds:    make(map[int32]fdReg),
		buf:    make([]unix.EpollEvent, DefaultEventsCapacity),
	}, nil
}

func epollFlags(interest Interest, mode Mode) uint32 {
	var flags uint32
	if interest.IsReadable() {
		flags |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest.IsWritable() {
		flags |= unix.EPOLLOUT
	}
	if mode == Edge {
		flags |= unix.EPOLLET | unix.EPOLLONESHOT
	}
	return flags
}

func (s *selector) register(fd int, token Token, interest Interest, mode Mode) error {
	ev := unix.EpollEvent{Events: epollFlags(interest, mode), Fd: int32(fd)}
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl add fd %d: %w", fd, err)
	}
	s.fds[int32(fd)] = fdReg{token: token, interest: interest}
	return nil
}

func (s *selector) reregister(fd int, token Token, interest Interest, mode Mode) error {
	ev := unix.EpollEvent{Events: epollFlags(interest, mode), Fd: int32(fd)}
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl mod fd %d: %w", fd, err)
	}
	s.fds[int32(fd)] = fdReg{token: token, interest: interest}
	return nil
}

func (s *selector) deregister(fd int) error {
	delete(s.fds, int32(fd))
	// kernels before 2.6.9 require a non-nil event for EPOLL_CTL_DEL
	var ev unix.EpollEvent
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

func (s *selector) wait(events *Events, timeout time.Duration) error {
	n := events.remaining()
	if n == 0 {
		return nil
	}
	if n > len(s.buf) {
		s.buf = make([]unix.EpollEvent, n)
	}

	nev, err := unix.EpollWait(s.epfd, s.buf[:n], durationToMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return errInterrupted
		}
		return fmt.Errorf("epoll_wait: %w", err)
	}

	for _, ev := range s.buf[:nev] {
		if ev.Fd == int32(s.wakeFd) {
			s.drainWake()
			continue
		}
		reg, ok := s.fds[ev.Fd]
		if !ok {
			// record for a descriptor deregistered since the kernel queued it
			continue
		}
		var ready Interest
		if ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLPRI) != 0 {
			ready |= Readable
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			ready |= Writable
		}
		if ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ready |= reg.interest
		}
		events.add(reg.token, ready&reg.interest)
	}
	return nil
}

func (s *selector) wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(s.wakeFd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (s *selector) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(s.wakeFd, buf[:]); err != unix.EINTR {
			return
		}
	}
}

func (s *selector) close() error {
	werr := unix.Close(s.wakeFd)
	if err := unix.Close(s.epfd); err != nil {
		return fmt.Errorf("close epoll: %w", err)
	}
	if werr != nil {
		return fmt.Errorf("close eventfd: %w", werr)
	}
	return nil
}
