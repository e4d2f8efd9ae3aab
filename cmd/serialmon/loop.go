package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/pkg/errors"

	serial "github.com/luhtfiimanal/go-serial-poll"
	"github.com/luhtfiimanal/go-serial-poll/internal/metrics"
	"github.com/luhtfiimanal/go-serial-poll/poll"
)

const (
	portToken poll.Token = iota
	signalToken
	idleToken
	inputToken
)

// drain reads port until it would block and copies everything to w. A
// would-block ends the drain quietly; any other error, io.EOF included, is
// returned.
func drain(port *serial.Port, buf []byte, w io.Writer, m *metrics.Helper) (int, error) {
	total := 0
	for {
		n, err := port.Read(buf)
		if errors.Is(err, serial.ErrWouldBlock) {
			m.WouldBlock.WithLabelValues("read").Inc()
			return total, nil
		}
		if err != nil {
			return total, errors.Wrap(err, "read port")
		}
		m.BytesRead.Add(float64(n))
		total += n
		if _, err := w.Write(buf[:n]); err != nil {
			return total, errors.Wrap(err, "copy")
		}
	}
}

// flushPending writes as much of pending as the port takes and returns what
// is left.
func flushPending(port *serial.Port, pending []byte, m *metrics.Helper) ([]byte, error) {
	for len(pending) > 0 {
		n, err := port.Write(pending)
		if errors.Is(err, serial.ErrWouldBlock) {
			m.WouldBlock.WithLabelValues("write").Inc()
			return pending, nil
		}
		if err != nil {
			return pending, errors.Wrap(err, "write port")
		}
		m.BytesWritten.Add(float64(n))
		pending = pending[n:]
	}
	return pending, nil
}

// forwardSignals delivers SIGINT and SIGTERM to n until stop is called.
func forwardSignals(n *poll.Notifier) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	gopool.Go(func() {
		for {
			select {
			case s := <-ch:
				_ = n.Send(s)
			case <-done:
				return
			}
		}
	})
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
