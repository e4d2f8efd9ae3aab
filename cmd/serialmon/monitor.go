package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/luhtfiimanal/go-serial-poll/internal/logs"
	"github.com/luhtfiimanal/go-serial-poll/poll"
)

type idleExpired struct{}

func monitorAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()
	logger := logs.Named("monitor")

	port, err := s.open()
	if err != nil {
		return err
	}
	defer port.Close()

	p, err := poll.New(poll.WithLogger(logs.Named("poll")))
	if err != nil {
		return errors.Wrap(err, "create poll")
	}
	defer p.Close()

	if err := p.Register(port, portToken, poll.Readable, poll.Level); err != nil {
		return errors.Wrap(err, "register port")
	}

	signals := poll.NewNotifier(1)
	defer signals.Close()
	if err := p.Register(signals, signalToken, poll.Readable, poll.Level); err != nil {
		return errors.Wrap(err, "register signals")
	}
	defer forwardSignals(signals)()

	idle := newIdleWatch(s.cfg.IdleTimeout)
	defer idle.close()
	if idle.enabled() {
		if err := p.Register(idle.timer, idleToken, poll.Readable, poll.Level); err != nil {
			return errors.Wrap(err, "register idle timer")
		}
		if err := idle.start(); err != nil {
			return err
		}
	}

	events := poll.NewEvents(poll.DefaultEventsCapacity)
	buf := make([]byte, 4096)
	for {
		if err := p.Wait(events, poll.Forever); err != nil {
			return errors.Wrap(err, "wait")
		}
		s.metrics.Waits.Inc()

		received, silent := false, false
		for _, ev := range events.All() {
			switch ev.Token {
			case portToken:
				s.metrics.Observe("port", ev)
				n, err := drain(port, buf, os.Stdout, s.metrics)
				if err != nil {
					return err
				}
				if n > 0 {
					received = true
					if err := idle.activity(); err != nil {
						return err
					}
				}
			case signalToken:
				s.metrics.Observe("signal", ev)
				if sig, ok := signals.TryRecv(); ok {
					s.metrics.Messages.Inc()
					logger.Info("shutting down", zap.Any("signal", sig))
					return nil
				}
			case idleToken:
				s.metrics.Observe("idle", ev)
				silent = idle.expired() || silent
			}
		}
		// data in the same batch as the deadline means the port was not idle
		if silent && !received {
			logger.Info("port idle", zap.Duration("after", idle.limit))
			return nil
		}
	}
}

// idleWatch keeps one pending deadline that is pushed back on every
// received chunk.
type idleWatch struct {
	timer   *poll.Timer
	limit   time.Duration
	pending poll.Timeout
}

func newIdleWatch(limit time.Duration) *idleWatch {
	return &idleWatch{timer: poll.NewTimer(), limit: limit}
}

func (w *idleWatch) enabled() bool { return w.limit > 0 }

func (w *idleWatch) start() error {
	if !w.enabled() {
		return nil
	}
	to, err := w.timer.SetTimeout(w.limit, idleExpired{})
	if err != nil {
		return err
	}
	w.pending = to
	return nil
}

// activity re-arms the deadline. An expiry that is already queued is
// discarded with it.
func (w *idleWatch) activity() error {
	if !w.enabled() {
		return nil
	}
	w.timer.CancelTimeout(w.pending)
	for {
		if _, ok := w.timer.Poll(); !ok {
			break
		}
	}
	return w.start()
}

// expired drains the timer and reports whether the deadline passed.
func (w *idleWatch) expired() bool {
	fired := false
	for {
		if _, ok := w.timer.Poll(); !ok {
			return fired
		}
		fired = true
	}
}

func (w *idleWatch) close() { w.timer.Close() }
