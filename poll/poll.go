package poll

import (
	"errors"
	"fmt"
	"time"

	"github.com/luci/go-render/render"
	"go.uber.org/zap"
)

// Forever makes Wait block until at least one source is ready.
const Forever time.Duration = -1

// Poll is the readiness dispatcher. All methods except those of the sources
// it hands out (Notifier.Send, UserSource.SetReadiness, Timer expiry) must be
// called from the goroutine that owns the Poll.
type Poll struct {
	registry *Registry
	table    *table
	logger   *zap.Logger

	returnOnInterrupt bool
	closed            bool
}

// Option configures a Poll.
type Option func(p *Poll)

// WithLogger sets the logger used for debug records about retries, spurious
// wakeups and registrations.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poll) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithReturnOnInterrupt makes Wait return ErrInterrupted when the selector
// wait is interrupted by a signal instead of retrying it.
func WithReturnOnInterrupt() Option {
	return func(p *Poll) {
		p.returnOnInterrupt = true
	}
}

// New creates a Poll backed by the platform selector.
func New(opts ...Option) (*Poll, error) {
	p := &Poll{
		table:  newTable(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	sys, err := newSelector()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendFailure, err)
	}
	p.registry = newRegistry(p, sys)
	return p, nil
}

// Registry returns the handle sources use to reach this Poll's selector.
func (p *Poll) Registry() *Registry { return p.registry }

// Len returns the number of live registrations.
func (p *Poll) Len() int { return p.table.len() }

// Registration returns the live registration of token.
func (p *Poll) Registration(token Token) (Registration, bool) {
	e, ok := p.table.byToken(token)
	if !ok {
		return Registration{}, false
	}
	return e.Registration, true
}

// Register adds src to the table under token.
func (p *Poll) Register(src Source, token Token, interest Interest, mode Mode) error {
	if p.closed {
		return ErrClosed
	}
	if _, ok := p.table.byToken(token); ok {
		return fmt.Errorf("%w: %d", ErrDuplicateToken, token)
	}
	if owner, ok := p.table.bySource(src); ok {
		return fmt.Errorf("%w: source already registered as token %d", ErrBackendRejected, owner)
	}
	if err := validate(interest, mode); err != nil {
		return err
	}
	if err := src.Register(p.registry, token, interest, mode); err != nil {
		return rejected(err)
	}

	reg := Registration{Token: token, Interest: interest, Mode: mode}
	p.table.insert(src, reg)
	if ce := p.logger.Check(zap.DebugLevel, "source registered"); ce != nil {
		ce.Write(zap.String("registration", render.Render(reg)))
	}
	return nil
}

// Reregister replaces the interest and mode of the live registration of src.
// token must be the token src was registered with. It also re-arms Edge
// registrations.
func (p *Poll) Reregister(src Source, token Token, interest Interest, mode Mode) error {
	if p.closed {
		return ErrClosed
	}
	e, ok := p.table.byToken(token)
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidToken, token)
	}
	if e.source != src {
		return fmt.Errorf("%w: token %d belongs to another source", ErrInvalidToken, token)
	}
	if err := validate(interest, mode); err != nil {
		return err
	}
	if err := src.Reregister(p.registry, token, interest, mode); err != nil {
		return rejected(err)
	}
	p.table.update(token, interest, mode)
	return nil
}

// Deregister removes the live registration of src. The table entry is
// dropped even when the selector reports an error.
func (p *Poll) Deregister(src Source) error {
	if p.closed {
		return ErrClosed
	}
	token, ok := p.table.bySource(src)
	if !ok {
		return ErrInvalidToken
	}
	err := src.Deregister(p.registry)
	p.table.remove(token)
	p.logger.Debug("source deregistered", zap.Uint64("token", uint64(token)))
	if err != nil {
		return rejected(err)
	}
	return nil
}

// Wait blocks until at least one registered source is ready or timeout
// elapses, then fills events. A negative timeout (Forever) blocks
// indefinitely. events is empty on return only when the timeout elapsed.
func (p *Poll) Wait(events *Events, timeout time.Duration) error {
	if p.closed {
		return ErrClosed
	}
	if events.Cap() == 0 {
		*events = *NewEvents(0)
	}
	events.Clear()

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		p.registry.collect(events)

		wait := Forever
		switch {
		case !events.IsEmpty():
			wait = 0
		case timeout >= 0:
			wait = max(time.Until(deadline), 0)
		}

		if err := p.registry.sys.wait(events, wait); err != nil {
			if !errors.Is(err, errInterrupted) {
				return fmt.Errorf("%w: %w", ErrBackendFailure, err)
			}
			if p.returnOnInterrupt {
				return ErrInterrupted
			}
			p.logger.Debug("selector wait interrupted, retrying")
			continue
		}

		p.registry.collect(events)
		if !events.IsEmpty() {
			return nil
		}
		if timeout >= 0 && !time.Now().Before(deadline) {
			return nil
		}
		p.logger.Debug("spurious wakeup")
	}
}

// Close releases the selector. Registered user-space sources are detached
// and may be registered with another Poll; descriptors are left open.
func (p *Poll) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.table.each(func(e *entry) {
		p.logger.Debug("dropping registration on close", zap.Uint64("token", uint64(e.Token)))
	})
	p.table = newTable()
	return p.registry.close()
}

func durationToMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	if ms > 1<<31-1 {
		ms = 1<<31 - 1
	}
	return int(ms)
}
