package poll

import (
	"sync"

	"go.uber.org/zap"
)

// Registry is the handle a Source uses to reach the platform selector of the
// Poll it is being registered with. Sources receive it in their Register,
// Reregister and Deregister methods; applications never build one.
type Registry struct {
	poll  *Poll
	sys   *selector
	users map[*UserSource]struct{}

	// mu guards sys against Close while another goroutine wakes it.
	mu     sync.RWMutex
	closed bool
}

func newRegistry(p *Poll, sys *selector) *Registry {
	return &Registry{
		poll:  p,
		sys:   sys,
		users: make(map[*UserSource]struct{}),
	}
}

func (r *Registry) addUser(u *UserSource) { r.users[u] = struct{}{} }

func (r *Registry) removeUser(u *UserSource) { delete(r.users, u) }

// collect appends the ready user-space sources to events.
func (r *Registry) collect(events *Events) {
	for u := range r.users {
		u.collect(events)
	}
}

// wake interrupts a blocked selector wait. It is safe from any goroutine.
func (r *Registry) wake() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	if err := r.sys.wake(); err != nil {
		r.poll.logger.Warn("selector wake failed", zap.Error(err))
	}
}

func (r *Registry) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// forget drops the live registration of token, if any. Sources call it
// before releasing the identity they registered.
func (r *Registry) forget(token Token) error {
	p := r.poll
	if p.closed {
		return nil
	}
	e, ok := p.table.byToken(token)
	if !ok {
		return nil
	}
	return p.Deregister(e.source)
}

func (r *Registry) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for u := range r.users {
		u.detach(r)
	}
	r.users = nil
	return r.sys.close()
}
