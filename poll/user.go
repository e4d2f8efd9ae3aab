package poll

import "sync"

// UserSource is a source whose readiness is set in-process rather than by the
// OS. SetReadiness and ClearReadiness may be called from any goroutine;
// setting readiness the registration is interested in wakes a blocked Wait.
//
// The zero value is ready to use.
type UserSource struct {
	mu        sync.Mutex
	readiness Interest

	reg      *Registry
	token    Token
	interest Interest
	mode     Mode

	// armed is false once an Edge registration has been reported, until
	// Reregister. pending records a transition not yet reported.
	armed   bool
	pending bool
}

// NewUserSource returns a source with no readiness.
func NewUserSource() *UserSource { return &UserSource{} }

// Register implements Source.
func (u *UserSource) Register(r *Registry, token Token, interest Interest, mode Mode) error {
	u.mu.Lock()
	if u.reg != nil {
		u.mu.Unlock()
		return errBound
	}
	u.reg = r
	u.token = token
	u.interest = interest
	u.mode = mode
	u.armed = true
	u.pending = u.readiness&interest != 0
	u.mu.Unlock()

	r.addUser(u)
	return nil
}

// Reregister implements Source.
func (u *UserSource) Reregister(r *Registry, token Token, interest Interest, mode Mode) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.reg != r {
		return errNotBound
	}
	u.token = token
	u.interest = interest
	u.mode = mode
	u.armed = true
	u.pending = u.readiness&interest != 0
	return nil
}

// Deregister implements Source.
func (u *UserSource) Deregister(r *Registry) error {
	u.mu.Lock()
	if u.reg != r {
		u.mu.Unlock()
		return errNotBound
	}
	u.reg = nil
	u.mu.Unlock()

	r.removeUser(u)
	return nil
}

// Release drops the live registration of the source, if any, from the Poll
// that owns it. Call it from that Poll's goroutine.
func (u *UserSource) Release() error {
	u.mu.Lock()
	r, token := u.reg, u.token
	u.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.forget(token)
}

// SetReadiness adds ready to the source's readiness.
func (u *UserSource) SetReadiness(ready Interest) {
	u.mu.Lock()
	u.readiness |= ready
	r := u.reg
	notify := r != nil && ready&u.interest != 0
	if notify {
		u.pending = true
	}
	u.mu.Unlock()

	if notify {
		r.wake()
	}
}

// ClearReadiness removes ready from the source's readiness.
func (u *UserSource) ClearReadiness(ready Interest) {
	u.mu.Lock()
	u.readiness &^= ready
	if u.readiness&u.interest == 0 {
		u.pending = false
	}
	u.mu.Unlock()
}

// Readiness returns the current readiness.
func (u *UserSource) Readiness() Interest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.readiness
}

func (u *UserSource) collect(events *Events) {
	u.mu.Lock()
	defer u.mu.Unlock()
	ready := u.readiness & u.interest
	if ready == 0 || !events.canAdd(u.token) {
		return
	}
	switch u.mode {
	case Level:
		events.add(u.token, ready)
	case Edge:
		if !u.armed || !u.pending {
			return
		}
		events.add(u.token, ready)
		u.armed = false
		u.pending = false
	}
}

func (u *UserSource) detach(r *Registry) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.reg == r {
		u.reg = nil
	}
}
