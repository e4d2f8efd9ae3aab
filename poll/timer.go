package poll

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// Timeout identifies one pending deadline of a Timer.
type Timeout struct {
	id uint64
}

type timeoutEntry struct {
	payload any
	timer   *time.Timer
}

// Timer is a Source that becomes readable when one of its deadlines passes.
// Expired payloads are popped with Poll in expiry order. Any number of
// deadlines may be pending at once.
type Timer struct {
	src *UserSource

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*timeoutEntry
	expired *queue.Queue
	closed  bool
}

// NewTimer returns a timer with no pending deadlines.
func NewTimer() *Timer {
	return &Timer{
		src:     NewUserSource(),
		pending: make(map[uint64]*timeoutEntry),
		expired: queue.New(),
	}
}

// SetTimeout schedules payload to expire after d.
func (t *Timer) SetTimeout(d time.Duration, payload any) (Timeout, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return Timeout{}, ErrTimerClosed
	}
	t.nextID++
	id := t.nextID
	e := &timeoutEntry{payload: payload}
	t.pending[id] = e
	e.timer = time.AfterFunc(d, func() { t.expire(id) })
	return Timeout{id: id}, nil
}

// CancelTimeout removes a deadline that has not expired yet and returns its
// payload.
func (t *Timer) CancelTimeout(to Timeout) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.pending[to.id]
	if !ok {
		return nil, false
	}
	e.timer.Stop()
	delete(t.pending, to.id)
	return e.payload, true
}

// Poll pops the oldest expired payload.
func (t *Timer) Poll() (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expired.Length() == 0 {
		t.src.ClearReadiness(Readable)
		return nil, false
	}
	payload := t.expired.Remove()
	if t.expired.Length() == 0 {
		t.src.ClearReadiness(Readable)
	}
	return payload, true
}

// Pending returns the number of deadlines that have not expired yet.
func (t *Timer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Close stops every pending deadline. Expired payloads stay available.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for id, e := range t.pending {
		e.timer.Stop()
		delete(t.pending, id)
	}
}

func (t *Timer) expire(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.pending[id]
	if !ok {
		return
	}
	delete(t.pending, id)
	t.expired.Add(e.payload)
	t.src.SetReadiness(Readable)
}

// Register implements Source.
func (t *Timer) Register(r *Registry, token Token, interest Interest, mode Mode) error {
	return t.src.Register(r, token, interest, mode)
}

// Reregister implements Source.
func (t *Timer) Reregister(r *Registry, token Token, interest Interest, mode Mode) error {
	return t.src.Reregister(r, token, interest, mode)
}

// Deregister implements Source.
func (t *Timer) Deregister(r *Registry) error {
	return t.src.Deregister(r)
}
