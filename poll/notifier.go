package poll

import (
	"sync"

	"github.com/eapache/queue"
)

// Notifier carries payloads from any goroutine to the goroutine running Wait.
// It is a Source: register it with Readable interest and it is reported while
// its queue holds payloads.
type Notifier struct {
	src *UserSource

	mu       sync.Mutex
	queue    *queue.Queue
	capacity int
	closed   bool
}

// NewNotifier returns a notifier holding at most capacity undelivered
// payloads. A non-positive capacity means unbounded.
func NewNotifier(capacity int) *Notifier {
	return &Notifier{
		src:      NewUserSource(),
		queue:    queue.New(),
		capacity: capacity,
	}
}

// Send queues payload and wakes the Poll the notifier is registered with.
func (n *Notifier) Send(payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNotifierClosed
	}
	if n.capacity > 0 && n.queue.Length() >= n.capacity {
		return ErrNotifierFull
	}
	n.queue.Add(payload)
	n.src.SetReadiness(Readable)
	return nil
}

// TryRecv pops the oldest payload. It reports false when the queue is empty.
func (n *Notifier) TryRecv() (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.queue.Length() == 0 {
		n.src.ClearReadiness(Readable)
		return nil, false
	}
	payload := n.queue.Remove()
	if n.queue.Length() == 0 {
		n.src.ClearReadiness(Readable)
	}
	return payload, true
}

// Len returns the number of undelivered payloads.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.queue.Length()
}

// Close makes further Send calls fail. Queued payloads stay receivable.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}

// Register implements Source.
func (n *Notifier) Register(r *Registry, token Token, interest Interest, mode Mode) error {
	return n.src.Register(r, token, interest, mode)
}

// Reregister implements Source.
func (n *Notifier) Reregister(r *Registry, token Token, interest Interest, mode Mode) error {
	return n.src.Reregister(r, token, interest, mode)
}

// Deregister implements Source.
func (n *Notifier) Deregister(r *Registry) error {
	return n.src.Deregister(r)
}
