package poll

// DefaultEventsCapacity is used when NewEvents is given a non-positive size.
const DefaultEventsCapacity = 256

// Event is one entry of a batch: a token and the readiness observed for it.
type Event struct {
	Token Token
	Ready Interest
}

// IsReadable reports whether the source can be read.
func (e Event) IsReadable() bool { return e.Ready.IsReadable() }

// IsWritable reports whether the source can be written.
func (e Event) IsWritable() bool { return e.Ready.IsWritable() }

// Events is a bounded batch filled by Poll.Wait. It is reused across calls;
// slices returned by All are only valid until the next Wait.
//
// A token appears at most once per batch. The order of distinct tokens is
// unspecified.
type Events struct {
	list []Event
}

// NewEvents allocates a batch holding at most capacity events.
func NewEvents(capacity int) *Events {
	if capacity <= 0 {
		capacity = DefaultEventsCapacity
	}
	return &Events{list: make([]Event, 0, capacity)}
}

// Len returns the number of events in the batch.
func (e *Events) Len() int { return len(e.list) }

// Cap returns the most events one Wait can deliver.
func (e *Events) Cap() int { return cap(e.list) }

// IsEmpty reports whether the last Wait timed out.
func (e *Events) IsEmpty() bool { return len(e.list) == 0 }

// Get returns the i-th event of the batch.
func (e *Events) Get(i int) Event { return e.list[i] }

// All returns the batch as a slice.
func (e *Events) All() []Event { return e.list }

// Clear empties the batch without releasing its storage.
func (e *Events) Clear() { e.list = e.list[:0] }

func (e *Events) remaining() int { return cap(e.list) - len(e.list) }

func (e *Events) index(token Token) int {
	for i := range e.list {
		if e.list[i].Token == token {
			return i
		}
	}
	return -1
}

// canAdd reports whether an event for token fits, either merged into an
// existing entry or appended.
func (e *Events) canAdd(token Token) bool {
	return e.remaining() > 0 || e.index(token) >= 0
}

// add merges ready into the entry for token or appends a new one. It reports
// false when the batch is full.
func (e *Events) add(token Token, ready Interest) bool {
	if ready.IsEmpty() {
		return true
	}
	if i := e.index(token); i >= 0 {
		e.list[i].Ready |= ready
		return true
	}
	if e.remaining() == 0 {
		return false
	}
	e.list = append(e.list, Event{Token: token, Ready: ready})
	return true
}
