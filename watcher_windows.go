//go:build windows

package serial

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows"

	"github.com/luhtfiimanal/go-serial-poll/poll"
)

// watchInterval bounds how long a pending WaitCommEvent goes unchecked for
// a stop request, and paces retries when the driver rejects it.
const watchInterval = 50 * time.Millisecond

// commWatcher turns received characters into Readable readiness on the
// port's user source. After reporting, it stays quiet until the port reads
// the buffer dry (or is reregistered) and calls rearm.
type commWatcher struct {
	h    windows.Handle
	src  *poll.UserSource
	fail func(error)
	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newCommWatcher(h windows.Handle, src *poll.UserSource, fail func(error)) *commWatcher {
	return &commWatcher{
		h:    h,
		src:  src,
		fail: fail,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (w *commWatcher) rearm() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *commWatcher) stop() {
	close(w.quit)
	<-w.done
}

func (w *commWatcher) run() {
	defer close(w.done)

	ev, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		// without an event fall back to polling the input queue
		w.pollQueue()
		return
	}
	defer windows.CloseHandle(ev)

	for {
		if w.buffered() {
			w.src.SetReadiness(poll.Readable)
			if !w.waitRearm() {
				return
			}
			continue
		}
		if !w.waitRx(ev) {
			return
		}
	}
}

// waitRx blocks until a character arrives or stop is requested.
func (w *commWatcher) waitRx(ev windows.Handle) bool {
	var mask uint32
	ov := windows.Overlapped{HEvent: ev}
	err := windows.WaitCommEvent(w.h, &mask, &ov)
	if err == nil {
		return true
	}
	if !errors.Is(err, windows.ERROR_IO_PENDING) {
		w.abort(fmt.Errorf("WaitCommEvent: %w", err))
		return false
	}

	// a character that landed before the wait was queued raises no event
	if w.buffered() {
		w.cancel(&ov)
		return true
	}
	for {
		r, err := windows.WaitForSingleObject(ev, uint32(watchInterval/time.Millisecond))
		if err != nil {
			w.cancel(&ov)
			w.abort(fmt.Errorf("wait comm event: %w", err))
			return false
		}
		if r == windows.WAIT_OBJECT_0 {
			return true
		}
		select {
		case <-w.quit:
			w.cancel(&ov)
			return false
		default:
		}
	}
}

// abort hands err to the next Read and wakes the owner so it gets there.
// The watcher stops; readiness is no longer tracked for the port.
func (w *commWatcher) abort(err error) {
	w.fail(err)
	w.src.SetReadiness(poll.Readable)
}

func (w *commWatcher) cancel(ov *windows.Overlapped) {
	windows.CancelIoEx(w.h, ov)
	var n uint32
	windows.GetOverlappedResult(w.h, ov, &n, true)
}

func (w *commWatcher) pollQueue() {
	for {
		if w.buffered() {
			w.src.SetReadiness(poll.Readable)
			if !w.waitRearm() {
				return
			}
			continue
		}
		if !w.sleep() {
			return
		}
	}
}

func (w *commWatcher) buffered() bool {
	var (
		errs uint32
		stat windows.ComStat
	)
	if err := windows.ClearCommError(w.h, &errs, &stat); err != nil {
		return false
	}
	return stat.CBInQue > 0
}

func (w *commWatcher) waitRearm() bool {
	select {
	case <-w.wake:
		return true
	case <-w.quit:
		return false
	}
}

func (w *commWatcher) sleep() bool {
	select {
	case <-time.After(watchInterval):
		return true
	case <-w.quit:
		return false
	}
}
