// Package poll is a single-goroutine readiness dispatcher.
//
// A Poll owns a registration table mapping application chosen tokens to
// sources and their interest, and a backend selector: epoll on Linux, kqueue
// on Darwin and the BSDs, and an I/O completion port on Windows. The owning
// goroutine calls Wait in a loop and dispatches on the tokens of the returned
// batch; the Poll never calls back into application code.
//
// Sources implement the Source interface. Descriptors are wrapped with
// FdSource, in-process readiness is modelled with UserSource, and two
// auxiliary sources are built on it: Notifier, which lets another goroutine
// wake a blocked Wait with a payload, and Timer, which turns one-shot
// deadlines into readable events.
//
// Level registrations are reported on every Wait while the source stays
// ready, so handlers must drain them until the source would block. Edge
// registrations are reported once and then stay silent until Reregister
// re-arms them.
//
// Example:
//
//	p, err := poll.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	wake := poll.NewNotifier(0)
//	if err := p.Register(wake, 1, poll.Readable, poll.Level); err != nil {
//	    log.Fatal(err)
//	}
//
//	go wake.Send("stop")
//
//	events := poll.NewEvents(64)
//	for {
//	    if err := p.Wait(events, poll.Forever); err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, ev := range events.All() {
//	        if ev.Token == 1 {
//	            msg, _ := wake.TryRecv()
//	            fmt.Println("woken:", msg)
//	            return
//	        }
//	    }
//	}
package poll
