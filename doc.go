// Package serial exposes serial ports as non-blocking, pollable sources for
// a single-goroutine readiness loop built on package poll.
//
// A Port is opened in raw mode with O_NONBLOCK (Linux, Darwin) or overlapped
// I/O with zero read timeouts (Windows). Instead of parking a goroutine per
// device, the application registers the port with a poll.Poll under a token
// of its choosing and reacts to the events Wait returns. Read and Write never
// wait: when the device has nothing to give or take they return
// ErrWouldBlock, which means "stop and wait for the next event", never
// failure.
//
// Features:
//   - Termios configuration on Linux and Darwin, DCB on Windows
//   - Level and edge registrations (edge registrations are one-shot until
//     reregistered)
//   - Independent duplicates of an open port
//   - Device listing
//   - PTY-based tests
//
// Example usage:
//
//	port, err := serial.OpenWithSettings("/dev/ttyUSB0", serial.Settings{
//	    BaudRate:    serial.Baud115200,
//	    CharSize:    serial.Bits8,
//	    Parity:      serial.ParityNone,
//	    StopBits:    serial.Stop1,
//	    FlowControl: serial.FlowNone,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	p, err := poll.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.Register(port, 0, poll.Readable, poll.Level); err != nil {
//	    log.Fatal(err)
//	}
//
//	events := poll.NewEvents(256)
//	buf := make([]byte, 256)
//	for {
//	    if err := p.Wait(events, poll.Forever); err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, ev := range events.All() {
//	        if ev.Token != 0 || !ev.IsReadable() {
//	            continue
//	        }
//	        for {
//	            n, err := port.Read(buf)
//	            if errors.Is(err, serial.ErrWouldBlock) {
//	                break
//	            }
//	            if err != nil {
//	                log.Fatal(err)
//	            }
//	            fmt.Print(string(buf[:n]))
//	        }
//	    }
//	}
package serial
