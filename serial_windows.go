//go:build windows

package serial

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/luhtfiimanal/go-serial-poll/poll"
)

// Identity is the handle a Port is waited on with.
type Identity = windows.Handle

// DCB Flags bitfield, see the DCB documentation.
const (
	dcbBinary           = 0x00000001
	dcbParity           = 0x00000002
	dcbOutxCtsFlow      = 0x00000004
	dcbOutxDsrFlow      = 0x00000008
	dcbDtrControlMask   = 0x00000030
	dcbDtrControlEnable = 0x00000010
	dcbOutX             = 0x00000100
	dcbInX              = 0x00000200
	dcbRtsControlMask   = 0x00003000
	dcbRtsControlEnable = 0x00001000
	dcbRtsHandshake     = 0x00002000
	dcbAbortOnError     = 0x00004000

	noParity    = 0
	oddParity   = 1
	evenParity  = 2
	oneStopBit  = 0
	twoStopBits = 2

	evRxChar = 0x0001
	maxDword = 0xFFFFFFFF
)

type portSys struct {
	h       windows.Handle
	readEv  windows.Handle
	writeEv windows.Handle
	src     *poll.UserSource

	// outstanding overlapped write; the driver owns wbuf until wdone closes
	wov   *windows.Overlapped
	wbuf  []byte
	wdone chan struct{}

	mu       sync.Mutex
	watcher  *commWatcher
	watchErr error
}

func openPort(name string) (*portSys, error) {
	path := name
	if !strings.HasPrefix(path, `\\.\`) {
		path = `\\.\` + path
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL|windows.FILE_FLAG_OVERLAPPED,
		0)
	if err != nil {
		return nil, err
	}

	s, err := newPortSys(h)
	if err != nil {
		windows.CloseHandle(h)
		return nil, err
	}
	if err := s.makeRaw(); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func newPortSys(h windows.Handle) (*portSys, error) {
	readEv, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateEvent: %w", err)
	}
	writeEv, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		windows.CloseHandle(readEv)
		return nil, fmt.Errorf("CreateEvent: %w", err)
	}
	src := poll.NewUserSource()
	// writable whenever no overlapped write is outstanding
	src.SetReadiness(poll.Writable)
	return &portSys{h: h, readEv: readEv, writeEv: writeEv, src: src, wov: new(windows.Overlapped)}, nil
}

func (s *portSys) makeRaw() error {
	var d windows.DCB
	d.DCBlength = uint32(unsafe.Sizeof(d))
	if err := windows.GetCommState(s.h, &d); err != nil {
		return fmt.Errorf("GetCommState: %w", err)
	}
	d.Flags &^= dcbOutxDsrFlow | dcbAbortOnError
	d.Flags |= dcbBinary
	if err := windows.SetCommState(s.h, &d); err != nil {
		return fmt.Errorf("SetCommState: %w", err)
	}

	// MAXDWORD/0/0: ReadFile returns at once with whatever is buffered
	timeouts := windows.CommTimeouts{ReadIntervalTimeout: maxDword}
	if err := windows.SetCommTimeouts(s.h, &timeouts); err != nil {
		return fmt.Errorf("SetCommTimeouts: %w", err)
	}
	if err := windows.SetCommMask(s.h, evRxChar); err != nil {
		return fmt.Errorf("SetCommMask: %w", err)
	}
	return nil
}

func (s *portSys) configure(settings Settings) error {
	var d windows.DCB
	d.DCBlength = uint32(unsafe.Sizeof(d))
	if err := windows.GetCommState(s.h, &d); err != nil {
		return fmt.Errorf("GetCommState: %w", err)
	}

	d.BaudRate = uint32(settings.BaudRate)
	d.ByteSize = uint8(settings.CharSize)

	d.Flags &^= dcbParity
	switch settings.Parity {
	case ParityOdd:
		d.Parity = oddParity
		d.Flags |= dcbParity
	case ParityEven:
		d.Parity = evenParity
		d.Flags |= dcbParity
	default:
		d.Parity = noParity
	}

	d.StopBits = oneStopBit
	if settings.StopBits == Stop2 {
		d.StopBits = twoStopBits
	}

	d.Flags &^= dcbOutxCtsFlow | dcbOutX | dcbInX | dcbRtsControlMask | dcbDtrControlMask
	d.Flags |= dcbDtrControlEnable
	switch settings.FlowControl {
	case FlowSoftware:
		d.Flags |= dcbOutX | dcbInX | dcbRtsControlEnable
		d.XonChar = 0x11
		d.XoffChar = 0x13
	case FlowHardware:
		d.Flags |= dcbOutxCtsFlow | dcbRtsHandshake
	default:
		d.Flags |= dcbRtsControlEnable
	}

	if err := windows.SetCommState(s.h, &d); err != nil {
		return fmt.Errorf("SetCommState: %w", err)
	}
	return nil
}

func (s *portSys) readSettings() (Settings, error) {
	var d windows.DCB
	d.DCBlength = uint32(unsafe.Sizeof(d))
	if err := windows.GetCommState(s.h, &d); err != nil {
		return Settings{}, fmt.Errorf("GetCommState: %w", err)
	}

	out := Settings{
		BaudRate: BaudRate(d.BaudRate),
		CharSize: CharSize(d.ByteSize),
		Parity:   ParityNone,
		StopBits: Stop1,
	}
	if !isStandardBaudRate(out.BaudRate) {
		out.BaudRate = 0
	}
	switch d.Parity {
	case oddParity:
		out.Parity = ParityOdd
	case evenParity:
		out.Parity = ParityEven
	}
	if d.StopBits == twoStopBits {
		out.StopBits = Stop2
	}
	switch {
	case d.Flags&dcbOutxCtsFlow != 0:
		out.FlowControl = FlowHardware
	case d.Flags&(dcbOutX|dcbInX) != 0:
		out.FlowControl = FlowSoftware
	}
	return out, nil
}

func (s *portSys) read(b []byte) (int, error) {
	if err := s.takeWatchErr(); err != nil {
		return 0, err
	}
	if len(b) == 0 {
		return 0, nil
	}
	ov := windows.Overlapped{HEvent: s.readEv}
	var n uint32
	err := windows.ReadFile(s.h, b, &n, &ov)
	if errors.Is(err, windows.ERROR_IO_PENDING) {
		// completes at once with the read timeouts set by makeRaw
		err = windows.GetOverlappedResult(s.h, &ov, &n, true)
	}
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_HANDLE) || errors.Is(err, windows.ERROR_OPERATION_ABORTED) {
			return 0, io.EOF
		}
		return 0, err
	}
	if n == 0 {
		s.src.ClearReadiness(poll.Readable)
		s.rearm()
		return 0, ErrWouldBlock
	}
	return int(n), nil
}

// write hands b to the driver and returns without waiting for it to go
// out. While the driver still holds an earlier write the port is not
// writable and write returns ErrWouldBlock.
func (s *portSys) write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if err := s.finishWrite(); err != nil {
		return 0, err
	}

	s.wbuf = append(s.wbuf[:0], b...)
	*s.wov = windows.Overlapped{HEvent: s.writeEv}
	var n uint32
	err := windows.WriteFile(s.h, s.wbuf, &n, s.wov)
	switch {
	case err == nil:
		return int(n), nil
	case errors.Is(err, windows.ERROR_IO_PENDING):
		s.src.ClearReadiness(poll.Writable)
		s.wdone = make(chan struct{})
		go s.awaitWrite(s.wdone)
		return len(b), nil
	default:
		return 0, err
	}
}

// finishWrite reaps the outstanding write, returning its error if it
// failed.
func (s *portSys) finishWrite() error {
	if s.wdone == nil {
		return nil
	}
	var n uint32
	err := windows.GetOverlappedResult(s.h, s.wov, &n, false)
	if errors.Is(err, windows.ERROR_IO_INCOMPLETE) {
		return ErrWouldBlock
	}
	<-s.wdone
	s.wdone = nil
	return err
}

func (s *portSys) awaitWrite(done chan struct{}) {
	defer close(done)
	windows.WaitForSingleObject(s.writeEv, windows.INFINITE)
	s.src.SetReadiness(poll.Writable)
}

// cancelWrite aborts the outstanding write, if any.
func (s *portSys) cancelWrite() {
	if s.wdone == nil {
		return
	}
	windows.CancelIoEx(s.h, s.wov)
	<-s.wdone
	s.wdone = nil
}

func (s *portSys) flush() error {
	return windows.FlushFileBuffers(s.h)
}

func (s *portSys) duplicate() (*portSys, error) {
	proc := windows.CurrentProcess()
	var h windows.Handle
	if err := windows.DuplicateHandle(proc, s.h, proc, &h, 0, false, windows.DUPLICATE_SAME_ACCESS); err != nil {
		return nil, err
	}
	dup, err := newPortSys(h)
	if err != nil {
		windows.CloseHandle(h)
		return nil, err
	}
	return dup, nil
}

func (s *portSys) identity() Identity { return s.h }

func (s *portSys) close() error {
	rerr := s.src.Release()
	s.stopWatcher()
	s.cancelWrite()
	windows.CloseHandle(s.readEv)
	windows.CloseHandle(s.writeEv)
	if err := windows.CloseHandle(s.h); err != nil {
		return err
	}
	return rerr
}

func (s *portSys) register(r *poll.Registry, token poll.Token, interest poll.Interest, mode poll.Mode) error {
	if err := s.src.Register(r, token, interest, mode); err != nil {
		return err
	}
	s.startWatcher()
	return nil
}

func (s *portSys) reregister(r *poll.Registry, token poll.Token, interest poll.Interest, mode poll.Mode) error {
	if err := s.src.Reregister(r, token, interest, mode); err != nil {
		return err
	}
	s.rearm()
	return nil
}

func (s *portSys) deregister(r *poll.Registry) error {
	if err := s.src.Deregister(r); err != nil {
		return err
	}
	s.stopWatcher()
	return nil
}

func (s *portSys) startWatcher() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return
	}
	s.watcher = newCommWatcher(s.h, s.src, s.watchFailed)
	go s.watcher.run()
}

func (s *portSys) stopWatcher() {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		w.stop()
	}
}

func (s *portSys) rearm() {
	s.mu.Lock()
	w := s.watcher
	s.mu.Unlock()
	if w != nil {
		w.rearm()
	}
}

func (s *portSys) watchFailed(err error) {
	s.mu.Lock()
	s.watchErr = err
	s.mu.Unlock()
}

func (s *portSys) takeWatchErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.watchErr
	s.watchErr = nil
	return err
}
