//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package poll

// FdSource registers a file descriptor with the OS selector. It does not own
// the descriptor: whoever closes it must call Release first, otherwise the
// selector may keep reporting a descriptor number that has been reused.
type FdSource struct {
	fd    int
	reg   *Registry
	token Token
}

// NewFdSource wraps fd. The caller keeps ownership of the descriptor.
func NewFdSource(fd int) *FdSource {
	return &FdSource{fd: fd}
}

// Fd returns the wrapped descriptor.
func (s *FdSource) Fd() int { return s.fd }

// Register implements Source.
func (s *FdSource) Register(r *Registry, token Token, interest Interest, mode Mode) error {
	if s.reg != nil && s.reg != r && !s.reg.isClosed() {
		return errBound
	}
	if err := r.sys.register(s.fd, token, interest, mode); err != nil {
		return err
	}
	s.reg = r
	s.token = token
	return nil
}

// Reregister implements Source.
func (s *FdSource) Reregister(r *Registry, token Token, interest Interest, mode Mode) error {
	if s.reg != r {
		return errNotBound
	}
	if err := r.sys.reregister(s.fd, token, interest, mode); err != nil {
		return err
	}
	s.token = token
	return nil
}

// Deregister implements Source.
func (s *FdSource) Deregister(r *Registry) error {
	if s.reg != r {
		return errNotBound
	}
	s.reg = nil
	return r.sys.deregister(s.fd)
}

// Release drops the live registration of the descriptor, if any. It is a
// no-op when the source is not registered or its Poll is closed.
func (s *FdSource) Release() error {
	r := s.reg
	if r == nil {
		return nil
	}
	err := r.forget(s.token)
	s.reg = nil
	return err
}
