//go:build !linux && !darwin && !windows

package serial

import "github.com/luhtfiimanal/go-serial-poll/poll"

// Identity is a placeholder on systems without a port implementation.
type Identity = uintptr

type portSys struct{}

func openPort(string) (*portSys, error) { return nil, ErrUnsupportedPlatform }

func (s *portSys) configure(Settings) error { return ErrUnsupportedPlatform }

func (s *portSys) readSettings() (Settings, error) { return Settings{}, ErrUnsupportedPlatform }

func (s *portSys) read([]byte) (int, error) { return 0, ErrUnsupportedPlatform }

func (s *portSys) write([]byte) (int, error) { return 0, ErrUnsupportedPlatform }

func (s *portSys) flush() error { return ErrUnsupportedPlatform }

func (s *portSys) duplicate() (*portSys, error) { return nil, ErrUnsupportedPlatform }

func (s *portSys) identity() Identity { return 0 }

func (s *portSys) close() error { return nil }

func (s *portSys) register(*poll.Registry, poll.Token, poll.Interest, poll.Mode) error {
	return ErrUnsupportedPlatform
}

func (s *portSys) reregister(*poll.Registry, poll.Token, poll.Interest, poll.Mode) error {
	return ErrUnsupportedPlatform
}

func (s *portSys) deregister(*poll.Registry) error { return ErrUnsupportedPlatform }

// ListPorts is not supported on this system.
func ListPorts() ([]string, error) { return nil, ErrUnsupportedPlatform }
