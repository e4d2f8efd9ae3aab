//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd && !windows

package poll

import (
	"errors"
	"runtime"
	"time"
)

type selector struct{}

func newSelector() (*selector, error) {
	return nil, errors.New("no readiness backend for " + runtime.GOOS)
}

func (s *selector) wait(*Events, time.Duration) error { return nil }

func (s *selector) wake() error { return nil }

func (s *selector) close() error { return nil }
