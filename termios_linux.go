package serial

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)

var baudRates = map[BaudRate]uint32{
	Baud110:    unix.B110,
	Baud300:    unix.B300,
	Baud600:    unix.B600,
	Baud1200:   unix.B1200,
	Baud2400:   unix.B2400,
	Baud4800:   unix.B4800,
	Baud9600:   unix.B9600,
	Baud19200:  unix.B19200,
	Baud38400:  unix.B38400,
	Baud57600:  unix.B57600,
	Baud115200: unix.B115200,
	Baud230400: unix.B230400,
}

func setSpeed(t *unix.Termios, rate BaudRate) error {
	speed, ok := baudRates[rate]
	if !ok {
		return fmt.Errorf("%w: unsupported baud rate %d", ErrInvalidSettings, rate)
	}
	t.Cflag &^= unix.CBAUD
	t.Cflag |= speed
	t.Ispeed = speed
	t.Ospeed = speed
	return nil
}

func getSpeed(t *unix.Termios) BaudRate {
	speed := t.Cflag & unix.CBAUD
	for rate, s := range baudRates {
		if s == speed {
			return rate
		}
	}
	return 0
}

// drain is tcdrain(3).
func drain(fd int) error {
	return unix.IoctlSetInt(fd, unix.TCSBRK, 1)
}
