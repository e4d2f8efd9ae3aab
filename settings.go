package serial

import (
	"fmt"
	"strconv"
	"strings"
)

// BaudRate is a line speed in bits per second.
type BaudRate int

// Standard baud rates.
const (
	Baud110    BaudRate = 110
	Baud300    BaudRate = 300
	Baud600    BaudRate = 600
	Baud1200   BaudRate = 1200
	Baud2400   BaudRate = 2400
	Baud4800   BaudRate = 4800
	Baud9600   BaudRate = 9600
	Baud19200  BaudRate = 19200
	Baud38400  BaudRate = 38400
	Baud57600  BaudRate = 57600
	Baud115200 BaudRate = 115200
	Baud230400 BaudRate = 230400
)

// StandardBaudRates lists the rates accepted by Settings.Validate, slowest
// first.
var StandardBaudRates = []BaudRate{
	Baud110, Baud300, Baud600, Baud1200, Baud2400, Baud4800,
	Baud9600, Baud19200, Baud38400, Baud57600, Baud115200, Baud230400,
}

// CharSize is the number of data bits per character.
type CharSize int

// Character sizes.
const (
	Bits5 CharSize = 5
	Bits6 CharSize = 6
	Bits7 CharSize = 7
	Bits8 CharSize = 8
)

// Parity is the parity bit mode.
type Parity int

// Parity modes.
const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// String returns "none", "odd" or "even".
func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return "Parity(" + strconv.Itoa(int(p)) + ")"
	}
}

// StopBits is the number of stop bits per character.
type StopBits int

// Stop bit counts.
const (
	Stop1 StopBits = 1
	Stop2 StopBits = 2
)

// FlowControl is the flow control mode of the line.
type FlowControl int

// Flow control modes.
const (
	FlowNone FlowControl = iota
	// FlowSoftware is XON/XOFF.
	FlowSoftware
	// FlowHardware is RTS/CTS.
	FlowHardware
)

// String returns "none", "software" or "hardware".
func (f FlowControl) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowSoftware:
		return "software"
	case FlowHardware:
		return "hardware"
	default:
		return "FlowControl(" + strconv.Itoa(int(f)) + ")"
	}
}

// Settings is the line configuration applied to a port.
type Settings struct {
	BaudRate    BaudRate
	CharSize    CharSize
	Parity      Parity
	StopBits    StopBits
	FlowControl FlowControl
}

// DefaultSettings returns 9600 baud, 8 data bits, no parity, one stop bit
// and no flow control.
func DefaultSettings() Settings {
	return Settings{
		BaudRate:    Baud9600,
		CharSize:    Bits8,
		Parity:      ParityNone,
		StopBits:    Stop1,
		FlowControl: FlowNone,
	}
}

// String renders the settings in the usual "9600 8N1" form.
func (s Settings) String() string {
	parity := "?"
	switch s.Parity {
	case ParityNone:
		parity = "N"
	case ParityOdd:
		parity = "O"
	case ParityEven:
		parity = "E"
	}
	out := fmt.Sprintf("%d %d%s%d", s.BaudRate, s.CharSize, parity, s.StopBits)
	if s.FlowControl != FlowNone {
		out += " " + s.FlowControl.String()
	}
	return out
}

// Validate reports whether every field holds a supported value. The error
// wraps ErrInvalidSettings.
func (s Settings) Validate() error {
	if !isStandardBaudRate(s.BaudRate) {
		return fmt.Errorf("%w: unsupported baud rate %d", ErrInvalidSettings, s.BaudRate)
	}
	if s.CharSize < Bits5 || s.CharSize > Bits8 {
		return fmt.Errorf("%w: unsupported char size %d", ErrInvalidSettings, s.CharSize)
	}
	switch s.Parity {
	case ParityNone, ParityOdd, ParityEven:
	default:
		return fmt.Errorf("%w: unsupported parity %v", ErrInvalidSettings, s.Parity)
	}
	if s.StopBits != Stop1 && s.StopBits != Stop2 {
		return fmt.Errorf("%w: unsupported stop bits %d", ErrInvalidSettings, s.StopBits)
	}
	switch s.FlowControl {
	case FlowNone, FlowSoftware, FlowHardware:
	default:
		return fmt.Errorf("%w: unsupported flow control %v", ErrInvalidSettings, s.FlowControl)
	}
	return nil
}

func isStandardBaudRate(b BaudRate) bool {
	for _, r := range StandardBaudRates {
		if r == b {
			return true
		}
	}
	return false
}

// ParseBaudRate returns n as a BaudRate if it is a standard rate.
func ParseBaudRate(n int) (BaudRate, error) {
	if !isStandardBaudRate(BaudRate(n)) {
		return 0, fmt.Errorf("%w: unsupported baud rate %d", ErrInvalidSettings, n)
	}
	return BaudRate(n), nil
}

// ParseCharSize returns n as a CharSize if it is between 5 and 8.
func ParseCharSize(n int) (CharSize, error) {
	if n < int(Bits5) || n > int(Bits8) {
		return 0, fmt.Errorf("%w: unsupported char size %d", ErrInvalidSettings, n)
	}
	return CharSize(n), nil
}

// ParseParity accepts none/odd/even or their first letter, in any case.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "n", "":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	}
	return 0, fmt.Errorf("%w: unknown parity %q", ErrInvalidSettings, s)
}

// ParseStopBits accepts 1 or 2.
func ParseStopBits(n int) (StopBits, error) {
	switch StopBits(n) {
	case Stop1, Stop2:
		return StopBits(n), nil
	}
	return 0, fmt.Errorf("%w: unsupported stop bits %d", ErrInvalidSettings, n)
}

// ParseFlowControl accepts none, software (xonxoff) and hardware (rtscts).
func ParseFlowControl(s string) (FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return FlowNone, nil
	case "software", "xonxoff":
		return FlowSoftware, nil
	case "hardware", "rtscts":
		return FlowHardware, nil
	}
	return 0, fmt.Errorf("%w: unknown flow control %q", ErrInvalidSettings, s)
}
