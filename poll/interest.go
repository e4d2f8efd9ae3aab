package poll

import (
	"fmt"
	"strings"
)

// Token identifies a registration. It is chosen by the application and must
// be unique among the sources currently registered with one Poll.
type Token uint64

// Interest is a set of readiness kinds.
type Interest uint8

// Readiness kinds.
const (
	Readable Interest = 1 << iota
	Writable
)

// IsReadable reports whether i includes Readable.
func (i Interest) IsReadable() bool { return i&Readable != 0 }

// IsWritable reports whether i includes Writable.
func (i Interest) IsWritable() bool { return i&Writable != 0 }

// IsEmpty reports whether i holds no readiness kind.
func (i Interest) IsEmpty() bool { return i&(Readable|Writable) == 0 }

// String implements fmt.Stringer.
func (i Interest) String() string {
	if i.IsEmpty() {
		return "none"
	}
	parts := make([]string, 0, 2)
	if i.IsReadable() {
		parts = append(parts, "readable")
	}
	if i.IsWritable() {
		parts = append(parts, "writable")
	}
	return strings.Join(parts, "|")
}

// Mode selects how a registration is re-reported.
type Mode uint8

const (
	// Level reports the source on every Wait while it stays ready.
	Level Mode = iota
	// Edge reports a readiness transition once, then disarms the
	// registration until Reregister is called.
	Edge
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Level:
		return "level"
	case Edge:
		return "edge"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

func validate(interest Interest, mode Mode) error {
	if interest.IsEmpty() {
		return fmt.Errorf("%w: empty interest", ErrBackendRejected)
	}
	if interest&^(Readable|Writable) != 0 {
		return fmt.Errorf("%w: unknown interest bits %#x", ErrBackendRejected, uint8(interest))
	}
	if mode != Level && mode != Edge {
		return fmt.Errorf("%w: unknown mode %v", ErrBackendRejected, mode)
	}
	return nil
}
