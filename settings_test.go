package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	require.Equal(t, "9600 8N1", s.String())
}

func TestSettings_Validate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(s *Settings)
		ok     bool
	}{
		{"default", func(s *Settings) {}, true},
		{"fastest", func(s *Settings) { s.BaudRate = Baud230400 }, true},
		{"slowest 5 bits", func(s *Settings) { s.BaudRate = Baud110; s.CharSize = Bits5 }, true},
		{"odd two stop", func(s *Settings) { s.Parity = ParityOdd; s.StopBits = Stop2 }, true},
		{"hardware flow", func(s *Settings) { s.FlowControl = FlowHardware }, true},
		{"nonstandard baud", func(s *Settings) { s.BaudRate = 12345 }, false},
		{"zero baud", func(s *Settings) { s.BaudRate = 0 }, false},
		{"char size 4", func(s *Settings) { s.CharSize = 4 }, false},
		{"char size 9", func(s *Settings) { s.CharSize = 9 }, false},
		{"parity mark", func(s *Settings) { s.Parity = 3 }, false},
		{"stop bits 3", func(s *Settings) { s.StopBits = 3 }, false},
		{"flow control", func(s *Settings) { s.FlowControl = 7 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultSettings()
			tc.modify(&s)
			err := s.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidSettings)
			}
		})
	}
}

func TestParse(t *testing.T) {
	b, err := ParseBaudRate(115200)
	require.NoError(t, err)
	assert.Equal(t, Baud115200, b)
	_, err = ParseBaudRate(100)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	cs, err := ParseCharSize(7)
	require.NoError(t, err)
	assert.Equal(t, Bits7, cs)
	_, err = ParseCharSize(10)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	for in, want := range map[string]Parity{"none": ParityNone, "N": ParityNone, "Odd": ParityOdd, "e": ParityEven} {
		got, err := ParseParity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err = ParseParity("mark")
	assert.ErrorIs(t, err, ErrInvalidSettings)

	sb, err := ParseStopBits(2)
	require.NoError(t, err)
	assert.Equal(t, Stop2, sb)
	_, err = ParseStopBits(0)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	for in, want := range map[string]FlowControl{"none": FlowNone, "xonxoff": FlowSoftware, "RTSCTS": FlowHardware, "hardware": FlowHardware} {
		got, err := ParseFlowControl(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err = ParseFlowControl("dsr")
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestSettings_String(t *testing.T) {
	s := Settings{BaudRate: Baud115200, CharSize: Bits7, Parity: ParityEven, StopBits: Stop2, FlowControl: FlowHardware}
	assert.Equal(t, "115200 7E2 hardware", s.String())
	assert.Equal(t, "odd", ParityOdd.String())
	assert.Equal(t, "software", FlowSoftware.String())
}
