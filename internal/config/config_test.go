package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/require"

	serial "github.com/luhtfiimanal/go-serial-poll"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// isolateHome points the default config path at an empty directory.
func isolateHome(t *testing.T) {
	t.Helper()
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, serial.DefaultSettings(), cfg.Settings)
	require.Equal(t, time.Duration(0), cfg.IdleTimeout)
	require.Equal(t, "\n", cfg.LineEnding())
}

func TestLoad_FileEnvAndOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
port: /dev/ttyUSB0
baud: 115200
parity: even
stop-bits: 2
idle-timeout: 5s
eol: crlf
`)
	t.Setenv("SERIALMON_CHAR_SIZE", "7")
	// empty variables count as unset
	t.Setenv(PortEnv, "")
	t.Setenv("SERIALMON_PORT", "")

	cfg, err := Load(path, map[string]any{KeyFlow: "hardware"})
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", cfg.Port)
	require.Equal(t, serial.Settings{
		BaudRate:    serial.Baud115200,
		CharSize:    serial.Bits7,
		Parity:      serial.ParityEven,
		StopBits:    serial.Stop2,
		FlowControl: serial.FlowHardware,
	}, cfg.Settings)
	require.Equal(t, 5*time.Second, cfg.IdleTimeout)
	require.Equal(t, "\r\n", cfg.LineEnding())
}

func TestLoad_PortFromSerialPortEnv(t *testing.T) {
	isolateHome(t)
	t.Setenv(PortEnv, "/dev/ttyACM3")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM3", cfg.Port)
}

func TestLoad_InvalidSettings(t *testing.T) {
	isolateHome(t)
	path := writeFile(t, "config.yaml", "baud: 12345\n")
	_, err := Load(path, nil)
	require.ErrorIs(t, err, serial.ErrInvalidSettings)

	_, err = Load("", map[string]any{KeyParity: "mark"})
	require.ErrorIs(t, err, serial.ErrInvalidSettings)

	_, err = Load("", map[string]any{KeyEOL: "nel"})
	require.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := writeFile(t, ".env", "SERIAL_PORT=/dev/ttyS9\nSERIALMON_BAUD=57600\n")
	t.Setenv("SERIALMON_BAUD", "19200")
	t.Setenv(PortEnv, "")
	os.Unsetenv(PortEnv)

	require.NoError(t, LoadDotEnv(path))
	require.Equal(t, "/dev/ttyS9", os.Getenv(PortEnv))
	require.Equal(t, "19200", os.Getenv("SERIALMON_BAUD"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
