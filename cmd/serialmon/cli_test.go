package main

import (
	"bytes"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-serial-poll/internal/config"
)

func isolate(t *testing.T) {
	t.Helper()
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.PortEnv, "")
	t.Setenv(config.EnvPrefix+"_PORT", "")
}

func TestWrapper_Commands(t *testing.T) {
	w := NewWrapper()
	var names []string
	for _, cmd := range w.app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"monitor", "console", "list"}, names)
	assert.Equal(t, "serialmon", w.app.Name)
}

func TestWrapper_PortRequired(t *testing.T) {
	isolate(t)
	for _, cmd := range []string{"monitor", "console"} {
		err := NewWrapper().Run([]string{"serialmon", cmd})
		require.Error(t, err, cmd)
		assert.Contains(t, err.Error(), "serial port name", cmd)
	}
}

func TestWrapper_InvalidSettingsFlag(t *testing.T) {
	isolate(t)
	cases := [][]string{
		{"serialmon", "--baud", "12345", "list"},
		{"serialmon", "--char-size", "9", "list"},
		{"serialmon", "--parity", "mark", "list"},
		{"serialmon", "--stop-bits", "3", "list"},
		{"serialmon", "--flow", "dsr", "list"},
	}
	for _, args := range cases {
		require.Error(t, NewWrapper().Run(args), args)
	}
}

func TestWrapper_BadConfigFile(t *testing.T) {
	isolate(t)
	err := NewWrapper().Run([]string{"serialmon", "--config", "/does/not/exist.yaml", "monitor", "/dev/null"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestWrapper_List(t *testing.T) {
	isolate(t)
	w := NewWrapper()
	var out bytes.Buffer
	w.app.Writer = &out
	require.NoError(t, w.Run([]string{"serialmon", "list"}))
}
