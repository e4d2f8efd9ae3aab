package logs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNamedCarriesComponent(t *testing.T) {
	l := Named("poll")
	require.NotNil(t, l)
	Info("plain record")
	Debug("debug record")
}

func TestSetDebugEnablesDebug(t *testing.T) {
	SetDebug()
	require.True(t, current().Core().Enabled(zapcore.DebugLevel))
}
