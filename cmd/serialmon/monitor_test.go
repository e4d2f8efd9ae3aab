package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-serial-poll/poll"
)

func TestIdleWatch_ActivityDiscardsQueuedExpiry(t *testing.T) {
	p, err := poll.New()
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	w := newIdleWatch(30 * time.Millisecond)
	t.Cleanup(w.close)
	require.NoError(t, p.Register(w.timer, idleToken, poll.Readable, poll.Level))
	require.NoError(t, w.start())

	// the deadline passes while data is on its way
	events := poll.NewEvents(4)
	require.NoError(t, p.Wait(events, time.Second))
	require.Equal(t, 1, events.Len())

	require.NoError(t, w.activity())
	require.False(t, w.expired())
	require.NoError(t, p.Wait(events, 5*time.Millisecond))
	require.True(t, events.IsEmpty())

	// silence after the re-arm still ends in an expiry
	require.NoError(t, p.Wait(events, time.Second))
	require.Equal(t, 1, events.Len())
	require.True(t, w.expired())
	require.False(t, w.expired())
}

func TestIdleWatch_Disabled(t *testing.T) {
	w := newIdleWatch(0)
	t.Cleanup(w.close)
	require.False(t, w.enabled())
	require.NoError(t, w.start())
	require.NoError(t, w.activity())
	require.Zero(t, w.timer.Pending())
	require.False(t, w.expired())
}
