//go:build linux || darwin

package main

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serial "github.com/luhtfiimanal/go-serial-poll"
	"github.com/luhtfiimanal/go-serial-poll/internal/metrics"
	"github.com/luhtfiimanal/go-serial-poll/poll"
)

type rig struct {
	master *os.File
	port   *serial.Port
	poll   *poll.Poll
	m      *metrics.Helper
}

func newRig(t *testing.T) *rig {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	port, err := serial.Open(slave.Name())
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	p, err := poll.New()
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	require.NoError(t, p.Register(port, portToken, poll.Readable, poll.Level))

	return &rig{master: master, port: port, poll: p, m: metrics.New()}
}

func (r *rig) waitReadable(t *testing.T) {
	t.Helper()
	events := poll.NewEvents(4)
	require.NoError(t, r.poll.Wait(events, 2*time.Second))
	require.Equal(t, 1, events.Len())
	require.True(t, events.Get(0).IsReadable())
}

func TestDrain_StopsOnWouldBlock(t *testing.T) {
	r := newRig(t)
	_, err := r.master.Write([]byte("hello"))
	require.NoError(t, err)

	var out bytes.Buffer
	buf := make([]byte, 2)
	for out.Len() < 5 {
		r.waitReadable(t)
		_, err := drain(r.port, buf, &out, r.m)
		require.NoError(t, err)
	}
	assert.Equal(t, "hello", out.String())
	assert.Equal(t, float64(5), testutil.ToFloat64(r.m.BytesRead))
	assert.NotZero(t, testutil.ToFloat64(r.m.WouldBlock.WithLabelValues("read")))
}

func TestDrain_HangupIsAnError(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.master.Close())

	r.waitReadable(t)
	_, err := drain(r.port, make([]byte, 8), &bytes.Buffer{}, r.m)
	require.Error(t, err)
	require.NotErrorIs(t, err, serial.ErrWouldBlock)
}

func TestFlushPending(t *testing.T) {
	r := newRig(t)

	left, err := flushPending(r.port, []byte("ping\n"), r.m)
	require.NoError(t, err)
	require.Empty(t, left)
	assert.Equal(t, float64(5), testutil.ToFloat64(r.m.BytesWritten))

	got := make([]byte, 5)
	n, err := r.master.Read(got)
	require.NoError(t, err)
	assert.Equal(t, "ping\n", string(got[:n]))

	left, err = flushPending(r.port, nil, r.m)
	require.NoError(t, err)
	require.Empty(t, left)
}
