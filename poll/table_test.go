package poll

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable_InsertLookupRemove(t *testing.T) {
	tbl := newTable()
	a, b := NewUserSource(), NewUserSource()

	tbl.insert(a, Registration{Token: 1, Interest: Readable, Mode: Level})
	tbl.insert(b, Registration{Token: 2, Interest: Writable, Mode: Edge})
	require.Equal(t, 2, tbl.len())

	e, ok := tbl.byToken(1)
	require.True(t, ok)
	require.Equal(t, Source(a), e.source)
	require.Equal(t, Readable, e.Interest)

	tok, ok := tbl.bySource(b)
	require.True(t, ok)
	require.Equal(t, Token(2), tok)

	tbl.update(2, Readable|Writable, Level)
	e, _ = tbl.byToken(2)
	require.Equal(t, Readable|Writable, e.Interest)
	require.Equal(t, Level, e.Mode)

	tbl.remove(1)
	_, ok = tbl.byToken(1)
	require.False(t, ok)
	_, ok = tbl.bySource(a)
	require.False(t, ok)
	require.Equal(t, 1, tbl.len())

	// removing twice is harmless
	tbl.remove(1)
	require.Equal(t, 1, tbl.len())
}

func TestTable_UpdateUnknownToken(t *testing.T) {
	tbl := newTable()
	tbl.update(9, Readable, Level)
	require.Equal(t, 0, tbl.len())
}

func TestEvents_MergeAndBound(t *testing.T) {
	ev := NewEvents(2)
	require.True(t, ev.add(1, Readable))
	require.True(t, ev.add(1, Writable))
	require.Equal(t, 1, ev.Len())
	require.Equal(t, Readable|Writable, ev.Get(0).Ready)

	require.True(t, ev.add(2, Readable))
	require.False(t, ev.add(3, Readable))
	require.True(t, ev.canAdd(2))
	require.False(t, ev.canAdd(3))
	require.Equal(t, 2, ev.Len())

	ev.Clear()
	require.True(t, ev.IsEmpty())
	require.Equal(t, 2, ev.Cap())
}

func TestNewEvents_DefaultCapacity(t *testing.T) {
	require.Equal(t, DefaultEventsCapacity, NewEvents(0).Cap())
	require.Equal(t, DefaultEventsCapacity, NewEvents(-3).Cap())
}

func TestInterest_String(t *testing.T) {
	require.Equal(t, "none", Interest(0).String())
	require.Equal(t, "readable", Readable.String())
	require.Equal(t, "readable|writable", (Readable | Writable).String())
	require.Equal(t, "edge", Edge.String())
}
