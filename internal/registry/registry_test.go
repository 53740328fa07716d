package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndGet(t *testing.T) {
	r := New()
	r.Insert(&Record{SessionID: "abc123", State: StateReady})

	rec := r.Get("abc123")
	require.NotNil(t, rec)
	require.Equal(t, StateReady, rec.State)
}

func TestGetMissingReturnsNil(t *testing.T) {
	r := New()
	require.Nil(t, r.Get("nope"))
}

func TestUpdateStateTransitionsRecord(t *testing.T) {
	r := New()
	r.Insert(&Record{SessionID: "s1", State: StateReady})
	r.UpdateState("s1", StatePlaying)

	require.Equal(t, StatePlaying, r.Get("s1").State)
}

func TestUpdateStateOnMissingSessionIsNoop(t *testing.T) {
	r := New()
	require.NotPanics(t, func() { r.UpdateState("ghost", StatePlaying) })
}

func TestRemoveEvictsRecord(t *testing.T) {
	r := New()
	r.Insert(&Record{SessionID: "s1", State: StateReady})
	r.Remove("s1")

	require.Nil(t, r.Get("s1"))
	require.False(t, r.Has("s1"))
}

func TestSnapshotPlayingOnlyIncludesPlayingRecords(t *testing.T) {
	r := New()
	r.Insert(&Record{SessionID: "a", State: StateReady})
	r.Insert(&Record{SessionID: "b", State: StatePlaying})
	r.Insert(&Record{SessionID: "c", State: StatePlaying})

	snap := r.SnapshotPlaying()
	require.Len(t, snap, 2)

	ids := map[string]bool{}
	for _, rec := range snap {
		ids[rec.SessionID] = true
	}
	require.True(t, ids["b"])
	require.True(t, ids["c"])
	require.False(t, ids["a"])
}

func TestSnapshotPlayingNeverIncludesTornDownSession(t *testing.T) {
	r := New()
	r.Insert(&Record{SessionID: "a", State: StatePlaying})
	r.UpdateState("a", StateTeardown)
	r.Remove("a")

	require.Empty(t, r.SnapshotPlaying())
}

func TestSnapshotIsACopyNotALiveView(t *testing.T) {
	r := New()
	r.Insert(&Record{SessionID: "a", State: StatePlaying})

	snap := r.SnapshotPlaying()
	snap[0].State = StateTeardown

	require.Equal(t, StatePlaying, r.Get("a").State)
}

func TestRemoveByConnEvictsOnlyMatchingRecords(t *testing.T) {
	r := New()
	connA, connB := new(int), new(int)
	r.Insert(&Record{SessionID: "a1", State: StatePlaying, Conn: connA})
	r.Insert(&Record{SessionID: "a2", State: StateReady, Conn: connA})
	r.Insert(&Record{SessionID: "b1", State: StatePlaying, Conn: connB})

	r.RemoveByConn(connA)

	require.Nil(t, r.Get("a1"))
	require.Nil(t, r.Get("a2"))
	require.NotNil(t, r.Get("b1"))
}

func TestHasAndLen(t *testing.T) {
	r := New()
	require.Equal(t, 0, r.Len())
	require.False(t, r.Has("x"))

	r.Insert(&Record{SessionID: "x", State: StateInit})
	require.True(t, r.Has("x"))
	require.Equal(t, 1, r.Len())
}
