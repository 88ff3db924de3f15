package tapetui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWakeBusCoalescesMultipleRenderRequests(t *testing.T) {
	b := NewWakeBus()
	b.RequestRender()
	b.RequestRender()
	b.RequestRender()

	snap := waitForTickWithTimeout(t, b)
	assert.True(t, snap.render)
}

func TestWakeBusDrainsAllPendingKinds(t *testing.T) {
	b := NewWakeBus()
	b.PostInput("a")
	b.PostInput("b")
	b.PostResize()
	b.PostCommand(RequestRenderCommand())
	b.RequestRender()

	snap := waitForTickWithTimeout(t, b)
	assert.Equal(t, []string{"a", "b"}, snap.inputs)
	assert.True(t, snap.resize)
	assert.Len(t, snap.commands, 1)
	assert.True(t, snap.render)
}

func TestWakeBusStopSurvivesAlongsideOtherWork(t *testing.T) {
	b := NewWakeBus()
	b.PostInput("x")
	b.RequestStop()

	snap := waitForTickWithTimeout(t, b)
	assert.True(t, snap.stop)
}

func TestWakeBusAllocSurfaceIdIsMonotonicAndUnique(t *testing.T) {
	b := NewWakeBus()
	seen := make(map[SurfaceId]bool)
	var prev SurfaceId
	for range 100 {
		id := b.AllocSurfaceId()
		require.False(t, seen[id])
		require.Greater(t, id, prev)
		seen[id] = true
		prev = id
	}
}

func TestWakeBusWaitBlocksUntilWork(t *testing.T) {
	b := NewWakeBus()
	done := make(chan pendingSnapshot, 1)
	go func() { done <- b.WaitForTick() }()

	select {
	case <-done:
		t.Fatal("WaitForTick returned before any work was posted")
	case <-time.After(30 * time.Millisecond):
	}

	b.RequestRender()
	select {
	case snap := <-done:
		assert.True(t, snap.render)
	case <-time.After(time.Second):
		t.Fatal("WaitForTick did not wake after RequestRender")
	}
}

func waitForTickWithTimeout(t *testing.T, b *WakeBus) pendingSnapshot {
	t.Helper()
	done := make(chan pendingSnapshot, 1)
	go func() { done <- b.WaitForTick() }()
	select {
	case snap := <-done:
		return snap
	case <-time.After(time.Second):
		t.Fatal("WaitForTick timed out")
		return pendingSnapshot{}
	}
}
