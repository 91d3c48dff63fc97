package reconcile

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildQueue_SerializesPerGuild(t *testing.T) {
	q := NewGuildQueue(testLogger())

	const n = 200
	var order []int
	for i := 0; i < n; i++ {
		i := i
		q.Submit("guild-1", func() { order = append(order, i) })
	}
	q.Close()

	require.Len(t, order, n)
	for i, got := range order {
		require.Equal(t, i, got, "tasks must run in submission order")
	}
}

func TestGuildQueue_GuildsRunIndependently(t *testing.T) {
	q := NewGuildQueue(testLogger())

	// guild-1's worker is blocked; guild-2 must still make progress.
	release := make(chan struct{})
	q.Submit("guild-1", func() { <-release })

	done := make(chan struct{})
	q.Submit("guild-2", func() { close(done) })
	<-done

	close(release)
	q.Close()
}

func TestGuildQueue_CloseWaitsForQueuedWork(t *testing.T) {
	q := NewGuildQueue(testLogger())

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 50; i++ {
		guild := "guild-1"
		if i%2 == 0 {
			guild = "guild-2"
		}
		q.Submit(guild, func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	q.Close()

	assert.Equal(t, 50, ran)
}

func TestGuildQueue_CloseDuringBlockedSubmit(t *testing.T) {
	q := NewGuildQueue(testLogger())

	// Stall the worker and fill the buffer so the next Submit blocks on the
	// channel send.
	release := make(chan struct{})
	q.Submit("guild-1", func() { <-release })
	for i := 0; i < queueDepth; i++ {
		q.Submit("guild-1", func() {})
	}

	var ran atomic.Bool
	submitted := make(chan struct{})
	go func() {
		q.Submit("guild-1", func() { ran.Store(true) })
		close(submitted)
	}()

	// Let the sender reach the blocking send, then close concurrently.
	// A send racing Close must neither panic nor lose the task.
	time.Sleep(20 * time.Millisecond)
	closed := make(chan struct{})
	go func() {
		q.Close()
		close(closed)
	}()
	time.Sleep(20 * time.Millisecond)

	close(release)
	<-submitted
	<-closed
	assert.True(t, ran.Load(), "task accepted before close must still run")
}

func TestGuildQueue_SubmitAfterCloseIsDropped(t *testing.T) {
	q := NewGuildQueue(testLogger())
	q.Close()

	// Must not panic or block.
	q.Submit("guild-1", func() { t.Error("task ran after close") })
	q.Close()
}
