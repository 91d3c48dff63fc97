package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolegate/entity"
)

type fakeFetcher struct {
	usages []entity.InviteUsage
	err    error
	calls  int
}

func (f *fakeFetcher) GuildInvites(_ context.Context, _ string) ([]entity.InviteUsage, error) {
	f.calls++
	return f.usages, f.err
}

type fakeCounter struct {
	increments []string
}

func (c *fakeCounter) IncrementUse(guildID, code string) {
	c.increments = append(c.increments, guildID+"/"+code)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(fetcher *fakeFetcher, counter *fakeCounter) (*Engine, *SnapshotCache) {
	cache := NewSnapshotCache()
	// Zero settle delay keeps tests fast; the delay value does not change
	// the diff behavior.
	return NewEngine(fetcher, counter, cache, 0, testLogger()), cache
}

func TestHandleJoin_ResolvesIncrementedInvite(t *testing.T) {
	fetcher := &fakeFetcher{usages: []entity.InviteUsage{{Code: "A", Uses: 3}, {Code: "B", Uses: 6}}}
	counter := &fakeCounter{}
	engine, cache := newTestEngine(fetcher, counter)
	cache.Replace("guild-1", []entity.InviteUsage{{Code: "A", Uses: 3}, {Code: "B", Uses: 5}})

	resolution, err := engine.HandleJoin(context.Background(), "guild-1")
	require.NoError(t, err)

	assert.True(t, resolution.Resolved())
	assert.Equal(t, "B", resolution.Code)
	assert.Equal(t, 6, resolution.Uses)
	assert.False(t, resolution.Ambiguous())
	assert.Equal(t, []string{"guild-1/B"}, counter.increments)
}

func TestHandleJoin_NoChangeIsAmbiguousNone(t *testing.T) {
	fetcher := &fakeFetcher{usages: []entity.InviteUsage{{Code: "A", Uses: 3}, {Code: "B", Uses: 5}}}
	counter := &fakeCounter{}
	engine, cache := newTestEngine(fetcher, counter)
	cache.Replace("guild-1", []entity.InviteUsage{{Code: "A", Uses: 3}, {Code: "B", Uses: 5}})

	resolution, err := engine.HandleJoin(context.Background(), "guild-1")
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeNone, resolution.Outcome)
	assert.Empty(t, counter.increments, "no identified invite means no counting")
}

func TestHandleJoin_AbsentPriorCountsAsZero(t *testing.T) {
	fetcher := &fakeFetcher{usages: []entity.InviteUsage{{Code: "new", Uses: 1}}}
	counter := &fakeCounter{}
	engine, _ := newTestEngine(fetcher, counter)

	resolution, err := engine.HandleJoin(context.Background(), "guild-1")
	require.NoError(t, err)

	assert.True(t, resolution.Resolved())
	assert.Equal(t, "new", resolution.Code)
}

func TestHandleJoin_MultiIncrementPicksFirstInFetchOrder(t *testing.T) {
	// Two invites incremented in the same window. The fetch order is fixed
	// here, so the pick is deterministic: the first match wins. Which one
	// "first" is in production depends on the platform's list order, which
	// is not a documented guarantee.
	fetcher := &fakeFetcher{usages: []entity.InviteUsage{{Code: "A", Uses: 2}, {Code: "B", Uses: 2}}}
	counter := &fakeCounter{}
	engine, cache := newTestEngine(fetcher, counter)
	cache.Replace("guild-1", []entity.InviteUsage{{Code: "A", Uses: 1}, {Code: "B", Uses: 1}})

	resolution, err := engine.HandleJoin(context.Background(), "guild-1")
	require.NoError(t, err)

	assert.True(t, resolution.Resolved())
	assert.Equal(t, "A", resolution.Code)
	assert.True(t, resolution.Ambiguous())
	assert.Equal(t, []string{"A", "B"}, resolution.Candidates)
	assert.Equal(t, []string{"guild-1/A"}, counter.increments, "exactly one invite is counted")
}

func TestHandleJoin_SnapshotReplacedRegardlessOfOutcome(t *testing.T) {
	tests := []struct {
		name  string
		prior []entity.InviteUsage
		fresh []entity.InviteUsage
	}{
		{
			name:  "resolved",
			prior: []entity.InviteUsage{{Code: "A", Uses: 3}, {Code: "B", Uses: 5}},
			fresh: []entity.InviteUsage{{Code: "A", Uses: 3}, {Code: "B", Uses: 6}},
		},
		{
			name:  "no change",
			prior: []entity.InviteUsage{{Code: "A", Uses: 3}},
			fresh: []entity.InviteUsage{{Code: "A", Uses: 3}},
		},
		{
			name:  "invite disappeared",
			prior: []entity.InviteUsage{{Code: "A", Uses: 3}, {Code: "gone", Uses: 9}},
			fresh: []entity.InviteUsage{{Code: "A", Uses: 3}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &fakeFetcher{usages: tc.fresh}
			engine, cache := newTestEngine(fetcher, &fakeCounter{})
			cache.Replace("guild-1", tc.prior)

			_, err := engine.HandleJoin(context.Background(), "guild-1")
			require.NoError(t, err)

			want := make(map[string]int, len(tc.fresh))
			for _, usage := range tc.fresh {
				want[usage.Code] = usage.Uses
			}
			assert.Equal(t, want, cache.Counts("guild-1"))
		})
	}
}

func TestHandleJoin_PermissionDeniedResolvesNone(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("%w: missing manage server", entity.ErrPermissionDenied)}
	counter := &fakeCounter{}
	engine, cache := newTestEngine(fetcher, counter)
	cache.Replace("guild-1", []entity.InviteUsage{{Code: "A", Uses: 1}})

	resolution, err := engine.HandleJoin(context.Background(), "guild-1")
	require.NoError(t, err, "permission denial is a defined outcome, not an error")

	assert.Equal(t, entity.OutcomeNone, resolution.Outcome)
	assert.Equal(t, 1, fetcher.calls, "no retry on permission denial")
	assert.Equal(t, map[string]int{"A": 1}, cache.Counts("guild-1"), "snapshot untouched on failed fetch")
}

func TestHandleJoin_TransientFetchErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("%w: connection reset", entity.ErrTransient)}
	engine, cache := newTestEngine(fetcher, &fakeCounter{})
	cache.Replace("guild-1", []entity.InviteUsage{{Code: "A", Uses: 1}})

	_, err := engine.HandleJoin(context.Background(), "guild-1")
	require.Error(t, err)
	assert.Equal(t, map[string]int{"A": 1}, cache.Counts("guild-1"))
}

func TestBootstrap_PermissionDeniedLeavesEmptySnapshot(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("%w: missing manage server", entity.ErrPermissionDenied)}
	engine, cache := newTestEngine(fetcher, &fakeCounter{})

	engine.Bootstrap(context.Background(), "guild-1")
	assert.Empty(t, cache.Counts("guild-1"))

	// A join in the degraded guild still works once a fetch succeeds.
	fetcher.err = nil
	fetcher.usages = []entity.InviteUsage{{Code: "A", Uses: 1}}
	resolution, err := engine.HandleJoin(context.Background(), "guild-1")
	require.NoError(t, err)
	assert.True(t, resolution.Resolved())
}

func TestBootstrap_PopulatesSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{usages: []entity.InviteUsage{{Code: "A", Uses: 4}, {Code: "B", Uses: 0}}}
	engine, cache := newTestEngine(fetcher, &fakeCounter{})

	engine.Bootstrap(context.Background(), "guild-1")
	assert.Equal(t, map[string]int{"A": 4, "B": 0}, cache.Counts("guild-1"))
}

func TestInviteEventsUpdateSnapshot(t *testing.T) {
	engine, cache := newTestEngine(&fakeFetcher{}, &fakeCounter{})
	cache.Replace("guild-1", []entity.InviteUsage{{Code: "A", Uses: 2}})

	engine.InviteCreated("guild-1", "B", 0)
	assert.Equal(t, map[string]int{"A": 2, "B": 0}, cache.Counts("guild-1"))

	engine.InviteDeleted("guild-1", "A")
	assert.Equal(t, map[string]int{"B": 0}, cache.Counts("guild-1"))

	// Events for unseen guilds must not panic and leave sane state.
	engine.InviteCreated("guild-2", "X", 1)
	assert.Equal(t, map[string]int{"X": 1}, cache.Counts("guild-2"))
	engine.InviteDeleted("guild-3", "Y")
	assert.Empty(t, cache.Counts("guild-3"))
}
