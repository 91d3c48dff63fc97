package reconcile

import (
	cmap "github.com/orcaman/concurrent-map/v2"

	"rolegate/entity"
)

// SnapshotCache holds the last-known use count per invite code for every
// guild. It is a cache of the platform's state as of the last successful
// fetch or invite event, not a source of truth: it is lost on restart and
// rebuilt by the ready-time bootstrap.
//
// The guild keyspace is a concurrent map so guilds can be touched from
// independent queue workers; the inner count maps are replaced wholesale,
// never mutated in place, so readers always see a consistent snapshot.
type SnapshotCache struct {
	guilds cmap.ConcurrentMap[string, map[string]int]
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{guilds: cmap.New[map[string]int]()}
}

// Counts returns the guild's snapshot. The returned map must not be
// modified. Missing guilds yield an empty snapshot.
func (c *SnapshotCache) Counts(guildID string) map[string]int {
	counts, ok := c.guilds.Get(guildID)
	if !ok {
		return map[string]int{}
	}
	return counts
}

// Replace swaps the guild's snapshot for the given fetch result.
func (c *SnapshotCache) Replace(guildID string, usages []entity.InviteUsage) {
	counts := make(map[string]int, len(usages))
	for _, usage := range usages {
		counts[usage.Code] = usage.Uses
	}
	c.guilds.Set(guildID, counts)
}

// Seed records a newly created invite at its reported use count.
func (c *SnapshotCache) Seed(guildID, code string, uses int) {
	c.guilds.Upsert(guildID, nil, func(exist bool, current, _ map[string]int) map[string]int {
		next := make(map[string]int, len(current)+1)
		if exist {
			for k, v := range current {
				next[k] = v
			}
		}
		next[code] = uses
		return next
	})
}

// Drop removes a deleted invite's entry from the guild's snapshot.
func (c *SnapshotCache) Drop(guildID, code string) {
	c.guilds.Upsert(guildID, nil, func(exist bool, current, _ map[string]int) map[string]int {
		if !exist {
			return map[string]int{}
		}
		next := make(map[string]int, len(current))
		for k, v := range current {
			if k == code {
				continue
			}
			next[k] = v
		}
		return next
	})
}
