// Package tracker owns the invite ledger: metadata for every tracked invite,
// keyed by (guild id, invite code), on top of a record store instance.
package tracker

import (
	"log/slog"

	"rolegate/entity"
	"rolegate/internal/store"
	"rolegate/lib/sl"
)

// Backend defines the storage operations the ledger depends on.
// Implemented by store.FileStore and store.MongoStore.
type Backend interface {
	Get(guildID, key string) (entity.InviteRecord, bool)
	Put(guildID, key string, value entity.InviteRecord)
	Delete(guildID, key string) bool
	ListByGuild(guildID string) []store.Entry[entity.InviteRecord]
}

// Ledger is the invite metadata store. Not safe for concurrent mutation of
// the same guild on its own; the per-guild event queue serializes that.
type Ledger struct {
	store Backend
	log   *slog.Logger
}

func New(backend Backend, log *slog.Logger) *Ledger {
	return &Ledger{
		store: backend,
		log:   log.With(sl.Module("tracker")),
	}
}

// AddInvite records a tracked invite, overwriting any existing record with
// the same code in the guild. The code field is forced to the given code.
func (l *Ledger) AddInvite(guildID, code string, record entity.InviteRecord) {
	record.Code = code
	l.store.Put(guildID, code, record)
	l.log.Info("invite tracked",
		slog.String("guild_id", guildID),
		slog.String("code", code),
		slog.String("role_id", record.RoleID),
	)
}

// RemoveInvite deletes a tracked invite and reports whether one existed.
func (l *Ledger) RemoveInvite(guildID, code string) bool {
	removed := l.store.Delete(guildID, code)
	if removed {
		l.log.Info("invite untracked",
			slog.String("guild_id", guildID),
			slog.String("code", code),
		)
	}
	return removed
}

// GetInvite returns the record for an invite code.
func (l *Ledger) GetInvite(guildID, code string) (entity.InviteRecord, bool) {
	return l.store.Get(guildID, code)
}

// GetGuildInvites returns the guild's tracked invites in store order.
func (l *Ledger) GetGuildInvites(guildID string) []entity.InviteRecord {
	entries := l.store.ListByGuild(guildID)
	invites := make([]entity.InviteRecord, 0, len(entries))
	for _, entry := range entries {
		invites = append(invites, entry.Value)
	}
	return invites
}

// IncrementUse bumps the use counter of a tracked invite by one. Unknown
// codes are a no-op: joins through untracked invites are simply not counted.
// The read-modify-write is safe under per-guild serialization only.
func (l *Ledger) IncrementUse(guildID, code string) {
	record, ok := l.store.Get(guildID, code)
	if !ok {
		return
	}
	record.Uses++
	l.store.Put(guildID, code, record)
}

// GetStats summarizes the guild's tracked invites. Ties for most used go to
// the record encountered first in store order.
func (l *Ledger) GetStats(guildID string) entity.InviteStats {
	invites := l.GetGuildInvites(guildID)

	stats := entity.InviteStats{TotalInvites: len(invites)}
	for i := range invites {
		stats.TotalUses += invites[i].Uses
		if stats.MostUsed == nil || invites[i].Uses > stats.MostUsed.Uses {
			stats.MostUsed = &invites[i]
		}
	}
	return stats
}
