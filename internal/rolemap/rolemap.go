// Package rolemap owns the invite-code → role-id associations, on a record
// store instance of its own. The table's lifecycle is independent from the
// invite ledger: an invite can be dropped from one while it briefly remains
// in the other, and callers delete from both.
package rolemap

import (
	"log/slog"

	"rolegate/entity"
	"rolegate/internal/store"
	"rolegate/lib/sl"
)

// Backend defines the storage operations the table depends on.
// Implemented by store.FileStore and store.MongoStore.
type Backend interface {
	Get(guildID, key string) (string, bool)
	Put(guildID, key string, value string)
	Delete(guildID, key string) bool
	ListByGuild(guildID string) []store.Entry[string]
}

// Table maps invite codes to role ids per guild.
type Table struct {
	store Backend
	log   *slog.Logger
}

func New(backend Backend, log *slog.Logger) *Table {
	return &Table{
		store: backend,
		log:   log.With(sl.Module("rolemap")),
	}
}

// MapInviteToRole associates a role with an invite code, replacing any
// previous association for that code.
func (t *Table) MapInviteToRole(guildID, code, roleID string) {
	t.store.Put(guildID, code, roleID)
	t.log.Info("invite mapped to role",
		slog.String("guild_id", guildID),
		slog.String("code", code),
		slog.String("role_id", roleID),
	)
}

// UnmapInvite removes the association for an invite code and reports
// whether one existed.
func (t *Table) UnmapInvite(guildID, code string) bool {
	return t.store.Delete(guildID, code)
}

// GetRoleForInvite returns the role id mapped to an invite code.
func (t *Table) GetRoleForInvite(guildID, code string) (string, bool) {
	return t.store.Get(guildID, code)
}

// ListMappings returns the guild's mappings in store order.
func (t *Table) ListMappings(guildID string) []entity.RoleMapping {
	entries := t.store.ListByGuild(guildID)
	mappings := make([]entity.RoleMapping, 0, len(entries))
	for _, entry := range entries {
		mappings = append(mappings, entity.RoleMapping{
			InviteCode: entry.Key,
			RoleID:     entry.Value,
		})
	}
	return mappings
}
