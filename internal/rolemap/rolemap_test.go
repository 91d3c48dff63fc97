package rolemap

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolegate/internal/store"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	backend := store.NewFileStore[string](filepath.Join(t.TempDir(), "mappings.json"), log)
	return New(backend, log)
}

func TestTable_MapAndGet(t *testing.T) {
	table := newTestTable(t)

	table.MapInviteToRole("guild-1", "abc123", "role-1")

	roleID, ok := table.GetRoleForInvite("guild-1", "abc123")
	require.True(t, ok)
	assert.Equal(t, "role-1", roleID)

	_, ok = table.GetRoleForInvite("guild-2", "abc123")
	assert.False(t, ok)
}

func TestTable_MapUpserts(t *testing.T) {
	table := newTestTable(t)

	table.MapInviteToRole("guild-1", "abc123", "role-1")
	table.MapInviteToRole("guild-1", "abc123", "role-2")

	roleID, ok := table.GetRoleForInvite("guild-1", "abc123")
	require.True(t, ok)
	assert.Equal(t, "role-2", roleID, "at most one role per invite code")
	assert.Len(t, table.ListMappings("guild-1"), 1)
}

func TestTable_Unmap(t *testing.T) {
	table := newTestTable(t)
	table.MapInviteToRole("guild-1", "abc123", "role-1")

	assert.True(t, table.UnmapInvite("guild-1", "abc123"))
	assert.False(t, table.UnmapInvite("guild-1", "abc123"))

	_, ok := table.GetRoleForInvite("guild-1", "abc123")
	assert.False(t, ok)
}

func TestTable_ListMappings(t *testing.T) {
	table := newTestTable(t)
	table.MapInviteToRole("guild-1", "aaa", "role-1")
	table.MapInviteToRole("guild-1", "bbb", "role-2")
	table.MapInviteToRole("guild-2", "ccc", "role-3")

	mappings := table.ListMappings("guild-1")
	require.Len(t, mappings, 2)
	assert.Equal(t, "aaa", mappings[0].InviteCode)
	assert.Equal(t, "role-1", mappings[0].RoleID)
	assert.Equal(t, "bbb", mappings[1].InviteCode)
}
