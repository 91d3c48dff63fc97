package reconcile_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolegate/entity"
	"rolegate/internal/assign"
	"rolegate/internal/reconcile"
	"rolegate/internal/rolemap"
	"rolegate/internal/store"
	"rolegate/internal/tracker"
)

// scenarioPlatform serves both the engine's invite fetches and the
// orchestrator's role operations from one mutable fixture.
type scenarioPlatform struct {
	usages []entity.InviteUsage
	added  []string
	dms    []string
}

func (p *scenarioPlatform) GuildInvites(_ context.Context, _ string) ([]entity.InviteUsage, error) {
	return p.usages, nil
}

func (p *scenarioPlatform) Role(_, roleID string) (entity.Role, error) {
	return entity.Role{ID: roleID, Name: "Partner", Position: 2}, nil
}

func (p *scenarioPlatform) BotCanManageRoles(_ string) (bool, error) { return true, nil }

func (p *scenarioPlatform) BotTopRolePosition(_ string) (int, error) { return 10, nil }

func (p *scenarioPlatform) AddRole(_ context.Context, _, memberID, roleID string) error {
	p.added = append(p.added, memberID+":"+roleID)
	return nil
}

func (p *scenarioPlatform) SendDirectMessage(_ context.Context, memberID, _ string) error {
	p.dms = append(p.dms, memberID)
	return nil
}

// Full pass through the join pipeline: an admin creates a tracked invite
// mapped to a role, a member joins through it, and the join is attributed,
// counted and rewarded with the role.
func TestJoinPipeline_CreateThenJoin(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	dir := t.TempDir()

	ledger := tracker.New(store.NewFileStore[entity.InviteRecord](filepath.Join(dir, "invites.json"), log), log)
	mappings := rolemap.New(store.NewFileStore[string](filepath.Join(dir, "mappings.json"), log), log)
	platform := &scenarioPlatform{}
	engine := reconcile.NewEngine(platform, ledger, reconcile.NewSnapshotCache(), 0, log)
	orchestrator := assign.New(mappings, platform, log)

	const (
		guildID = "guild-1"
		code    = "partners1"
		roleID  = "role-partner"
	)

	// Admin creates the tracked invite.
	ledger.AddInvite(guildID, code, entity.InviteRecord{
		Name:      "Partners",
		RoleID:    roleID,
		CreatedBy: "admin-1",
		ChannelID: "channel-1",
		CreatedAt: time.Now().UTC(),
	})
	mappings.MapInviteToRole(guildID, code, roleID)
	platform.usages = []entity.InviteUsage{{Code: code, Uses: 0}}
	engine.InviteCreated(guildID, code, 0)

	// A member joins; the platform has bumped the invite's count.
	platform.usages = []entity.InviteUsage{{Code: code, Uses: 1}}

	resolution, err := engine.HandleJoin(context.Background(), guildID)
	require.NoError(t, err)
	require.True(t, resolution.Resolved())
	assert.Equal(t, code, resolution.Code)

	record, ok := ledger.GetInvite(guildID, code)
	require.True(t, ok)
	assert.Equal(t, 1, record.Uses)

	role, granted := orchestrator.Assign(context.Background(), guildID, "member-1", resolution.Code)
	require.True(t, granted)
	assert.Equal(t, "Partner", role.Name)
	assert.Equal(t, []string{"member-1:" + roleID}, platform.added)

	orchestrator.Notify(context.Background(), "member-1", "welcome")
	assert.Equal(t, []string{"member-1"}, platform.dms)

	// A second join without a count change attributes nothing and leaves
	// the ledger alone.
	resolution, err = engine.HandleJoin(context.Background(), guildID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeNone, resolution.Outcome)
	record, _ = ledger.GetInvite(guildID, code)
	assert.Equal(t, 1, record.Uses)
}

// Deleting the tracked invite removes the mapping, so a later join through
// a stale client cache cannot grant the role.
func TestJoinPipeline_DeletedInviteGrantsNothing(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	dir := t.TempDir()

	ledger := tracker.New(store.NewFileStore[entity.InviteRecord](filepath.Join(dir, "invites.json"), log), log)
	mappings := rolemap.New(store.NewFileStore[string](filepath.Join(dir, "mappings.json"), log), log)
	platform := &scenarioPlatform{}
	engine := reconcile.NewEngine(platform, ledger, reconcile.NewSnapshotCache(), 0, log)
	orchestrator := assign.New(mappings, platform, log)

	ledger.AddInvite("guild-1", "gone1", entity.InviteRecord{Name: "Gone", RoleID: "role-1"})
	mappings.MapInviteToRole("guild-1", "gone1", "role-1")
	engine.InviteCreated("guild-1", "gone1", 0)

	engine.InviteDeleted("guild-1", "gone1")
	ledger.RemoveInvite("guild-1", "gone1")
	mappings.UnmapInvite("guild-1", "gone1")

	_, granted := orchestrator.Assign(context.Background(), "guild-1", "member-1", "gone1")
	assert.False(t, granted)
	assert.Empty(t, platform.added)
}
