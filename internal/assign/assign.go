// Package assign turns a resolved invite code into a role grant. Every
// precondition failure is a logged no-op: the join simply proceeds without
// an automatic role, and nothing propagates to the event handler.
package assign

import (
	"context"
	"errors"
	"log/slog"

	"rolegate/entity"
	"rolegate/lib/sl"
)

// RoleLookup is the mapping table view the orchestrator needs.
// Implemented by rolemap.Table.
type RoleLookup interface {
	GetRoleForInvite(guildID, code string) (string, bool)
}

// Platform defines the platform operations the orchestrator depends on.
// Implemented by the Discord client.
type Platform interface {
	Role(guildID, roleID string) (entity.Role, error)
	BotCanManageRoles(guildID string) (bool, error)
	BotTopRolePosition(guildID string) (int, error)
	AddRole(ctx context.Context, guildID, memberID, roleID string) error
	SendDirectMessage(ctx context.Context, memberID, text string) error
}

// Orchestrator validates and performs role assignments for attributed joins.
type Orchestrator struct {
	mappings RoleLookup
	platform Platform
	log      *slog.Logger
}

func New(mappings RoleLookup, platform Platform, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		mappings: mappings,
		platform: platform,
		log:      log.With(sl.Module("assign")),
	}
}

// Assign grants the role mapped to the invite code to the member. The
// returned role is set only when the grant went through, so callers can
// build the follow-up notification from it. Assignment failures are not
// retried: they are almost always permission or hierarchy races that the
// preceding checks already cover.
func (o *Orchestrator) Assign(ctx context.Context, guildID, memberID, code string) (entity.Role, bool) {
	log := o.log.With(
		slog.String("guild_id", guildID),
		slog.String("member_id", memberID),
		slog.String("code", code),
	)

	roleID, ok := o.mappings.GetRoleForInvite(guildID, code)
	if !ok {
		log.Debug("no role mapping for invite")
		return entity.Role{}, false
	}
	log = log.With(slog.String("role_id", roleID))

	role, err := o.platform.Role(guildID, roleID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			log.Warn("mapped role no longer exists")
		} else {
			log.Error("resolving role", sl.Err(err))
		}
		return entity.Role{}, false
	}

	canManage, err := o.platform.BotCanManageRoles(guildID)
	if err != nil {
		log.Error("checking role capability", sl.Err(err))
		return entity.Role{}, false
	}
	if !canManage {
		log.Warn("bot lacks manage-roles capability, assignment skipped")
		return entity.Role{}, false
	}

	topPosition, err := o.platform.BotTopRolePosition(guildID)
	if err != nil {
		log.Error("checking role hierarchy", sl.Err(err))
		return entity.Role{}, false
	}
	if role.Position >= topPosition {
		log.Warn("role at or above bot's highest role, assignment skipped",
			slog.Int("role_position", role.Position),
			slog.Int("bot_position", topPosition),
		)
		return entity.Role{}, false
	}

	if err = o.platform.AddRole(ctx, guildID, memberID, roleID); err != nil {
		log.Error("assigning role", sl.Err(err))
		return entity.Role{}, false
	}

	log.Info("role assigned", slog.String("role", role.Name))
	return role, true
}

// Notify sends the welcome direct message. Strictly best-effort and kept
// apart from Assign: members with closed DMs still get their role.
func (o *Orchestrator) Notify(ctx context.Context, memberID, text string) {
	if err := o.platform.SendDirectMessage(ctx, memberID, text); err != nil {
		o.log.Debug("welcome message not delivered",
			slog.String("member_id", memberID),
			sl.Err(err),
		)
	}
}
