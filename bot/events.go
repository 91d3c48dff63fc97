package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"rolegate/lib/sl"
)

// onReady registers the slash commands and bootstraps every guild's usage
// snapshot. A guild where the bot lacks Manage Server still gets an empty
// snapshot so newly created tracked invites work there.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("gateway ready",
		slog.String("username", r.User.Username),
		slog.Int("guilds", len(r.Guilds)),
	)

	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", commandDefinitions()); err != nil {
		b.log.Error("registering commands", sl.Err(err))
	}

	for _, guild := range r.Guilds {
		guildID := guild.ID
		b.dispatch(guildID, "ready", func() {
			b.engine.Bootstrap(context.Background(), guildID)
		})
	}
	b.ready.Store(true)
}

// onGuildMemberAdd attributes the join to an invite and assigns the mapped
// role. All failures stay inside this handler.
func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	guildID := m.GuildID
	memberID := m.User.ID
	b.dispatch(guildID, "guildMemberAdd", func() {
		ctx := context.Background()

		resolution, err := b.engine.HandleJoin(ctx, guildID)
		if err != nil {
			b.log.Error("reconciling join",
				slog.String("guild_id", guildID),
				slog.String("member_id", memberID),
				sl.Err(err),
			)
			return
		}
		if !resolution.Resolved() {
			return
		}

		role, assigned := b.orchestrator.Assign(ctx, guildID, memberID, resolution.Code)
		if !assigned {
			return
		}
		b.orchestrator.Notify(ctx, memberID, b.welcomeText(guildID, resolution.Code, role.Name))
	})
}

// onInviteCreate seeds the snapshot so the new invite has a diff baseline
// before its first join.
func (b *Bot) onInviteCreate(_ *discordgo.Session, i *discordgo.InviteCreate) {
	guildID := i.GuildID
	code := i.Code
	uses := i.Uses
	b.dispatch(guildID, "inviteCreate", func() {
		b.engine.InviteCreated(guildID, code, uses)
		b.log.Debug("invite created",
			slog.String("guild_id", guildID),
			slog.String("code", code),
		)
	})
}

// onInviteDelete prunes the snapshot and drops the ledger record and the
// role mapping, whether the deletion came from a command or from the
// platform UI.
func (b *Bot) onInviteDelete(_ *discordgo.Session, i *discordgo.InviteDelete) {
	guildID := i.GuildID
	code := i.Code
	b.dispatch(guildID, "inviteDelete", func() {
		b.engine.InviteDeleted(guildID, code)
		b.ledger.RemoveInvite(guildID, code)
		b.mappings.UnmapInvite(guildID, code)
		b.log.Info("invite deleted",
			slog.String("guild_id", guildID),
			slog.String("code", code),
		)
	})
}

// welcomeText builds the DM sent after a successful assignment.
func (b *Bot) welcomeText(guildID, code, roleName string) string {
	guildName := guildID
	if guild, err := b.session.State.Guild(guildID); err == nil {
		guildName = guild.Name
	}
	label := code
	if record, ok := b.ledger.GetInvite(guildID, code); ok {
		label = record.Name
	}
	return fmt.Sprintf(
		"Welcome to **%s**! You've been automatically assigned the **%s** role for joining via the \"%s\" invite link.",
		guildName, roleName, label,
	)
}
