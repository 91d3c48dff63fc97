package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"rolegate/entity"
	"rolegate/lib/sl"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	manageGuild := int64(discordgo.PermissionManageServer)
	minZero := float64(0)
	return []*discordgo.ApplicationCommand{{
		Name:                     "invite",
		Description:              "Manage tracked invite links",
		DefaultMemberPermissions: &manageGuild,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "create",
				Description: "Create a tracked invite link",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "name",
						Description: "Name for this invite link",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionRole,
						Name:        "role",
						Description: "Role to assign when users join via this invite",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "channel",
						Description: "Channel to create invite for (default: current channel)",
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "max_uses",
						Description: "Maximum number of uses (0 = unlimited)",
						MinValue:    &minZero,
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "max_age",
						Description: "Expiration time in seconds (0 = never expires)",
						MinValue:    &minZero,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List all tracked invite links",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "delete",
				Description: "Delete a tracked invite link",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "code",
						Description: "Invite code to delete",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stats",
				Description: "View statistics for tracked invites",
			},
		},
	}}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != "invite" || i.GuildID == "" {
		return
	}

	if i.Member == nil || i.Member.Permissions&discordgo.PermissionManageServer == 0 {
		b.replyEphemeral(s, i, "You need the Manage Server permission to use this command.")
		return
	}

	if err := b.deferEphemeral(s, i); err != nil {
		b.log.Warn("deferring interaction", sl.Err(err))
		return
	}

	sub := data.Options[0]
	switch sub.Name {
	case "create":
		b.handleCreate(s, i, sub)
	case "list":
		b.handleList(s, i)
	case "delete":
		b.handleDelete(s, i, sub)
	case "stats":
		b.handleStats(s, i)
	}
}

func (b *Bot) handleCreate(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()
	guildID := i.GuildID

	name := ""
	roleID := ""
	channelID := i.ChannelID
	maxUses := 0
	maxAge := 0
	for _, opt := range sub.Options {
		switch opt.Name {
		case "name":
			name = opt.StringValue()
		case "role":
			roleID = opt.RoleValue(nil, "").ID
		case "channel":
			channelID = opt.ChannelValue(nil).ID
		case "max_uses":
			maxUses = int(opt.IntValue())
		case "max_age":
			maxAge = int(opt.IntValue())
		}
	}

	canCreate, err := b.client.BotCanCreateInvites(guildID)
	if err != nil {
		b.reportError(s, i, "invite create", err)
		return
	}
	if !canCreate {
		b.editReply(s, i, "I need the Create Instant Invite permission to create invite links.")
		return
	}

	role, err := b.client.Role(guildID, roleID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			b.editReply(s, i, "That role no longer exists.")
			return
		}
		b.reportError(s, i, "invite create", err)
		return
	}
	topPosition, err := b.client.BotTopRolePosition(guildID)
	if err != nil {
		b.reportError(s, i, "invite create", err)
		return
	}
	if role.Position >= topPosition {
		b.editReply(s, i, "I cannot assign roles that are higher than or equal to my highest role.")
		return
	}

	code, err := b.client.CreateInvite(ctx, channelID, maxUses, maxAge)
	if err != nil {
		b.log.Error("creating invite",
			slog.String("guild_id", guildID),
			slog.String("channel_id", channelID),
			sl.Err(err),
		)
		b.editReply(s, i, "Failed to create the invite. Please check my permissions and try again.")
		return
	}

	creator := ""
	if i.Member.User != nil {
		creator = i.Member.User.ID
	}
	b.ledger.AddInvite(guildID, code, entity.InviteRecord{
		Name:      name,
		RoleID:    role.ID,
		CreatedBy: creator,
		ChannelID: channelID,
		CreatedAt: time.Now().UTC(),
	})
	b.mappings.MapInviteToRole(guildID, code, role.ID)

	b.editReplyEmbed(s, i, createdEmbed(name, code, role.ID, channelID, maxUses, maxAge))
}

func (b *Bot) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	invites := b.ledger.GetGuildInvites(i.GuildID)
	if len(invites) == 0 {
		b.editReply(s, i, "No tracked invites found for this server.")
		return
	}
	b.editReplyEmbed(s, i, listEmbed(invites))
}

func (b *Bot) handleDelete(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()
	guildID := i.GuildID

	code := ""
	for _, opt := range sub.Options {
		if opt.Name == "code" {
			code = opt.StringValue()
		}
	}

	// Best-effort platform delete: an invite already revoked on the
	// platform side should not block the tracking cleanup.
	if err := b.client.DeleteInvite(ctx, code); err != nil && !errors.Is(err, entity.ErrNotFound) {
		b.log.Warn("deleting platform invite",
			slog.String("guild_id", guildID),
			slog.String("code", code),
			sl.Err(err),
		)
	}

	removed := b.ledger.RemoveInvite(guildID, code)
	b.mappings.UnmapInvite(guildID, code)
	b.dispatch(guildID, "invite delete command", func() {
		b.engine.InviteDeleted(guildID, code)
	})

	if removed {
		b.editReply(s, i, fmt.Sprintf("Successfully deleted tracked invite: `%s`", code))
	} else {
		b.editReply(s, i, fmt.Sprintf("Invite code `%s` was not tracked, but the platform invite was deleted if it existed.", code))
	}
}

func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := i.GuildID
	stats := b.ledger.GetStats(guildID)
	if stats.TotalInvites == 0 {
		b.editReply(s, i, "No tracked invites found for statistics.")
		return
	}

	active := 0
	for _, mapping := range b.mappings.ListMappings(guildID) {
		if _, err := b.client.Role(guildID, mapping.RoleID); err == nil {
			active++
		}
	}

	b.editReplyEmbed(s, i, statsEmbed(stats, active, b.ledger.GetGuildInvites(guildID)))
}
