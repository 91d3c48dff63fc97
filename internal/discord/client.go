// Package discord wraps the discordgo REST surface behind the narrow calls
// the core needs. All errors leave classified into the entity taxonomy.
package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"rolegate/entity"
	"rolegate/lib/sl"
)

// Client is the platform collaborator: invite fetch/create/delete, role
// resolution and assignment, direct messages. It implements
// reconcile.InviteFetcher and assign.Platform.
type Client struct {
	session *discordgo.Session
	log     *slog.Logger
}

func NewClient(session *discordgo.Session, log *slog.Logger) *Client {
	return &Client{
		session: session,
		log:     log.With(sl.Module("discord")),
	}
}

// GuildInvites fetches the guild's current invite list with use counts.
func (c *Client) GuildInvites(ctx context.Context, guildID string) ([]entity.InviteUsage, error) {
	invites, err := c.session.GuildInvites(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err)
	}
	usages := make([]entity.InviteUsage, 0, len(invites))
	for _, invite := range invites {
		usages = append(usages, entity.InviteUsage{Code: invite.Code, Uses: invite.Uses})
	}
	return usages, nil
}

// CreateInvite creates a unique invite on the channel and returns its code.
// maxUses and maxAge of 0 mean unlimited and never-expiring.
func (c *Client) CreateInvite(ctx context.Context, channelID string, maxUses, maxAgeSeconds int) (string, error) {
	invite, err := c.session.ChannelInviteCreate(channelID, discordgo.Invite{
		MaxAge:  maxAgeSeconds,
		MaxUses: maxUses,
		Unique:  true,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", classify(err)
	}
	return invite.Code, nil
}

// DeleteInvite revokes an invite by code.
func (c *Client) DeleteInvite(ctx context.Context, code string) error {
	if _, err := c.session.InviteDelete(code, discordgo.WithContext(ctx)); err != nil {
		return classify(err)
	}
	return nil
}

// Role resolves a guild role, preferring gateway state over REST.
func (c *Client) Role(guildID, roleID string) (entity.Role, error) {
	if role, err := c.session.State.Role(guildID, roleID); err == nil {
		return entity.Role{ID: role.ID, Name: role.Name, Position: role.Position}, nil
	}
	roles, err := c.session.GuildRoles(guildID)
	if err != nil {
		return entity.Role{}, classify(err)
	}
	for _, role := range roles {
		if role.ID == roleID {
			return entity.Role{ID: role.ID, Name: role.Name, Position: role.Position}, nil
		}
	}
	return entity.Role{}, entity.ErrNotFound
}

// BotCanManageRoles reports whether the bot holds the Manage Roles
// capability (or Administrator) in the guild.
func (c *Client) BotCanManageRoles(guildID string) (bool, error) {
	roles, err := c.botRoles(guildID)
	if err != nil {
		return false, err
	}
	var permissions int64
	for _, role := range roles {
		permissions |= role.Permissions
	}
	if permissions&discordgo.PermissionAdministrator != 0 {
		return true, nil
	}
	return permissions&discordgo.PermissionManageRoles != 0, nil
}

// BotCanCreateInvites reports whether the bot holds the Create Instant
// Invite capability (or Administrator) in the guild.
func (c *Client) BotCanCreateInvites(guildID string) (bool, error) {
	roles, err := c.botRoles(guildID)
	if err != nil {
		return false, err
	}
	var permissions int64
	for _, role := range roles {
		permissions |= role.Permissions
	}
	if permissions&discordgo.PermissionAdministrator != 0 {
		return true, nil
	}
	return permissions&discordgo.PermissionCreateInstantInvite != 0, nil
}

// BotTopRolePosition returns the hierarchy position of the bot's highest
// role. The bot may only grant roles strictly below this position.
func (c *Client) BotTopRolePosition(guildID string) (int, error) {
	roles, err := c.botRoles(guildID)
	if err != nil {
		return 0, err
	}
	top := 0
	for _, role := range roles {
		if role.Position > top {
			top = role.Position
		}
	}
	return top, nil
}

// AddRole grants a role to a guild member.
func (c *Client) AddRole(ctx context.Context, guildID, memberID, roleID string) error {
	err := c.session.GuildMemberRoleAdd(guildID, memberID, roleID, discordgo.WithContext(ctx))
	return classify(err)
}

// SendDirectMessage opens (or reuses) the member's DM channel and sends the
// text.
func (c *Client) SendDirectMessage(ctx context.Context, memberID, text string) error {
	channel, err := c.session.UserChannelCreate(memberID, discordgo.WithContext(ctx))
	if err != nil {
		return classify(err)
	}
	if _, err = c.session.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return classify(err)
	}
	return nil
}

// botRoles returns the bot member's roles, including @everyone.
func (c *Client) botRoles(guildID string) ([]*discordgo.Role, error) {
	botID := c.session.State.User.ID
	member, err := c.session.State.Member(guildID, botID)
	if err != nil {
		member, err = c.session.GuildMember(guildID, botID)
		if err != nil {
			return nil, classify(err)
		}
	}
	all, err := c.session.GuildRoles(guildID)
	if err != nil {
		return nil, classify(err)
	}
	held := make(map[string]bool, len(member.Roles)+1)
	for _, id := range member.Roles {
		held[id] = true
	}
	held[guildID] = true // @everyone carries the guild id

	var roles []*discordgo.Role
	for _, role := range all {
		if held[role.ID] {
			roles = append(roles, role)
		}
	}
	return roles, nil
}
