package core

import (
	"fmt"
	"log/slog"

	"rolegate/entity"
	"rolegate/internal/rolemap"
	"rolegate/internal/tracker"
	"rolegate/lib/sl"
)

type AuthService interface {
	AuthenticateToken(token string) (string, error)
}

// StatusSource reports the bot's gateway health. Implemented by bot.Bot.
type StatusSource interface {
	Status() entity.BotStatus
}

// RoleResolver checks whether mapped roles still exist on the platform.
// Implemented by the Discord client.
type RoleResolver interface {
	Role(guildID, roleID string) (entity.Role, error)
}

// Core is the façade the HTTP API talks to. It only reads: command-driven
// mutation happens through the bot.
type Core struct {
	ledger   *tracker.Ledger
	mappings *rolemap.Table
	roles    RoleResolver
	auth     AuthService
	status   StatusSource
	log      *slog.Logger
}

func New(ledger *tracker.Ledger, mappings *rolemap.Table, roles RoleResolver, log *slog.Logger) *Core {
	if ledger == nil || mappings == nil {
		panic("core: ledger and mappings are required")
	}
	return &Core{
		ledger:   ledger,
		mappings: mappings,
		roles:    roles,
		log:      log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) SetStatusSource(status StatusSource) {
	c.status = status
}

func (c *Core) AuthenticateToken(token string) (string, error) {
	if c.auth == nil {
		return "", fmt.Errorf("auth service not connected")
	}
	return c.auth.AuthenticateToken(token)
}

func (c *Core) BotStatus() entity.BotStatus {
	if c.status == nil {
		return entity.BotStatus{}
	}
	return c.status.Status()
}

func (c *Core) GuildInvites(guildID string) []entity.InviteRecord {
	return c.ledger.GetGuildInvites(guildID)
}

func (c *Core) ListMappings(guildID string) []entity.RoleMapping {
	return c.mappings.ListMappings(guildID)
}

// GuildStats returns the ledger summary plus the number of mappings whose
// role still exists on the platform.
func (c *Core) GuildStats(guildID string) (entity.InviteStats, int) {
	stats := c.ledger.GetStats(guildID)

	active := 0
	if c.roles != nil {
		for _, mapping := range c.mappings.ListMappings(guildID) {
			if _, err := c.roles.Role(guildID, mapping.RoleID); err == nil {
				active++
			}
		}
	}
	return stats, active
}
