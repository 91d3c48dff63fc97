package invites

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"rolegate/entity"
	"rolegate/lib/api/response"
	"rolegate/lib/sl"
)

// Core is the read-only view the invite endpoints need.
// Implemented by impl/core.
type Core interface {
	GuildInvites(guildID string) []entity.InviteRecord
	ListMappings(guildID string) []entity.RoleMapping
	GuildStats(guildID string) (entity.InviteStats, int)
}

type statsPayload struct {
	entity.InviteStats
	ActiveInvites int `json:"active_invites"`
}

func List(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID := chi.URLParam(r, "guildID")
		log := logger.With(
			sl.Module("http.handlers.invites"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("guild_id", guildID),
		)

		invites := handler.GuildInvites(guildID)
		log.Debug("listing invites", slog.Int("count", len(invites)))
		render.JSON(w, r, response.Ok(invites))
	}
}

func Mappings(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID := chi.URLParam(r, "guildID")
		log := logger.With(
			sl.Module("http.handlers.invites"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("guild_id", guildID),
		)

		mappings := handler.ListMappings(guildID)
		log.Debug("listing mappings", slog.Int("count", len(mappings)))
		render.JSON(w, r, response.Ok(mappings))
	}
}

func Stats(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID := chi.URLParam(r, "guildID")
		log := logger.With(
			sl.Module("http.handlers.invites"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("guild_id", guildID),
		)

		stats, active := handler.GuildStats(guildID)
		log.Debug("guild stats", slog.Int("total", stats.TotalInvites))
		render.JSON(w, r, response.Ok(statsPayload{InviteStats: stats, ActiveInvites: active}))
	}
}
