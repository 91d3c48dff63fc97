package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"rolegate/entity"
	"rolegate/lib/api/response"
)

// Status reports the bot's gateway health. Implemented by impl/core.
type Status interface {
	BotStatus() entity.BotStatus
}

// Check always answers 200 with the bot snapshot; external monitors treat
// any response as "process alive" and inspect the ready flag separately.
func Check(_ *slog.Logger, handler Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(handler.BotStatus()))
	}
}
