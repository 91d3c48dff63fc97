// Package reconcile infers which invite a new member used. The platform
// never says; it only exposes per-invite use counts. The engine keeps a
// snapshot of the last-known counts per guild and, on each join, fetches a
// fresh list and looks for the count that moved.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rolegate/entity"
	"rolegate/lib/sl"
)

// InviteFetcher is the single platform operation the engine needs.
// Implemented by the Discord client.
type InviteFetcher interface {
	GuildInvites(ctx context.Context, guildID string) ([]entity.InviteUsage, error)
}

// UseCounter receives the "invite was used" decision.
// Implemented by tracker.Ledger.
type UseCounter interface {
	IncrementUse(guildID, code string)
}

// Engine runs one reconciliation per join event:
// wait for the platform's own counts to settle, fetch the guild's invites,
// diff against the prior snapshot, replace the snapshot, and emit the
// decision. All joins for one guild must run through the same queue worker;
// the engine itself takes no locks around the diff.
type Engine struct {
	fetcher InviteFetcher
	counter UseCounter
	cache   *SnapshotCache
	settle  time.Duration
	log     *slog.Logger
}

func NewEngine(fetcher InviteFetcher, counter UseCounter, cache *SnapshotCache, settle time.Duration, log *slog.Logger) *Engine {
	return &Engine{
		fetcher: fetcher,
		counter: counter,
		cache:   cache,
		settle:  settle,
		log:     log.With(sl.Module("reconcile")),
	}
}

// Bootstrap populates a guild's snapshot from a full fetch. A permission
// failure leaves the snapshot empty and the guild in degraded mode; it is
// never fatal, so a bot invited without Manage Server still serves the
// guilds it can see.
func (e *Engine) Bootstrap(ctx context.Context, guildID string) {
	usages, err := e.fetcher.GuildInvites(ctx, guildID)
	if err != nil {
		if errors.Is(err, entity.ErrPermissionDenied) {
			e.log.Warn("cannot fetch invites, tracking degraded for guild",
				slog.String("guild_id", guildID))
		} else {
			e.log.Error("bootstrap invite fetch", slog.String("guild_id", guildID), sl.Err(err))
		}
		e.cache.Replace(guildID, nil)
		return
	}
	e.cache.Replace(guildID, usages)
	e.log.Debug("snapshot bootstrapped",
		slog.String("guild_id", guildID),
		slog.Int("invites", len(usages)),
	)
}

// HandleJoin resolves a join event to the invite that admitted the member.
//
// The initial delay lets the platform's invite-count propagation settle;
// fetching immediately races ahead of the true update and produces false
// "no invite identified" outcomes. A permission-denied fetch resolves to
// OutcomeNone without retry: permission is a per-guild, session-lifetime
// condition. Other fetch errors are returned and the snapshot is left
// untouched. The snapshot is otherwise replaced with the fresh fetch no
// matter how the diff went, so a missed diff this round cannot surface as
// a duplicate detection next round.
func (e *Engine) HandleJoin(ctx context.Context, guildID string) (entity.Resolution, error) {
	log := e.log.With(
		slog.String("guild_id", guildID),
		slog.String("event_id", uuid.NewString()),
	)

	select {
	case <-time.After(e.settle):
	case <-ctx.Done():
		return entity.Resolution{Outcome: entity.OutcomeNone}, ctx.Err()
	}

	fresh, err := e.fetcher.GuildInvites(ctx, guildID)
	if err != nil {
		if errors.Is(err, entity.ErrPermissionDenied) {
			log.Warn("cannot fetch invites, join left unattributed")
			return entity.Resolution{Outcome: entity.OutcomeNone}, nil
		}
		return entity.Resolution{Outcome: entity.OutcomeNone}, err
	}

	prior := e.cache.Counts(guildID)

	resolution := entity.Resolution{Outcome: entity.OutcomeNone}
	for _, usage := range fresh {
		if usage.Uses > prior[usage.Code] {
			if resolution.Outcome == entity.OutcomeNone {
				resolution = entity.Resolution{
					Outcome: entity.OutcomeResolved,
					Code:    usage.Code,
					Uses:    usage.Uses,
				}
			}
			resolution.Candidates = append(resolution.Candidates, usage.Code)
		}
	}

	e.cache.Replace(guildID, fresh)

	switch {
	case !resolution.Resolved():
		log.Info("no invite identified for join")
	case resolution.Ambiguous():
		// Several invites incremented inside the same window; the pick
		// depends on fetch order, which the platform does not guarantee.
		log.Warn("multiple invites incremented, picking first in fetch order",
			slog.String("code", resolution.Code),
			slog.Any("candidates", resolution.Candidates),
		)
		e.counter.IncrementUse(guildID, resolution.Code)
	default:
		log.Info("join attributed to invite",
			slog.String("code", resolution.Code),
			slog.Int("uses", resolution.Uses),
		)
		e.counter.IncrementUse(guildID, resolution.Code)
	}
	return resolution, nil
}

// InviteCreated seeds the guild's snapshot with a newly created invite.
func (e *Engine) InviteCreated(guildID, code string, uses int) {
	e.cache.Seed(guildID, code, uses)
}

// InviteDeleted prunes a deleted invite from the guild's snapshot.
func (e *Engine) InviteDeleted(guildID, code string) {
	e.cache.Drop(guildID, code)
}
