// Package bot implements the Discord bot for tracked invites.
//
// Architecture overview:
//   - discord.go — Bot struct, lifecycle (Start/Stop), status, log relay
//   - events.go  — gateway events: ready, member join, invite create/delete
//   - commands.go — /invite create|list|delete|stats slash commands
//   - embeds.go  — embed builders for command responses
//   - helpers.go — interaction reply utilities, reportError
//
// Data flow for a join: guildMemberAdd → per-guild queue → reconciliation
// (settle, fetch, diff, snapshot replace, ledger increment) → orchestrator
// (mapping → role → capability → hierarchy → assign) → best-effort DM.
//
// Every gateway event for a guild runs on that guild's queue worker, so
// snapshot and ledger access is strictly sequential per guild.
package bot

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"rolegate/entity"
	"rolegate/internal/assign"
	"rolegate/internal/discord"
	"rolegate/internal/reconcile"
	"rolegate/internal/rolemap"
	"rolegate/internal/tracker"
	"rolegate/lib/clock"
	"rolegate/lib/sl"
)

// BotConfig holds the Discord-specific settings from the config file.
type BotConfig struct {
	// LogChannelId, when set, receives warning-and-above log lines relayed
	// by the RelayHandler.
	LogChannelId string
}

// Bot owns the gateway session and wires events into the core components.
type Bot struct {
	log          *slog.Logger
	session      *discordgo.Session
	client       *discord.Client
	engine       *reconcile.Engine
	ledger       *tracker.Ledger
	mappings     *rolemap.Table
	orchestrator *assign.Orchestrator
	queue        *reconcile.GuildQueue
	config       BotConfig
	startedAt    time.Time
	ready        atomic.Bool
}

// New opens no connection yet; it builds the session so the platform
// client exists for the engine and orchestrator, which are attached with
// SetServices before Start.
func New(token string, log *slog.Logger, cfg BotConfig) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildInvites

	b := &Bot{
		log:     log.With(sl.Module("bot")),
		session: session,
		queue:   reconcile.NewGuildQueue(log),
		config:  cfg,
	}
	b.client = discord.NewClient(session, log)
	return b, nil
}

// SetServices attaches the core components. Must be called before Start.
func (b *Bot) SetServices(engine *reconcile.Engine, ledger *tracker.Ledger,
	mappings *rolemap.Table, orchestrator *assign.Orchestrator) {
	b.engine = engine
	b.ledger = ledger
	b.mappings = mappings
	b.orchestrator = orchestrator
}

// Client returns the platform client bound to this bot's session.
func (b *Bot) Client() *discord.Client {
	return b.client
}

// Start opens the gateway connection and registers all handlers. Requires
// SetServices to have run. It returns
// once the connection is up; events are delivered on session goroutines and
// re-dispatched onto per-guild queue workers.
func (b *Bot) Start() error {
	if b.engine == nil || b.ledger == nil || b.mappings == nil || b.orchestrator == nil {
		return fmt.Errorf("bot services not connected")
	}
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onInviteCreate)
	b.session.AddHandler(b.onInviteDelete)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening gateway connection: %w", err)
	}
	b.startedAt = time.Now()
	return nil
}

// Stop drains the event queues and closes the gateway connection.
func (b *Bot) Stop() {
	b.log.Info("stopping bot")
	b.queue.Close()
	if err := b.session.Close(); err != nil {
		b.log.Warn("closing gateway connection", sl.Err(err))
	}
}

// Status implements the health view served over HTTP.
func (b *Bot) Status() entity.BotStatus {
	status := entity.BotStatus{Ready: b.ready.Load()}
	if b.session.State != nil && b.session.State.User != nil {
		status.Username = b.session.State.User.Username
		status.Guilds = len(b.session.State.Guilds)
	}
	if !b.startedAt.IsZero() {
		status.UptimeSeconds = clock.Uptime(b.startedAt)
	}
	return status
}

// RelayLog implements logger.Notifier: warning-and-above log lines are
// posted to the configured log channel. Best-effort, errors ignored.
func (b *Bot) RelayLog(_ slog.Level, msg string) {
	if b.config.LogChannelId == "" || !b.ready.Load() {
		return
	}
	if len(msg) > 1900 {
		msg = msg[:1900] + "…"
	}
	_, _ = b.session.ChannelMessageSend(b.config.LogChannelId, "```"+msg+"```")
}

// dispatch runs a task on the guild's queue worker with panic containment:
// no event may take the process down.
func (b *Bot) dispatch(guildID, event string, task func()) {
	b.queue.Submit(guildID, func() {
		defer func() {
			if r := recover(); r != nil {
				b.log.Error("event handler panicked",
					slog.String("event", event),
					slog.String("guild_id", guildID),
					slog.Any("panic", r),
				)
			}
		}()
		task()
	})
}
