package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rolegate/bot"
	"rolegate/entity"
	"rolegate/impl/auth"
	"rolegate/impl/core"
	"rolegate/internal/assign"
	"rolegate/internal/config"
	"rolegate/internal/http-server/api"
	"rolegate/internal/reconcile"
	"rolegate/internal/rolemap"
	"rolegate/internal/store"
	"rolegate/internal/tracker"
	"rolegate/lib/logger"
	"rolegate/lib/sl"
)

const (
	logFileName      = "rolegate.log"
	invitesFileName  = "invites.json"
	mappingsFileName = "role_mappings.json"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	baseLogger := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	baseLogger.Info("starting rolegate",
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
	)

	b, err := bot.New(conf.Discord.Token, baseLogger, bot.BotConfig{
		LogChannelId: conf.Discord.LogChannelId,
	})
	if err != nil {
		baseLogger.Error("creating bot", sl.Err(err))
		os.Exit(1)
	}

	// Warnings and errors are mirrored to the guild log channel when one
	// is configured.
	log := baseLogger
	if conf.Discord.LogChannelId != "" {
		log = slog.New(logger.NewRelayHandler(baseLogger.Handler(), b, slog.LevelWarn))
	}

	ledgerBackend, mappingBackend := buildStores(conf, log)
	ledger := tracker.New(ledgerBackend, log)
	mappings := rolemap.New(mappingBackend, log)

	settle := time.Duration(conf.Discord.SettleDelayMs) * time.Millisecond
	engine := reconcile.NewEngine(b.Client(), ledger, reconcile.NewSnapshotCache(), settle, log)
	orchestrator := assign.New(mappings, b.Client(), log)
	b.SetServices(engine, ledger, mappings, orchestrator)

	handler := core.New(ledger, mappings, b.Client(), log)
	handler.SetAuthService(auth.New(conf.Api.Token))
	handler.SetStatusSource(b)

	go func() {
		if err := api.New(conf, log, handler); err != nil {
			log.Error("api server stopped", sl.Err(err))
		}
	}()

	if err = b.Start(); err != nil {
		log.Error("starting bot", sl.Err(err))
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	b.Stop()
	log.Info("rolegate stopped")
}

// buildStores selects the persistence backend: whole-file JSON stores under
// the data directory by default, Mongo collections when enabled.
func buildStores(conf *config.Config, log *slog.Logger) (tracker.Backend, rolemap.Backend) {
	if conf.Mongo.Enabled {
		mc := store.MongoConfig{
			Host:     conf.Mongo.Host,
			Port:     conf.Mongo.Port,
			User:     conf.Mongo.User,
			Password: conf.Mongo.Password,
			Database: conf.Mongo.Database,
		}
		return store.NewMongoStore[entity.InviteRecord](mc, "invites", log),
			store.NewMongoStore[string](mc, "role_mappings", log)
	}

	if err := os.MkdirAll(conf.Storage.DataDir, 0755); err != nil {
		log.Warn("creating data directory", sl.Err(err))
	}
	return store.NewFileStore[entity.InviteRecord](filepath.Join(conf.Storage.DataDir, invitesFileName), log),
		store.NewFileStore[string](filepath.Join(conf.Storage.DataDir, mappingsFileName), log)
}
