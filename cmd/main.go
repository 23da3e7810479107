package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"hotline/domain"
	"hotline/repositories"
	"hotline/runtime"
	"hotline/runtime/workers"
	"hotline/socket"
	"hotline/transport/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so that deferred cleanup (database close,
// worker shutdown) always executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Recipients: load, or provision the defaults on first boot
	repository := repositories.NewRecipientRepository(db, log)
	recipients, err := repository.LoadAll()
	if err != nil {
		return fmt.Errorf("loading recipients failed: %w", err)
	}
	if len(recipients) == 0 {
		recipients = domain.DefaultRecipients()
		if err := repository.Seed(recipients); err != nil {
			return fmt.Errorf("seeding recipients failed: %w", err)
		}
	}
	registry := runtime.NewRegistry(recipients)

	// 4. Bot API & routing engine
	api, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return fmt.Errorf("bot login failed: %w", err)
	}
	client := telegram.NewClient(api)
	pending := runtime.NewPendingCache(config.MaxMessageDuration)
	relay := runtime.NewRelay(log, registry, pending, repository, client, client)

	// 5. Transports as supervised workers
	bot := telegram.NewBot(log, api, relay, registry)
	server := socket.NewServer(log, relay, registry,
		fmt.Sprintf("%s:%d", config.Host, config.Port), config.SessionBufferSize)
	health := workers.NewSelfStatsWorker(log, config.HealthLogInterval)

	sup := workers.NewSupervisor(log)
	sup.Add(bot, server, health)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(fmt.Sprintf("Ready with %d known clients.", len(recipients)))
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
