package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"familyconnect/internal/change"
	changehandler "familyconnect/internal/change/handler"
	identityclient "familyconnect/internal/clients/identity"
	messagingclient "familyconnect/internal/clients/messaging"
	senderclient "familyconnect/internal/clients/sender"
	"familyconnect/internal/events"
	"familyconnect/internal/platform/config"
	"familyconnect/internal/platform/httpserver"
	"familyconnect/internal/platform/logger"
	"familyconnect/internal/platform/metrics"
	"familyconnect/internal/platform/redis"
	"familyconnect/internal/registration"
	registrationhandler "familyconnect/internal/registration/handler"
	"familyconnect/internal/subscription"
	subscriptionhandler "familyconnect/internal/subscription/handler"
	"familyconnect/internal/tasks"
	"familyconnect/internal/token"
	httptransport "familyconnect/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Redis is optional: without it the running totals fall back to counting
	// from the store.
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var rdb *goredis.Client
	if redisClient != nil {
		rdb = redisClient.Client
		defer redisClient.Close()
	}
	totals := metrics.NewTotalsCache(rdb)

	// Stores: postgres when configured, in-memory otherwise.
	var (
		regStore  registration.Store
		srcStore  registration.SourceStore
		subStore  subscription.Store
		chStore   change.Store
		healthDB  httptransport.HealthChecker
		healthRDS httptransport.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		regPG := registration.NewPostgresStore(db)
		subPG := subscription.NewPostgresStore(db)
		chPG := change.NewPostgresStore(db)
		for _, migrate := range []func(context.Context) error{regPG.Migrate, subPG.Migrate, chPG.Migrate} {
			if err := migrate(ctx); err != nil {
				return err
			}
		}
		regStore, srcStore, subStore, chStore = regPG, regPG, subPG, chPG
		healthDB = dbHealth{db}
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
		regMem := registration.NewInMemoryStore()
		regStore, srcStore = regMem, regMem
		subStore = subscription.NewInMemoryStore()
		chStore = change.NewInMemoryStore()
	}
	if redisClient != nil {
		healthRDS = redisClient
	}

	// Event pipeline: inbox drained by a worker publishing to Kafka. Without
	// brokers the inbox stays nil and emission is skipped.
	var eventInbox chan events.Event
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer publisher.Close()

		eventInbox = make(chan events.Event, 256)
		worker := events.NewWorker(publisher, eventInbox, log)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event worker stopped", "error", err)
			}
		}()
	} else {
		log.Warn("no KAFKA_BROKERS configured, event emission disabled")
	}

	// Worker pool for validation and change dispatch.
	runner := tasks.NewRunner(256, log)
	go func() {
		if err := runner.Run(ctx, cfg.WorkerCount); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("task runner stopped", "error", err)
		}
	}()

	// Collaborator clients.
	identityAPI := identityclient.New(cfg.IdentityStore.BaseURL, cfg.IdentityStore.Token)
	messagingAPI := messagingclient.New(cfg.StageMessaging.BaseURL, cfg.StageMessaging.Token)
	senderAPI := senderclient.New(cfg.MessageSender.BaseURL, cfg.MessageSender.Token)

	resolver := subscription.NewResolver(messagingAPI, cfg.PrebirthMinWeeks)
	subService := subscription.NewService(
		subStore,
		resolver,
		identityAPI,
		senderAPI,
		subscription.WelcomeTemplates{
			MotherHW:        cfg.Templates.WelcomeMotherHW,
			MotherPublic:    cfg.Templates.WelcomeMotherPublic,
			HouseholdHW:     cfg.Templates.WelcomeHouseholdHW,
			HouseholdPublic: cfg.Templates.WelcomeHouseholdPublic,
		},
		cfg.Templates.VHTNotification,
		eventInbox,
		log,
		m,
	)

	engine := registration.NewEngine(cfg.Languages, time.Now)
	regService := registration.NewService(regStore, srcStore, engine, subService, runner, log, m, totals)
	changeService := change.NewService(
		chStore, regStore, srcStore, subStore,
		resolver, messagingAPI, identityAPI,
		runner, eventInbox, log, m,
	)

	jwtService := token.NewService(cfg.JWTSigningKey, "familyconnect", "familyconnect-api")

	router := httptransport.NewRouter(httptransport.Deps{
		Registrations: registrationhandler.New(regService, log),
		Changes:       changehandler.New(changeService, regService, log),
		Subscriptions: subscriptionhandler.New(subStore, log),
		Validator:     token.NewValidatorAdapter(jwtService),
		AdminUsers:    cfg.AdminUsers,
		Logger:        log,
		HealthChecks: map[string]httptransport.HealthChecker{
			"database": healthDB,
			"redis":    healthRDS,
		},
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting familyconnect", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
