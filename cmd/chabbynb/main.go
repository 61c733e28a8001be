package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	appoutbox "github.com/Almog1339/ChabbyNb-API-sub000/internal/app/outbox"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/policies"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/reconcile"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/services/reservations"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/sweep"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/uow"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/pricing"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/promotion"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/clock"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/broker/kafka"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/broker/logsink"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/config"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/gateway/httpgw"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/gateway/sim"
	ginserver "github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/http/gin"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/notify"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/obs"
	infraoutbox "github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/outbox"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/storage/memory"
	mongostore "github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/storage/mongo"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	logger := obs.NewLogger(obs.Options{Env: cfg.Env, Level: cfg.LogLevel})
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	go func() {
		if err := app.sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sweeper stopped", "error", err)
		}
	}()
	go func() {
		if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()
	if app.consumer != nil {
		go func() {
			if err := app.consumer.Run(ctx, []string{cfg.KafkaEventsTopic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("gateway event consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		app.close(logger)
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers     ginserver.Handlers
	sweeper      *sweep.Sweeper
	outboxWorker *infraoutbox.Worker
	consumer     *kafka.Consumer
	ready        func() error
	closers      []func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{ready: func() error { return nil }}
	clk := clock.System{}

	var (
		factory       uow.Factory
		units         catalog.UnitRepository
		rates         catalog.RateRepository
		promos        promotion.Repository
		reservRepo    booking.ReservationRepository
		outboxStore   interface {
			appoutbox.Outbox
			infraoutbox.Store
		}
		processed reconcile.ProcessedStore
	)

	if cfg.MongoURI != "" {
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, client.DB); err != nil {
			return nil, err
		}
		f := mongostore.NewFactory(client.DB)
		factory = f
		units, rates, promos, reservRepo = f.UnitsRepo, f.RatesRepo, f.PromotionsRepo, f.ReservationsRepo
		outboxStore = mongostore.NewOutboxStore(client.DB)
		processed = mongostore.NewProcessedStore(client.DB)
		app.ready = func() error { return client.Ping(context.Background()) }
		logger.Info("storage ready", "backend", "mongo", "database", cfg.MongoDB)
	} else {
		f := memory.NewFactory()
		factory = f
		units, rates, promos, reservRepo = f.Units, f.Rates, f.Promotions, f.Reservations
		outboxStore = memory.NewOutboxStore()
		processed = memory.NewProcessedStore()
		logger.Warn("MONGO_URI not set, using in-memory storage")
	}

	var gateway policies.GatewayPort
	if cfg.GatewayBaseURL != "" {
		gateway = httpgw.New(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout, cfg.RetryBackoff, logger)
	} else {
		gateway = sim.New()
		logger.Warn("GATEWAY_BASE_URL not set, using simulated gateway")
	}

	notifier := &notify.LogNotifier{Logger: logger}

	validator := promotion.NewValidator(promos)
	checker := booking.NewAvailabilityChecker(units, reservRepo)
	engine := pricing.NewEngine(units, rates, validator, checker)

	service := reservations.NewService(factory, engine, gateway, notifier, outboxStore, clk, logger, reservations.Config{
		PendingTTL:        cfg.PendingTTL,
		AutoRefundMinDays: cfg.AutoRefundMinDays,
	})
	reconciler := reconcile.NewReconciler(factory, processed, notifier, clk, logger)

	app.sweeper = &sweep.Sweeper{
		UoW:        factory,
		Notifier:   notifier,
		Outbox:     outboxStore,
		Clock:      clk,
		Logger:     logger,
		Interval:   cfg.SweepInterval,
		PendingTTL: cfg.PendingTTL,
	}

	var producer infraoutbox.Producer
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, err
		}
		producer = p
		app.closers = append(app.closers, p.Close)

		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, &kafka.GatewayEventHandler{
			Reconciler: reconciler,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		app.consumer = consumer
		app.closers = append(app.closers, consumer.Close)
	} else {
		producer = &logsink.Producer{Logger: logger}
		logger.Warn("KAFKA_BROKERS not set, events go to the log")
	}

	app.outboxWorker = &infraoutbox.Worker{
		Store:       outboxStore,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		ID:          uuid.NewString(),
		Backoff:     cfg.RetryBackoff,
	}

	app.handlers = ginserver.Handlers{
		Reservation: ginserver.ReservationHandler{Service: service},
		Webhook: ginserver.WebhookHandler{
			Reconciler: reconciler,
			Secret:     cfg.GatewayWebhookSecret,
		},
		Admin: ginserver.AdminHandler{Service: service, Currency: cfg.Currency},
	}
	return app, nil
}

func (a *application) close(logger *slog.Logger) {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}
