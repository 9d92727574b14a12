package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/handler"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/notifier"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/payment"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/repository/memory"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/repository/mongorepo"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/repository/postgres"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/repository/redisrepo"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/config"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/ports"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/services"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/platform/database"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/platform/logging"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	cfg        *config.Config
	log        *slog.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	db         *sql.DB
	mongo      *mongo.Client
	redis      *redis.Client
	manager    *services.CheckoutManager
	httpServer *http.Server
}

// storage is the backend chosen by storage.driver.
type storage struct {
	catalog  ports.TierCatalog
	bookings ports.BookingRepository
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg: cfg,
		log: logging.New(cfg.Logger.Level, cfg.Logger.Format, os.Stdout),
	}

	if cfg.Metrics.Enabled {
		app.registry = prometheus.NewRegistry()
		app.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		app.metrics = metrics.New(app.registry)
	}

	store, err := app.initStorage(ctx)
	if err != nil {
		app.closeAll()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if err := app.initServices(ctx, store); err != nil {
		app.closeAll()
		return nil, fmt.Errorf("init services: %w", err)
	}

	return app, nil
}

func (a *App) initStorage(ctx context.Context) (storage, error) {
	switch a.cfg.Storage.Driver {
	case "postgres":
		db, err := database.NewPostgresDB(ctx, a.cfg.Postgres, a.log)
		if err != nil {
			return storage{}, err
		}
		a.db = db

		if a.cfg.Postgres.Migrate {
			if err := database.Migrate(db); err != nil {
				return storage{}, fmt.Errorf("migrations: %w", err)
			}
			a.log.Info("migrations applied successfully")
		}

		return storage{
			catalog:  postgres.NewTierRepository(db),
			bookings: postgres.NewBookingRepository(db),
		}, nil

	case "mongo":
		client, db, err := database.NewMongoDB(ctx, a.cfg.Mongo, a.log)
		if err != nil {
			return storage{}, err
		}
		a.mongo = client

		bookings := mongorepo.NewBookingRepository(db, a.log)
		if err := bookings.EnsureIndexes(ctx); err != nil {
			return storage{}, err
		}

		return storage{
			catalog:  mongorepo.NewEventRepository(db),
			bookings: bookings,
		}, nil

	case "memory":
		store := memory.NewStore()
		store.SeedTiers(demoTiers()...)
		a.log.Warn("using in-memory storage, bookings are lost on restart")

		return storage{catalog: store, bookings: store}, nil

	default:
		return storage{}, fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
	}
}

func (a *App) initServices(ctx context.Context, store storage) error {
	fees, err := a.cfg.Checkout.FeeSchedule()
	if err != nil {
		return err
	}

	catalog := store.catalog
	var ledger ports.CommitLedger
	var invalidator ports.CatalogInvalidator

	if a.cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})

		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.log.Info("redis connected", slog.String("addr", a.cfg.Redis.Addr))

		cache := redisrepo.NewCatalogCache(store.catalog, a.redis, a.cfg.Checkout.CatalogCacheTTL, a.log)
		catalog = cache
		invalidator = cache
		ledger = redisrepo.NewCommitLedger(a.redis, a.cfg.Checkout.CommitTokenTTL)
	}

	payments, err := payment.New(a.cfg.Payment)
	if err != nil {
		return fmt.Errorf("init payment provider: %w", err)
	}

	var n ports.BookingNotifier = notifier.NewLogNotifier(a.log)
	if a.cfg.PubNub.Enabled() {
		n = notifier.NewPubNubNotifier(a.cfg.PubNub, a.log)
	}

	reservations := services.NewReservationService(store.bookings, ledger, invalidator, n, a.metrics, a.log)
	a.manager = services.NewCheckoutManager(catalog, payments, reservations, services.CheckoutSettings{
		MaxPerPerson:      a.cfg.Checkout.MaxPerPerson,
		Fees:              fees,
		SessionTTL:        a.cfg.Checkout.SessionTTL,
		CleanupInterval:   a.cfg.Checkout.CleanupInterval,
		PendingPaymentTTL: a.cfg.Checkout.PendingPaymentTTL,
	}, a.metrics, a.log)

	var metricsHandler http.Handler
	if a.registry != nil {
		metricsHandler = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	}

	if a.cfg.Payment.CallbackSecret == "" {
		a.log.Warn("payment callback secret not set, asynchronous payment callbacks will be refused")
	}

	h := handler.NewCheckoutHandler(a.manager, reservations, a.cfg.Payment.CallbackSecret, a.log)
	router := handler.NewRouter(h, metricsHandler,
		handler.RequestID(),
		handler.RequestLogger(a.log),
		handler.Recovery(a.log),
	)

	a.httpServer = &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	a.log.Info("checkout services ready",
		slog.String("storage", a.cfg.Storage.Driver),
		slog.String("payment_provider", payments.Name()),
		slog.Bool("redis", a.cfg.Redis.Enabled),
		slog.Bool("pubnub", a.cfg.PubNub.Enabled()),
	)

	return nil
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.manager.RunBackgroundCleanup(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server starting", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-errCh:
		a.closeAll()
		return err
	}

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.WriteTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	a.log.Info("HTTP server stopped")

	a.closeAll()
	a.log.Info("app stopped")

	return nil
}

func (a *App) closeAll() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis", slog.String("error", err.Error()))
		}
	}

	if a.mongo != nil {
		if err := a.mongo.Disconnect(context.Background()); err != nil {
			a.log.Warn("close mongo", slog.String("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("close database", slog.String("error", err.Error()))
		}
		a.log.Info("database connection closed")
	}
}
