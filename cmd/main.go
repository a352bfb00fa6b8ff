package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/review"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage/local"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage/postgres"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storefront"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "storefront-service")
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.ServiceName)

	// prices and totals go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// --- storage ---
	var (
		docs      storage.Store
		sequencer events.Sequencer = sequence.NewMemory()
	)
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("db connect")
		}
		defer pool.Close()

		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
				logger.Fatal().Err(err).Msg("db migrate")
			}
		}

		pgStore := postgres.NewStore(pool, postgres.NewPoolListener(pool), logger)
		g.Go(func() error { return pgStore.Run(gctx) })
		docs = pgStore
		sequencer = sequence.NewRepository(pool)
	default:
		localStore, err := local.New(afero.NewOsFs(), cfg.LocalDataDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("open local data dir")
		}
		docs = localStore
	}
	logger.Info().Str("backend", cfg.StorageBackend).Msg("storage ready")

	// --- sessions ---
	var sessionStore session.Store
	switch cfg.SessionBackend {
	case config.SessionRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping")
		}
		sessionStore = session.NewRedisStore(client, cfg.SessionTTL)
	default:
		sessionStore = session.NewMemoryStore(cfg.SessionTTL)
	}

	admin := session.NewAdminAuthenticator(cfg.AdminEmail, cfg.AdminPasswordHash)
	if !admin.Enabled() {
		logger.Warn().Msg("ADMIN_EMAIL/ADMIN_PASSWORD_HASH not set, admin sign-in disabled")
	}
	var identity session.IdentityProvider = session.DisabledIdentity{}
	if cfg.GoogleSignInEnabled {
		jwks, err := keyfunc.NewDefaultCtx(gctx, []string{cfg.GoogleCertsURL})
		if err != nil {
			logger.Fatal().Err(err).Str("url", cfg.GoogleCertsURL).Msg("google signing keys")
		}
		google, err := session.NewGoogleTokenProvider(cfg.GoogleClientID, jwks.Keyfunc)
		if err != nil {
			logger.Fatal().Err(err).Msg("google sign-in")
		}
		identity = google
	} else {
		logger.Warn().Msg("GOOGLE_SIGNIN_ENABLED is false, customer sign-in disabled")
	}
	sessions := session.NewManager(sessionStore, identity, admin, logger)

	// --- notifications ---
	var sinks []notify.Sink
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.Sink{
			Name:     "webhook",
			Notifier: notify.NewWebhook(cfg.WebhookURL, &http.Client{Timeout: cfg.WebhookTimeout}),
		})
	}
	if cfg.RabbitMQURL != "" {
		conn, err := events.DialRabbit(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("rabbitmq")
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn, sequencer, events.PublisherOptions{
			PublishEnveloped: cfg.PublishEnvelopedEvents,
			Producer:         cfg.ServiceName,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("rabbitmq publisher")
		}
		defer pub.Close()
		sinks = append(sinks, notify.Sink{Name: "amqp", Notifier: pub})
	}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		sink := notify.NewKafka(notify.NewKafkaWriter(brokers, cfg.KafkaTopic))
		defer sink.Close()
		sinks = append(sinks, notify.Sink{Name: "kafka", Notifier: sink})
	}
	dispatcher := notify.NewDispatcher(logger, cfg.WebhookTimeout, sinks...)
	logger.Info().Int("sinks", len(sinks)).Msg("notifications ready")

	// --- domain ---
	products := catalog.NewStore(docs, logger)
	if cfg.SeedCatalog {
		if err := products.Seed(ctx, catalog.DefaultCollection()); err != nil {
			logger.Fatal().Err(err).Msg("seed catalog")
		}
	}

	svc := storefront.NewService(sessions, products, order.NewStore(docs, logger), review.NewStore(docs), dispatcher, logger)
	if err := svc.WatchCatalog(gctx); err != nil {
		logger.Fatal().Err(err).Msg("watch catalog")
	}

	// --- HTTP ---
	h := httpapi.NewHandler(svc, httpapi.Options{MaxProofBytes: cfg.MaxProofBytes, Logger: logger})
	r := httpapi.NewRouter(h, httpapi.RouterOptions{CORSAllowOrigins: cfg.CORSOrigins(), Logger: logger})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal")
	case <-gctx.Done():
		logger.Error().Err(context.Cause(gctx)).Msg("fatal error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("background task stopped")
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("notifications still in flight at shutdown")
	}

	logger.Info().Msg("shutdown complete")
}
