// Command storefront serves the furniture configurator API.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eel-studio/storefront/internal/config"
	"github.com/eel-studio/storefront/internal/configurator"
	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/events"
	"github.com/eel-studio/storefront/internal/httpapi"
	"github.com/eel-studio/storefront/internal/idempotency"
	"github.com/eel-studio/storefront/internal/logging"
	"github.com/eel-studio/storefront/internal/metrics"
	"github.com/eel-studio/storefront/internal/middleware"
	"github.com/eel-studio/storefront/internal/notify"
	"github.com/eel-studio/storefront/internal/orders"
	"github.com/eel-studio/storefront/internal/platform/migrations"
	"github.com/eel-studio/storefront/internal/session"
	"github.com/eel-studio/storefront/internal/storage"
	"github.com/eel-studio/storefront/internal/storage/cache"
	"github.com/eel-studio/storefront/internal/storage/memory"
	"github.com/eel-studio/storefront/internal/storage/postgres"
	supastore "github.com/eel-studio/storefront/internal/storage/supabase"
	"github.com/eel-studio/storefront/supabase/client"
)

func main() {
	configPath := flag.String("config", "", "Path to storefront.yaml (default $STOREFRONT_CONFIG or config/storefront.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
	log := logging.New("storefront", cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithContext(ctx).WithError(err).Fatal("storefront exited")
	}
}

// backend is the selected store plus whatever must be closed on shutdown.
type backend struct {
	store   storage.Store
	auth    httpapi.AuthProvider
	closers []func() error
}

func openBackend(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *logging.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendSupabase:
		res := client.DefaultResilienceConfig()
		res.Retry.MaxRetries = cfg.Supabase.MaxRetries
		res.CircuitBreaker.OnStateChange = func(from, to client.CircuitState) {
			m.SetCircuitState("supabase", int(to))
			log.WithContext(ctx).WithField("from", from.String()).WithField("to", to.String()).Warn("supabase circuit breaker transition")
		}
		c, err := client.New(client.Config{URL: cfg.Supabase.URL, APIKey: cfg.Supabase.ServiceKey, Resilience: &res})
		if err != nil {
			return nil, fmt.Errorf("supabase client: %w", err)
		}
		return &backend{store: supastore.New(c), auth: c.Auth()}, nil

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.Migrate {
			if err := migrations.Apply(ctx, db.DB); err != nil {
				db.Close()
				return nil, err
			}
			log.WithContext(ctx).WithField("statements", migrations.Count()).Info("schema migrations applied")
		}
		return &backend{store: postgres.New(db), closers: []func() error{db.Close}}, nil

	default:
		log.WithContext(ctx).Warn("using in-memory backend; orders are lost on restart")
		return &backend{store: memory.New()}, nil
	}
}

func run(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	m := metrics.New()

	be, err := openBackend(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range be.closers {
			if err := c(); err != nil {
				log.WithError(err).Warn("close backend")
			}
		}
	}()

	var catalogs storage.CatalogStore = be.store
	var locker idempotency.Locker = idempotency.NopLocker{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithContext(ctx).WithError(err).Warn("redis unreachable at startup; cache will fall through")
		}
		catalogs = cache.NewCatalogCache(be.store, rdb, cfg.Redis.CacheTTL, log)
		locker = idempotency.NewRedisLocker(rdb, cfg.Redis.LockTTL)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		if err != nil {
			return err
		}
		publisher = kp
	}
	defer publisher.Close()

	gateway := orders.NewGateway(gatewayStore{Store: be.store, catalogs: catalogs},
		orders.WithPublisher(publisher), orders.WithMetrics(m), orders.WithLogger(log))

	var notifier configurator.Notifier
	if cfg.MailEnabled() {
		sender := notify.NewResendSender(cfg.Mail.ResendAPIKey, cfg.Mail.ResendURL, 10*time.Second)
		outbox := notify.NewOutbox(sender, cfg.Mail.MaxAttempts, m, log)
		sched, err := notify.NewScheduler(outbox, cfg.Mail.RetrySchedule, log)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		notifier = notify.NewDispatcher(notify.Config{
			From:          cfg.Mail.From,
			OperatorEmail: cfg.Mail.OperatorEmail,
			SiteURL:       cfg.Server.PublicURL,
		}, sender, outbox, m, log)
	} else {
		log.WithContext(ctx).Warn("RESEND_API_KEY not set; order notifications disabled")
	}

	signer, err := session.NewSigner([]byte(cfg.AppSecret))
	if err != nil {
		return err
	}
	sessions := session.NewRegistry(session.Config{
		Signer: signer,
		Factory: func(ctx context.Context) (*configurator.Engine, error) {
			c, err := catalogs.LoadCatalog(ctx)
			if err != nil {
				return nil, err
			}
			return configurator.New(c, gateway, notifier, configurator.WithLogger(log)), nil
		},
		TTL:     cfg.Server.SessionTTL,
		Metrics: m,
		Logger:  log,
	})

	var authn *middleware.AuthMiddleware
	if cfg.AuthEnabled() {
		authn = middleware.NewAuthMiddleware([]byte(cfg.Supabase.JWTSecret), cfg.Supabase.Audience, log)
	} else {
		log.WithContext(ctx).Warn("SUPABASE_JWT_SECRET not set; every request is anonymous")
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log)

	handler := httpapi.NewRouter(httpapi.Deps{
		Catalog:       catalogs,
		Products:      be.store,
		Sessions:      sessions,
		History:       orders.NewHistory(be.store),
		Console:       orders.NewConsole(be.store, publisher, m, log),
		Auth:          be.auth,
		Locker:        locker,
		Health:        be.store.Ping,
		Authenticator: authn,
		Admin:         middleware.NewAdminGuard(append(cfg.Admin.Emails, cfg.Mail.OperatorEmail), cfg.Admin.UserIDs, log),
		CORS:          middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins),
		RateLimiter:   limiter,
		Metrics:       m,
		Logger:        log,
		SignInURL:     cfg.Server.PublicURL + "/login?next=/builder",
		SecureCookies: cfg.Server.SecureCookies,
	})

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	go sessions.Run(bgCtx, time.Minute)
	go limiter.RunCleanup(bgCtx, 5*time.Minute)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithContext(ctx).WithField("addr", cfg.Server.Addr).WithField("backend", cfg.Backend).Info("storefront listening")
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	cancelBg()
	sessions.CloseAll()
	return nil
}

// gatewayStore reads the catalog through the cache and everything else from the backend.
type gatewayStore struct {
	storage.Store
	catalogs storage.CatalogStore
}

func (g gatewayStore) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	return g.catalogs.LoadCatalog(ctx)
}
