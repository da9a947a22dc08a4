package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/covenantlabs/azor-auth/internal/auth/http"
	"github.com/covenantlabs/azor-auth/internal/auth/notify"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
	"github.com/covenantlabs/azor-auth/internal/auth/store/drivers/postgres"
	"github.com/covenantlabs/azor-auth/internal/auth/store/drivers/sqlite"
	"github.com/covenantlabs/azor-auth/pkg/cryptox"
	"github.com/covenantlabs/azor-auth/pkg/httpx"
	"github.com/covenantlabs/azor-auth/pkg/jwtx"
	"github.com/covenantlabs/azor-auth/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	codec    *jwtx.Codec
	notifier notify.Notifier
	redis    *redis.Client

	sessionService      *service.SessionService
	userService         *service.UserService
	mfaService          *service.MFAService
	resetService        *service.PasswordResetService
	auditService        *service.AuditService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "azor-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	codec, err := jwtx.NewCodec([]byte(cfg.JWTSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("session token codec: %w", err)
	}
	app.codec = codec

	db, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied", "driver", cfg.DBDriver)

	if empty, err := db.Users().IsEmpty(context.Background()); err == nil && empty {
		app.logger.Warn("no users exist yet, run 'azorauth create-admin' to provision one")
	}

	if err := app.initNotifier(); err != nil {
		_ = db.Close()
		return nil, err
	}
	app.initServices()
	app.initHTTP()

	return app, nil
}

// OpenStore opens the configured database backend without migrating.
func OpenStore(cfg Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		db, err := postgres.NewStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return db, nil
	case "sqlite", "":
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the server, workers and connections.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.notifier.Close(); err != nil {
		app.logger.Error("error closing notifier", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initNotifier() error {
	if app.cfg.AMQPURL == "" {
		app.notifier = notify.Nop{}
		app.logger.Info("notifications disabled, no AMQP_URL configured")
		return nil
	}

	notifier, err := notify.NewAMQPNotifier(app.cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("connect AMQP notifier: %w", err)
	}
	app.notifier = notifier
	app.logger.Info("AMQP notifier configured", "queue", notify.QueueName)
	return nil
}

func (app *Application) initServices() {
	app.auditService = &service.AuditService{Store: app.db, Logger: app.logger}

	app.mfaService = &service.MFAService{
		Store:    app.db,
		Audit:    app.auditService,
		Notifier: app.notifier,
		Issuer:   app.cfg.MFAIssuer,
	}

	app.sessionService = &service.SessionService{
		Store:          app.db,
		Codec:          app.codec,
		MFA:            app.mfaService,
		Audit:          app.auditService,
		SessionTTL:     app.cfg.SessionTTL,
		BootstrapTTL:   app.cfg.BootstrapTTL,
		RequireMFA:     app.cfg.RequireMFA,
		AllowBootstrap: app.cfg.AllowBootstrap,
	}

	app.userService = &service.UserService{
		Store:    app.db,
		Audit:    app.auditService,
		Notifier: app.notifier,
	}

	app.resetService = &service.PasswordResetService{
		Store:    app.db,
		Audit:    app.auditService,
		Notifier: app.notifier,
		TTL:      app.cfg.PasswordResetTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.AuditRetention,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		httpapi.CookieConfig{
			Name:   app.cfg.CookieName,
			Domain: app.cfg.CookieDomain,
			Secure: app.cfg.CookieSecure,
		},
		BuildVersion,
		app.cfg.RequireMFA,
		app.db,
		app.logger,
	)

	router.SessionService = app.sessionService
	router.MFAService = app.mfaService
	router.UserService = app.userService
	router.PasswordResetService = app.resetService
	router.AuditService = app.auditService

	// With Redis configured, rate limit buckets are shared across
	// replicas; otherwise each process keeps its own.
	if app.cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		router.NewLimiter = func(c httpx.RateLimitConfig) httpx.Limiter {
			return httpx.NewRedisLimiter(app.redis, "ratelimit", c)
		}
		app.logger.Info("redis rate limiting enabled", "addr", app.cfg.RedisAddr)
	}

	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
