package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	identityhandler "github.com/zenGate-Global/palmyra-identity/domains/identity/be/handler"
	identityrepo "github.com/zenGate-Global/palmyra-identity/domains/identity/be/repo"
	identityservice "github.com/zenGate-Global/palmyra-identity/domains/identity/be/service"
	tenantshandler "github.com/zenGate-Global/palmyra-identity/domains/tenants/be/handler"
	tenantsrepo "github.com/zenGate-Global/palmyra-identity/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/palmyra-identity/domains/tenants/be/service"
	platformauth "github.com/zenGate-Global/palmyra-identity/platform/go/auth"
	"github.com/zenGate-Global/palmyra-identity/platform/go/credentials"
	platformlogging "github.com/zenGate-Global/palmyra-identity/platform/go/logging"
	"github.com/zenGate-Global/palmyra-identity/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/palmyra-identity/platform/go/middleware"
	"github.com/zenGate-Global/palmyra-identity/platform/go/notify"
	"github.com/zenGate-Global/palmyra-identity/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"4000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	MailBackend  string `env:"MAIL_BACKEND" envDefault:"log"` // smtp | log
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"465"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"donotreply@projectlion.com"`

	BootstrapTenant   string `env:"BOOTSTRAP_TENANT" envDefault:"Project Lion"`
	BootstrapEmail    string `env:"BOOTSTRAP_EMAIL" envDefault:"lion@projectlion.com"`
	BootstrapPassword string `env:"BOOTSTRAP_PASSWORD" envDefault:"lion"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "identity-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	metrics.Init()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if err := persistence.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("apply schema", zap.Error(err))
	}

	issuer, err := platformauth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("init token issuer", zap.Error(err))
	}

	notifier, err := buildNotifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init notifier", zap.Error(err))
	}

	tenantStore, err := persistence.NewTenantStore(pool)
	if err != nil {
		logger.Fatal("init tenant store", zap.Error(err))
	}
	tenantRepo := tenantsrepo.NewPostgresRepository(tenantStore)
	tenantService := tenantsservice.New(tenantRepo, logger)
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	userStore, err := persistence.NewUserStore(pool)
	if err != nil {
		logger.Fatal("init user store", zap.Error(err))
	}
	userRepo := identityrepo.NewPostgresRepository(userStore)
	identityService := identityservice.New(
		userRepo,
		credentials.NewHasher(cfg.BcryptCost),
		issuer,
		notifier,
		logger,
	)
	identityHTTPHandler := identityhandler.New(identityService, logger)

	bootstrapCfg := identityservice.BootstrapConfig{
		TenantName:    cfg.BootstrapTenant,
		AdminEmail:    cfg.BootstrapEmail,
		AdminPassword: cfg.BootstrapPassword,
	}
	if err := identityservice.Bootstrap(ctx, identityService, tenantDirectory{svc: tenantService}, bootstrapCfg, logger); err != nil {
		logger.Fatal("bootstrap default tenant/user", zap.Error(err))
	}

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Method(http.MethodGet, "/metrics", metrics.Handler())

	apiRouter := chi.NewRouter()
	apiRouter.Group(func(r chi.Router) {
		identityHTTPHandler.RegisterPublic(r)
	})
	apiRouter.Group(func(r chi.Router) {
		r.Use(platformauth.RequireAuth(issuer))
		identityHTTPHandler.RegisterProtected(r)
		tenantHTTPHandler.Register(r)
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting identity api", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildNotifier constructs the mail transport explicitly so a broken setup
// fails startup instead of leaving the dependency silently uninitialized.
func buildNotifier(ctx context.Context, cfg config, logger *zap.Logger) (notify.Notifier, error) {
	switch cfg.MailBackend {
	case "smtp":
		return notify.NewSMTPNotifier(ctx, notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	case "log":
		return notify.NewLogNotifier(logger), nil
	default:
		return nil, errors.New("invalid MAIL_BACKEND (use smtp or log)")
	}
}

// tenantDirectory adapts the tenants service to the narrow interface the
// identity bootstrap consumes.
type tenantDirectory struct {
	svc tenantsservice.Service
}

func (d tenantDirectory) FindByName(ctx context.Context, name string) (string, error) {
	tenant, err := d.svc.FindByName(ctx, name)
	if err != nil {
		return "", err
	}
	return tenant.ID.String(), nil
}

func (d tenantDirectory) Create(ctx context.Context, name string) (string, error) {
	tenant, err := d.svc.Create(ctx, name)
	if err != nil {
		if errors.Is(err, tenantsservice.ErrDuplicate) {
			return "", identityservice.ErrTenantExists
		}
		return "", err
	}
	return tenant.ID.String(), nil
}
