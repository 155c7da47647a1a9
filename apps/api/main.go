package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	gcsstorage "cloud.google.com/go/storage"
	"github.com/caarlos0/env/v11"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	assetshandler "github.com/sidelinehq/trophy-cabinet/domains/assets/be/handler"
	assetsservice "github.com/sidelinehq/trophy-cabinet/domains/assets/be/service"
	awardshandler "github.com/sidelinehq/trophy-cabinet/domains/awards/be/handler"
	awardsrepo "github.com/sidelinehq/trophy-cabinet/domains/awards/be/repo"
	awardsservice "github.com/sidelinehq/trophy-cabinet/domains/awards/be/service"
	billinghandler "github.com/sidelinehq/trophy-cabinet/domains/billing/be/handler"
	membershipshandler "github.com/sidelinehq/trophy-cabinet/domains/memberships/be/handler"
	membershipsrepo "github.com/sidelinehq/trophy-cabinet/domains/memberships/be/repo"
	membershipsservice "github.com/sidelinehq/trophy-cabinet/domains/memberships/be/service"
	profileshandler "github.com/sidelinehq/trophy-cabinet/domains/profiles/be/handler"
	profilesrepo "github.com/sidelinehq/trophy-cabinet/domains/profiles/be/repo"
	profilesservice "github.com/sidelinehq/trophy-cabinet/domains/profiles/be/service"
	tenantshandler "github.com/sidelinehq/trophy-cabinet/domains/tenants/be/handler"
	tenantsrepo "github.com/sidelinehq/trophy-cabinet/domains/tenants/be/repo"
	tenantsservice "github.com/sidelinehq/trophy-cabinet/domains/tenants/be/service"
	trophieshandler "github.com/sidelinehq/trophy-cabinet/domains/trophies/be/handler"
	trophiesrepo "github.com/sidelinehq/trophy-cabinet/domains/trophies/be/repo"
	trophiesservice "github.com/sidelinehq/trophy-cabinet/domains/trophies/be/service"
	platformauth "github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	platformlogging "github.com/sidelinehq/trophy-cabinet/platform/go/logging"
	platformmiddleware "github.com/sidelinehq/trophy-cabinet/platform/go/middleware"
	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
	"github.com/sidelinehq/trophy-cabinet/platform/go/storage"
)

const contractPath = "contracts/trophy-cabinet.yaml"

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	AuthProvider    string        `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | dev
	FirebaseCreds   string        `env:"FIREBASE_CREDENTIALS_FILE"`
	StorageBackend  string        `env:"STORAGE_BACKEND" envDefault:"gcs"`               // gcs | local
	StorageBucket   string        `env:"STORAGE_BUCKET"`                                 // required when STORAGE_BACKEND=gcs
	StorageLocalDir string        `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/storage"` // used when STORAGE_BACKEND=local
	StorageBaseURL  string        `env:"STORAGE_BASE_URL" envDefault:"http://localhost:3000/assets"`
	StripeSecret    string        `env:"STRIPE_WEBHOOK_SECRET"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	tenantStore, err := persistence.NewTenantStore(pool)
	if err != nil {
		logger.Fatal("init tenant store", zap.Error(err))
	}
	membershipStore, err := persistence.NewMembershipStore(pool)
	if err != nil {
		logger.Fatal("init membership store", zap.Error(err))
	}
	inviteCodeStore, err := persistence.NewInviteCodeStore(pool)
	if err != nil {
		logger.Fatal("init invite code store", zap.Error(err))
	}
	profileStore, err := persistence.NewProfileStore(pool)
	if err != nil {
		logger.Fatal("init profile store", zap.Error(err))
	}
	trophyStore, err := persistence.NewTrophyStore(pool)
	if err != nil {
		logger.Fatal("init trophy store", zap.Error(err))
	}
	awardStore, err := persistence.NewAwardStore(pool)
	if err != nil {
		logger.Fatal("init award store", zap.Error(err))
	}
	seasonTeamStore, err := persistence.NewSeasonTeamStore(pool)
	if err != nil {
		logger.Fatal("init season team store", zap.Error(err))
	}

	// Memberships double as the role directory every other domain
	// authorizes against.
	membershipService := membershipsservice.New(
		membershipsrepo.NewPostgresRepository(membershipStore, inviteCodeStore),
	)
	membershipHTTPHandler := membershipshandler.New(membershipService, logger)

	tenantService := tenantsservice.New(tenantsrepo.NewPostgresRepository(tenantStore), membershipService)
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	profileService := profilesservice.New(profilesrepo.NewPostgresRepository(profileStore))
	profileHTTPHandler := profileshandler.New(profileService, logger)

	trophyService := trophiesservice.New(trophiesrepo.NewPostgresRepository(trophyStore), membershipService)
	trophyHTTPHandler := trophieshandler.New(trophyService, logger)

	awardService := awardsservice.New(
		awardsrepo.NewPostgresRepository(awardStore, seasonTeamStore, trophyStore),
		membershipService,
	)
	awardHTTPHandler := awardshandler.New(awardService, logger)

	uploader := buildUploader(ctx, cfg, logger)
	assetHTTPHandler := assetshandler.New(assetsservice.New(uploader, membershipService), logger)

	authMiddleware := buildAuthMiddleware(ctx, cfg, logger)

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

	// ---- Swagger UI + OpenAPI JSON (public) ----
	registerDocsRoutes(rootRouter, logger)

	// Stripe authenticates with its signature header, not a bearer token,
	// so the webhook stays outside the API group.
	if cfg.StripeSecret != "" {
		billinghandler.New(cfg.StripeSecret, logger).Register(rootRouter)
	} else {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set; stripe webhook disabled")
	}

	apiRouter := chi.NewRouter()
	apiRouter.Use(authMiddleware)
	apiRouter.Use(platformauth.RequireAuthenticated)
	apiRouter.Use(mustNewSpecValidator(logger, contractPath))

	tenantHTTPHandler.Register(apiRouter)
	membershipHTTPHandler.Register(apiRouter)
	profileHTTPHandler.Register(apiRouter)
	trophyHTTPHandler.Register(apiRouter)
	awardHTTPHandler.Register(apiRouter)
	assetHTTPHandler.Register(apiRouter)

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
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

func buildUploader(ctx context.Context, cfg config, logger *zap.Logger) storage.Uploader {
	switch cfg.StorageBackend {
	case "gcs":
		if cfg.StorageBucket == "" {
			logger.Fatal("storage bucket required when STORAGE_BACKEND=gcs")
		}
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("init gcs client", zap.Error(err))
		}
		return storage.NewGCSUploader(client, cfg.StorageBucket)
	case "local":
		if strings.TrimSpace(cfg.StorageLocalDir) == "" {
			logger.Fatal("storage local dir required when STORAGE_BACKEND=local")
		}
		uploader, err := storage.NewLocalUploader(cfg.StorageLocalDir, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal("init local storage", zap.Error(err))
		}
		return uploader
	default:
		logger.Fatal("invalid STORAGE_BACKEND (use gcs or local)", zap.String("backend", cfg.StorageBackend))
		return nil
	}
}

// mustNewSpecValidator loads the OpenAPI document and builds validator
// middleware so every mounted route is held to the published contract.
func mustNewSpecValidator(logger *zap.Logger, path string) func(http.Handler) http.Handler {
	spec := mustLoadSpec(logger, path)
	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: platformmiddleware.ValidateBearerAuth,
		},
		SilenceServersWarning: true,
	})
}
