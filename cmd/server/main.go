package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/janisto/echo-identity/internal/config"
	"github.com/janisto/echo-identity/internal/http/docs"
	"github.com/janisto/echo-identity/internal/http/health"
	trustedroutes "github.com/janisto/echo-identity/internal/http/trusted/routes"
	"github.com/janisto/echo-identity/internal/http/v1/routes"
	"github.com/janisto/echo-identity/internal/platform/auth"
	"github.com/janisto/echo-identity/internal/platform/firebase"
	applog "github.com/janisto/echo-identity/internal/platform/logging"
	"github.com/janisto/echo-identity/internal/platform/metrics"
	appmiddleware "github.com/janisto/echo-identity/internal/platform/middleware"
	"github.com/janisto/echo-identity/internal/platform/respond"
	"github.com/janisto/echo-identity/internal/platform/tracing"
	"github.com/janisto/echo-identity/internal/platform/validate"
	usersvc "github.com/janisto/echo-identity/internal/service/user"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const serviceName = "echo-identity"

// Paths that stay out of access metrics and tracing.
var probePaths = []string{"/health", "/ready", "/metrics"}

//	@title						Identity API
//	@version					1.0
//	@description				User profiles synchronized from identity provider logins.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@securityDefinitions.apikey	InternalApiKey
//	@in							header
//	@name						X-Internal-Api-Key
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		applog.LogFatal(ctx, "invalid configuration", err)
	}
	applog.SetLevel(cfg.Level())
	applog.SetProjectID(cfg.FirebaseProjectID)

	sigCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: serviceName,
		Version:     Version,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTELEndpoint,
		SampleRatio: cfg.OTELSampleRatio,
	})
	if err != nil {
		applog.LogFatal(ctx, "tracing setup failed", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(ctx, 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			applog.LogError(ctx, "tracing shutdown error", err)
		}
	}()

	var firebaseClients *firebase.Clients
	if cfg.NeedsFirebase() {
		if cfg.Development() && cfg.FirebaseProjectID == config.DevelopmentProjectID {
			applog.LogWarn(ctx, "using demo-test-project for local development")
		}
		firebaseClients, err = firebase.InitializeClients(ctx, firebase.Config{
			ProjectID:     cfg.FirebaseProjectID,
			SkipFirestore: cfg.StoreBackend != config.StoreFirestore,
		})
		if err != nil {
			applog.LogFatal(ctx, "firebase init failed", err)
		}
		defer func() {
			if closeErr := firebaseClients.Close(); closeErr != nil {
				applog.LogError(ctx, "firebase close error", closeErr)
			}
		}()
	}

	var checks []health.Check

	store, closeStore, storeChecks := newStore(ctx, cfg, firebaseClients)
	defer closeStore()
	checks = append(checks, storeChecks...)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				applog.LogError(ctx, "redis close error", err)
			}
		}()
		store = usersvc.NewCachedStore(store, rdb, cfg.CacheTTL)
		checks = append(checks, health.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		applog.LogInfo(ctx, "user cache enabled", slog.Duration("ttl", cfg.CacheTTL))
	}

	verifier := newVerifier(sigCtx, cfg, firebaseClients)
	userService := usersvc.NewService(store)

	if cfg.InternalAPIKey == "" {
		applog.LogWarn(ctx, "INTERNAL_API_KEY is not set; /internal routes rely on network isolation")
	}

	e := echo.New()
	e.Validator = validate.New()
	e.HTTPErrorHandler = respond.NewHTTPErrorHandler()
	e.IPExtractor = echo.ExtractIPFromRealIPHeader()
	e.Logger = applog.Logger()

	e.Use(
		appmiddleware.Security("/v1/api-docs"),
		appmiddleware.CORS(cfg.CORSAllowedOrigins...),
		appmiddleware.RequestID(),
		tracing.Middleware(probePaths...),
		applog.RequestLogger(),
		applog.AccessLogger(),
		metrics.Middleware(probePaths...),
		middleware.BodyLimit(1<<20),
		respond.Recoverer(),
	)

	e.GET("/health", health.Handler)
	e.GET("/ready", health.Readiness(checks...))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	v1 := e.Group("/v1")
	docs.Register(v1, cfg.OpenAPISpecPath)
	routes.Register(v1, verifier, userService)

	trustedroutes.Register(e.Group("/internal/v1"), cfg.InternalAPIKey, userService)

	applog.LogInfo(ctx, "server starting",
		slog.String("addr", ":"+cfg.Port),
		slog.String("version", Version),
		slog.String("store", cfg.StoreBackend),
		slog.String("auth", cfg.AuthProvider))

	sc := echo.StartConfig{
		Address:         ":" + cfg.Port,
		GracefulTimeout: 10 * time.Second,
		BeforeServeFunc: func(s *http.Server) error {
			s.ReadTimeout = 5 * time.Second
			s.ReadHeaderTimeout = 2 * time.Second
			s.WriteTimeout = 10 * time.Second
			s.IdleTimeout = 60 * time.Second
			s.MaxHeaderBytes = 64 << 10
			return nil
		},
	}

	if err := sc.Start(sigCtx, e); err != nil {
		log.Fatal(err)
	}

	applog.LogInfo(ctx, "server exited")
}

// newStore builds the configured user store, a func releasing its
// resources and the readiness checks it contributes.
func newStore(ctx context.Context, cfg config.Config, fb *firebase.Clients) (usersvc.Store, func(), []health.Check) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			applog.LogFatal(ctx, "postgres connect failed", err)
		}
		check := health.Check{Name: "postgres", Ping: pool.Ping}
		return usersvc.NewPostgresStore(pool), pool.Close, []health.Check{check}

	case config.StoreMemory:
		applog.LogWarn(ctx, "using in-memory user store; data is lost on restart")
		return usersvc.NewMemoryStore(), func() {}, nil

	default:
		return usersvc.NewFirestoreStore(fb.Firestore), func() {}, nil
	}
}

func newVerifier(ctx context.Context, cfg config.Config, fb *firebase.Clients) auth.Verifier {
	if cfg.AuthProvider != config.AuthJWKS {
		return auth.NewFirebaseVerifier(fb.Auth)
	}

	jwks, err := auth.FetchJWKS(ctx, cfg.JWKSURL)
	if err != nil {
		applog.LogFatal(ctx, "jwks fetch failed", err)
	}
	applog.LogInfo(ctx, "verifying tokens against jwks",
		slog.String("issuer", cfg.JWTIssuer),
		slog.String("audience", cfg.JWTAudience))
	return auth.NewJWKSVerifier(jwks.Keyfunc, cfg.JWTIssuer, cfg.JWTAudience)
}
