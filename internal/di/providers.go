package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/graphql-go/graphql"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/otp-account-service/internal/app"
	"github.com/sandeepkv93/otp-account-service/internal/config"
	"github.com/sandeepkv93/otp-account-service/internal/database"
	"github.com/sandeepkv93/otp-account-service/internal/graph"
	"github.com/sandeepkv93/otp-account-service/internal/health"
	"github.com/sandeepkv93/otp-account-service/internal/http/middleware"
	"github.com/sandeepkv93/otp-account-service/internal/http/router"
	"github.com/sandeepkv93/otp-account-service/internal/mailer"
	"github.com/sandeepkv93/otp-account-service/internal/observability"
	"github.com/sandeepkv93/otp-account-service/internal/repository"
	"github.com/sandeepkv93/otp-account-service/internal/security"
	"github.com/sandeepkv93/otp-account-service/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(repository.NewUserRepository)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	providePasswordHasher,
	wire.Bind(new(service.TokenManager), new(*security.JWTManager)),
	wire.Bind(new(middleware.TokenVerifier), new(*security.JWTManager)),
	wire.Bind(new(service.PasswordHasher), new(*security.PasswordHasher)),
)

var MailSet = wire.NewSet(mailer.New)

var ServiceSet = wire.NewSet(
	provideAccountNotifier,
	provideAccountService,
	wire.Bind(new(service.AccountServiceInterface), new(*service.AccountService)),
)

var GraphQLSet = wire.NewSet(
	provideAuthRateLimiter,
	graph.NewResolver,
	graph.NewSchema,
	provideGraphQLHandler,
)

var HTTPSet = wire.NewSet(
	provideGlobalRateLimiter,
	provideHTTPMetrics,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

// provideRuntimeDB opens and migrates the store. In local environments the
// verified dev account from SEED_DEV_USER_* is created when configured.
func provideRuntimeDB(cfg *config.Config, hasher *security.PasswordHasher, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if cfg.IsLocal() && cfg.SeedDevUserEmail != "" && cfg.SeedDevUserPassword != "" {
		report, err := database.SeedUsers(db, hasher, database.SeedUser{
			Email:    cfg.SeedDevUserEmail,
			Password: cfg.SeedDevUserPassword,
			Verified: true,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("dev user seed", "email", cfg.SeedDevUserEmail, "created", report.CreatedUsers, "noop", report.Noop)
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RateLimitRedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 2)
	if c := health.NewDBChecker(db); c != nil {
		checkers = append(checkers, c)
	}
	if cfg.RateLimitRedisEnabled {
		if c := health.NewRedisChecker(redisClient); c != nil {
			checkers = append(checkers, c)
		}
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideJWTManager(cfg *config.Config) (*security.JWTManager, error) {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
}

func providePasswordHasher(cfg *config.Config) *security.PasswordHasher {
	return security.NewPasswordHasher(cfg.BcryptCost)
}

func provideAccountNotifier(cfg *config.Config, sender mailer.Sender, logger *slog.Logger) *service.AccountNotifier {
	return service.NewAccountNotifier(sender, cfg.MailTimeout, logger)
}

func provideAccountService(
	cfg *config.Config,
	users repository.UserRepository,
	hasher service.PasswordHasher,
	tokens service.TokenManager,
	notifier *service.AccountNotifier,
) *service.AccountService {
	return service.NewAccountService(service.PolicyFromConfig(cfg), users, hasher, tokens, notifier)
}

// provideAuthRateLimiter guards the unauthenticated account mutations. With
// Redis enabled it fails closed so an outage cannot unlock brute forcing.
func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) *middleware.RateLimiter {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":auth")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.AuthRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"auth",
		)
	}
	return middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute, "auth")
}

func provideGraphQLHandler(cfg *config.Config, schema graphql.Schema, logger *slog.Logger) *graph.Handler {
	return graph.NewHandler(schema, graph.HandlerOptions{
		MaxRequestBytes: cfg.GraphQLMaxRequestBytes,
		Introspection:   cfg.GraphQLIntrospection,
		AllowGETQueries: cfg.GraphQLAllowGETRequests,
		Logger:          logger,
	})
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.GlobalRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":api")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute, "api").Middleware()
}

func provideHTTPMetrics(cfg *config.Config) *middleware.HTTPMetrics {
	if !cfg.PrometheusEnabled {
		return nil
	}
	return middleware.NewHTTPMetrics()
}

func provideRouterDependencies(
	gql *graph.Handler,
	tokens middleware.TokenVerifier,
	logger *slog.Logger,
	globalRateLimiter router.GlobalRateLimiterFunc,
	readiness *health.ProbeRunner,
	metrics *middleware.HTTPMetrics,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		GraphQL:           gql,
		Tokens:            tokens,
		Logger:            logger,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		GlobalRateLimiter: globalRateLimiter,
		Readiness:         readiness,
		Metrics:           metrics,
		MaxBodyBytes:      cfg.GraphQLMaxRequestBytes,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
