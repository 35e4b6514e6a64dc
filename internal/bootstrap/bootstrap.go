package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appAuth "github.com/selimd/porta/internal/app/auth"
	appControllers "github.com/selimd/porta/internal/app/controllers"
	appMigrations "github.com/selimd/porta/internal/app/migrations"
	appRepos "github.com/selimd/porta/internal/app/repositories"
	appRoutes "github.com/selimd/porta/internal/app/routes"
	appServices "github.com/selimd/porta/internal/app/services"
	"github.com/selimd/porta/internal/config"
	"github.com/selimd/porta/internal/db"
	appMiddleware "github.com/selimd/porta/internal/middleware"
	pkgAuth "github.com/selimd/porta/internal/pkg/auth"
	"github.com/selimd/porta/internal/pkg/email"
	"github.com/selimd/porta/internal/pkg/logger"
	"github.com/selimd/porta/internal/pkg/notify"
	"github.com/selimd/porta/internal/pkg/ratelimit"
	"github.com/selimd/porta/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService          *appServices.AuthService
	CommunityService     appServices.CommunityService
	ApprovalService      appServices.ApprovalService
	HouseholdService     appServices.HouseholdService
	AccessCodeService    appServices.AccessCodeService
	VerificationService  appServices.VerificationService
	AuthController       *appControllers.AuthController
	CommunityController  *appControllers.CommunityController
	HouseholdController  *appControllers.HouseholdController
	AccessCodeController *appControllers.AccessCodeController
	GateController       *appControllers.GateController
	AuthMiddleware       *appMiddleware.AuthMiddleware
	RateLimitMiddleware  *appMiddleware.RateLimitMiddleware
	Repos                *appRepos.Repositories
	JWTService           *pkgAuth.JWTService
	AuthzService         *appAuth.AuthorizationService
	Notifier             notify.Notifier
	RateLimiter          *ratelimit.Limiter
	Logger               zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")

	if err := seed.CreateDefaultData(context.Background(), dbPool, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.AuthzService = appAuth.NewAuthorizationService(deps.Repos.MemberRepository)

	accessExp, _ := time.ParseDuration(cfg.JWT.AccessTokenExpiration)
	refreshExp, _ := time.ParseDuration(cfg.JWT.RefreshTokenExpiration)
	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  accessExp,
		RefreshTokenExp: refreshExp,
		TokenIssuer:     cfg.JWT.Issuer,
	})

	deps.Notifier = setupNotifier(cfg, lgr)

	emailService := email.NewEmailService(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    cfg.SMTP.UseTLS,
		BaseURL:   cfg.SMTP.BaseURL,
	}, lgr)

	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.TokenRepository,
		deps.JWTService,
		lgr,
	)
	deps.CommunityService = appServices.NewCommunityService(
		deps.Repos.CommunityRepository,
		deps.Repos.MemberRepository,
		deps.Repos.UserRepository,
		deps.AuthzService,
		cfg.Community.MaxResidentsPerHousehold,
		lgr,
	)
	deps.ApprovalService = appServices.NewApprovalService(
		deps.Repos.MemberRepository,
		deps.Repos.HouseholdRepository,
		deps.Notifier,
		lgr,
	)
	deps.HouseholdService = appServices.NewHouseholdService(
		deps.Repos.HouseholdRepository,
		deps.Repos.MemberRepository,
		deps.Repos.UserRepository,
		deps.Repos.CommunityRepository,
		deps.Repos.InvitationRepository,
		emailService,
		deps.Notifier,
		lgr,
	)
	deps.AccessCodeService = appServices.NewAccessCodeService(
		deps.Repos.AccessCodeRepository,
		deps.AuthzService,
		lgr,
	)
	deps.VerificationService = appServices.NewVerificationService(
		deps.Repos.AccessCodeRepository,
		deps.Repos.EntryLogRepository,
		deps.Notifier,
		lgr,
	)

	deps.RateLimiter = setupRateLimiter(cfg, lgr)
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.RateLimitMiddleware = appMiddleware.NewRateLimitMiddleware(deps.RateLimiter, lgr)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.CommunityController = appControllers.NewCommunityController(deps.CommunityService, deps.ApprovalService, deps.AuthzService, lgr)
	deps.HouseholdController = appControllers.NewHouseholdController(deps.HouseholdService, lgr)
	deps.AccessCodeController = appControllers.NewAccessCodeController(deps.AccessCodeService, lgr)
	deps.GateController = appControllers.NewGateController(deps.VerificationService, deps.AuthzService, lgr)

	return deps, nil
}

// setupNotifier connects to RabbitMQ when configured, otherwise falls
// back to the logging notifier.
func setupNotifier(cfg *config.Config, lgr zerolog.Logger) notify.Notifier {
	if cfg.RabbitMQ.URL == "" {
		lgr.Info().Msg("RabbitMQ not configured; notifications will only be logged")
		return notify.NewLogNotifier(lgr)
	}

	notifier, err := notify.NewRabbitMQNotifier(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to RabbitMQ; notifications will only be logged")
		return notify.NewLogNotifier(lgr)
	}

	lgr.Info().Str("queue", cfg.RabbitMQ.QueueName).Msg("RabbitMQ notifier connected")
	return notifier
}

// setupRateLimiter builds the Redis-backed gate scan limiter. Returns
// nil when Redis is not configured; the middleware treats nil as
// unlimited.
func setupRateLimiter(cfg *config.Config, lgr zerolog.Logger) *ratelimit.Limiter {
	if cfg.Redis.Addr == "" {
		lgr.Info().Msg("Redis not configured; gate scan rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to Redis; gate scan rate limiting disabled")
		return nil
	}

	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis rate limiter connected")
	return ratelimit.NewLimiter(client, cfg.Gate.ScanRatePerMinute, time.Minute, "porta:gate")
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.CommunityController,
		deps.HouseholdController,
		deps.AccessCodeController,
		deps.GateController,
		deps.AuthMiddleware,
		deps.RateLimitMiddleware,
	)

	return router
}
