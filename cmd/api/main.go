package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/employease/employease-api/docs" // Swagger docs
	"github.com/employease/employease-api/internal/auth"
	"github.com/employease/employease-api/internal/config"
	"github.com/employease/employease-api/internal/database"
	httpServer "github.com/employease/employease-api/internal/http"
	"github.com/employease/employease-api/internal/logging"
	"github.com/employease/employease-api/internal/payment"
	"github.com/employease/employease-api/internal/ratelimit"
	"github.com/employease/employease-api/internal/user"
)

// @title           Employease API
// @version         1.0
// @description     Identity, role management and payroll payments for the Employease workforce platform.

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token from POST /jwt.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_format", cfg.Auth.TokenFormat,
		"verify_intents", cfg.Payment.VerifyIntents,
	)

	db, err := database.OpenPostgres(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(context.Background(), db); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	tokenService, err := newTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Repositories
	userRepo := user.NewRepository(db)
	ledger := payment.NewRepository(db)

	// Services
	userService := user.NewService(userRepo, logger)
	paymentService := payment.NewService(
		payment.NewStripeGateway(cfg.Payment.StripeSecretKey),
		ledger,
		payment.NewRedisIdempotencyStore(redisClient, cfg.Payment.IdempotencyTTL),
		payment.Options{
			Currency:      cfg.Payment.Currency,
			VerifyIntents: cfg.Payment.VerifyIntents,
		},
		logger,
	)

	authMiddleware := auth.NewMiddleware(tokenService, auth.NewGuard(userRepo))
	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:    auth.NewHandler(tokenService, userRepo),
		Users:   user.NewHandler(userService),
		Payment: payment.NewHandler(paymentService),
	}, authMiddleware, rateLimiter, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenFormat {
	case config.TokenFormatPaseto:
		return auth.NewPasetoService(cfg.TokenSecret, cfg.TokenDuration)
	default:
		return auth.NewJWTService(cfg.TokenSecret, cfg.TokenDuration)
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
