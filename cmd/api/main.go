package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/citywatch/report-api/internal/config"
	"github.com/citywatch/report-api/internal/email"
	"github.com/citywatch/report-api/internal/handler"
	authHandler "github.com/citywatch/report-api/internal/handler/auth"
	notificationHandler "github.com/citywatch/report-api/internal/handler/notification"
	reportHandler "github.com/citywatch/report-api/internal/handler/report"
	"github.com/citywatch/report-api/internal/middleware"
	"github.com/citywatch/report-api/internal/repository/postgres"
	redisrepo "github.com/citywatch/report-api/internal/repository/redis"
	"github.com/citywatch/report-api/internal/router"
	authService "github.com/citywatch/report-api/internal/service/auth"
	notificationService "github.com/citywatch/report-api/internal/service/notification"
	reportService "github.com/citywatch/report-api/internal/service/report"
	"github.com/citywatch/report-api/internal/service/session"
	"github.com/citywatch/report-api/pkg/auth"
	"github.com/citywatch/report-api/pkg/logger"
	redisbroker "github.com/citywatch/report-api/pkg/messaging/redis"
	"github.com/citywatch/report-api/pkg/metrics"
	"github.com/citywatch/report-api/pkg/security"
)

const bcryptCost = 12

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis (notification store + event broker)
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid redis URL")
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	appMetrics := metrics.NewMetrics("reportapi", "core")
	kv := redisrepo.NewKV(redisClient)

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	notificationStore := redisrepo.NewNotificationStore(kv, appLogger.Zerolog(), appMetrics)
	deviceStore := redisrepo.NewDeviceStore(kv)

	// Initialize services
	broker := redisbroker.NewRedisBroker(redisClient, appLogger.Zerolog())
	emailSvc := email.NewSMTPService(cfg.SMTP)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(bcryptCost)
	sessions := session.NewProvider(deviceStore, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authSvc := authService.NewService(userRepo, jwtSvc, hasher, sessions, emailSvc, appLogger.Zerolog(), appMetrics)
	notificationSvc := notificationService.NewService(notificationStore, userRepo, broker, emailSvc, appLogger.Zerolog(), appMetrics)
	reportSvc := reportService.NewService(notificationSvc)

	// Initialize middleware and handlers
	handler.RegisterValidations()
	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	h := handler.NewHandler()
	authH := authHandler.NewHandler(authSvc, sessions)
	notificationH := notificationHandler.NewHandler(notificationSvc)
	reportH := reportHandler.NewHandler(reportSvc)

	// Setup router
	r := router.NewRouter(authMiddleware, authH, notificationH, reportH, h, router.Config{
		RateLimit:     rate.Limit(cfg.Server.RateLimit),
		RateBurst:     cfg.Server.RateBurst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "reportapi",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
