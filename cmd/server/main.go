package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sats-terminal/internal/config"
	"sats-terminal/internal/database"
	"sats-terminal/internal/handler"
	"sats-terminal/internal/logger"
	"sats-terminal/internal/messaging"
	"sats-terminal/internal/middleware"
	"sats-terminal/internal/repository"
	"sats-terminal/internal/service"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Запуск API сервера", zap.String("port", cfg.Port), zap.String("logLevel", cfg.LogLevel))

	ctx := context.Background()
	dbPool, err := database.Connect(ctx, &cfg.DatabaseConfig, appLogger)
	if err != nil {
		appLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()

	if err := database.NewMigrator(dbPool, appLogger).Up(); err != nil {
		appLogger.Fatal("Не удалось применить миграции", zap.Error(err))
	}

	// Дедупликация событий (опционально)
	var dedup repository.TrackDeduplicator = repository.NoopTrackDeduplicator{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			appLogger.Fatal("Некорректный REDIS_URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Warn("Redis недоступен, дедупликация будет пропускать события", zap.Error(err))
		}
		dedup = repository.NewRedisTrackDeduplicator(redisClient, cfg.TrackDedupWindow, appLogger)
	}

	// Очередь событий (опционально)
	var publisher messaging.EventPublisher
	if cfg.RabbitMQURL != "" {
		var rabbitConn *amqp.Connection
		rabbitConn, err = messaging.ConnectRabbitMQ(cfg.RabbitMQURL, 5, 5*time.Second, appLogger)
		if err != nil {
			appLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
		}
		defer rabbitConn.Close()
		publisher, err = messaging.NewRabbitMQEventPublisher(rabbitConn, cfg.AnalyticsQueue)
		if err != nil {
			appLogger.Fatal("Не удалось создать EventPublisher", zap.Error(err))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)

	userRepo := repository.NewPgUserRepository(dbPool, appLogger)
	skillRepo := repository.NewPgSkillRepository(dbPool, appLogger)
	sessionRepo := repository.NewPgSessionRepository(dbPool, appLogger)
	analyticsRepo := repository.NewPgAnalyticsRepository(dbPool, appLogger)

	apiHandler := handler.NewAPIHandler(
		service.NewUserService(userRepo, metrics, appLogger),
		service.NewSkillService(userRepo, skillRepo, metrics, appLogger),
		service.NewSessionService(sessionRepo, appLogger),
		service.NewAnalyticsService(analyticsRepo, dedup, publisher, metrics, appLogger),
		reg,
		appLogger,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.EchoZapLogger(appLogger))
	e.Use(middleware.NewHTTPMetrics(reg).Middleware())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	apiHandler.RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Ошибка запуска HTTP сервера", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Получен сигнал завершения, начинаем graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Ошибка при graceful shutdown Echo", zap.Error(err))
	}
	appLogger.Info("API сервер остановлен")
}
