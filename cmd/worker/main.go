package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sats-terminal/internal/config"
	"sats-terminal/internal/database"
	"sats-terminal/internal/logger"
	"sats-terminal/internal/messaging"
	"sats-terminal/internal/repository"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Запуск воркера аналитики", zap.String("queue", cfg.AnalyticsQueue))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := database.Connect(ctx, &cfg.DatabaseConfig, appLogger)
	if err != nil {
		appLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()

	rabbitConn, err := messaging.ConnectRabbitMQ(cfg.RabbitMQURL, 5, 5*time.Second, appLogger)
	if err != nil {
		appLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()

	reg := prometheus.NewRegistry()
	consumer := messaging.NewEventConsumer(
		rabbitConn,
		cfg.AnalyticsQueue,
		cfg.PrefetchCount,
		repository.NewPgAnalyticsRepository(dbPool, appLogger),
		messaging.NewConsumerMetrics(reg),
		appLogger,
	)
	if err := consumer.Start(ctx); err != nil {
		appLogger.Fatal("Не удалось запустить консьюмер", zap.Error(err))
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Получен сигнал завершения, останавливаем воркер...")

	cancel()
	consumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	appLogger.Info("Воркер остановлен")
}
