package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DatabaseConfig содержит настройки PostgreSQL, общие для сервера и воркера.
type DatabaseConfig struct {
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_TIME" default:"5m"`
	// Пароль берется из DB_PASSWORD или из секрета db_password
	DBPassword string `envconfig:"DB_PASSWORD"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Config содержит конфигурацию API сервера
type Config struct {
	// Настройки сервера
	Port        string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	DatabaseConfig

	// Redis опционален: без него дедупликация событий отключена
	RedisURL         string        `envconfig:"REDIS_URL"`
	TrackDedupWindow time.Duration `envconfig:"TRACK_DEDUP_WINDOW" default:"2s"`

	// RabbitMQ опционален: без него события пишутся в БД напрямую
	RabbitMQURL    string `envconfig:"RABBITMQ_URL"`
	AnalyticsQueue string `envconfig:"ANALYTICS_QUEUE" default:"analytics_events"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// WorkerConfig содержит конфигурацию воркера аналитики
type WorkerConfig struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9091"`

	DatabaseConfig

	RabbitMQURL    string `envconfig:"RABBITMQ_URL" required:"true"`
	AnalyticsQueue string `envconfig:"ANALYTICS_QUEUE" default:"analytics_events"`
	PrefetchCount  int    `envconfig:"WORKER_PREFETCH" default:"20"`
}

// LoadConfig загружает конфигурацию сервера из переменных окружения и секретов
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации сервера: %w", err)
	}
	if err := cfg.DatabaseConfig.resolvePassword(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWorkerConfig загружает конфигурацию воркера
func LoadWorkerConfig() (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации воркера: %w", err)
	}
	if err := cfg.DatabaseConfig.resolvePassword(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *DatabaseConfig) resolvePassword() error {
	if c.DBPassword != "" {
		return nil
	}
	secret, err := ReadSecret("db_password")
	if err != nil {
		return fmt.Errorf("пароль БД не задан: %w", err)
	}
	c.DBPassword = secret
	return nil
}

// secretsDir можно переопределить в тестах
var secretsDir = "/run/secrets"

// ReadSecret читает секрет из файла в стандартном пути Docker Secrets.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", secretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
