package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// TerminalConfig содержит настройки терминального клиента.
type TerminalConfig struct {
	APIURL   string `envconfig:"SATS_API_URL" default:"http://localhost:8080"`
	DataDir  string `envconfig:"SATS_DATA_DIR"`
	Language string `envconfig:"SATS_LANG"`
	LogLevel string `envconfig:"SATS_LOG_LEVEL" default:"info"`

	TypeInterval   time.Duration `envconfig:"SATS_TYPE_INTERVAL" default:"25ms"`
	StepDelay      time.Duration `envconfig:"SATS_STEP_DELAY" default:"900ms"`
	ReturnDebounce time.Duration `envconfig:"SATS_RETURN_DEBOUNCE" default:"600ms"`
	ReturnTimeout  time.Duration `envconfig:"SATS_RETURN_TIMEOUT" default:"45s"`
	APITimeout     time.Duration `envconfig:"SATS_API_TIMEOUT" default:"5s"`
}

// StorePath - путь к локальному файлу состояния.
func (c *TerminalConfig) StorePath() string {
	return filepath.Join(c.DataDir, "terminal.db")
}

// LogPath - путь к файлу лога (stdout занят интерфейсом).
func (c *TerminalConfig) LogPath() string {
	return filepath.Join(c.DataDir, "terminal.log")
}

// LoadTerminalConfig читает переменные окружения, затем флаги командной строки.
func LoadTerminalConfig(args []string) (*TerminalConfig, error) {
	var cfg TerminalConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации терминала: %w", err)
	}

	fs := flag.NewFlagSet("terminal", flag.ContinueOnError)
	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "base URL of the progress API")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for local state and logs")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "script language")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("не удалось определить каталог данных: %w", err)
		}
		cfg.DataDir = filepath.Join(base, "sats-terminal")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог данных %s: %w", cfg.DataDir, err)
	}
	return &cfg, nil
}
