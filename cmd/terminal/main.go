package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sats-terminal/internal/apiclient"
	"sats-terminal/internal/bridge"
	"sats-terminal/internal/config"
	"sats-terminal/internal/funnel"
	"sats-terminal/internal/kvstore"
	"sats-terminal/internal/logger"
	"sats-terminal/internal/navigator"
	"sats-terminal/internal/progression"
	"sats-terminal/internal/script"
	"sats-terminal/internal/state"
	"sats-terminal/internal/tui"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadTerminalConfig(os.Args[1:])
	if err != nil {
		return err
	}

	// stdout принадлежит интерфейсу, лог пишем в файл
	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "json", OutputPath: cfg.LogPath()})
	if err != nil {
		return fmt.Errorf("не удалось инициализировать логгер: %w", err)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := kvstore.NewSQLite(cfg.StorePath())
	if err != nil {
		return fmt.Errorf("не удалось открыть локальное хранилище: %w", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	lang := cfg.Language
	if lang == "" {
		if stored, ok, err := store.Get(ctx, bridge.KeyLanguage); err == nil && ok {
			lang = stored
		}
	}
	if lang == "" {
		lang = script.DefaultLanguage
	}
	sc, err := script.Load(lang)
	if err != nil {
		return err
	}

	var backend bridge.Backend
	var sessions funnel.Sessions
	client, err := apiclient.New(cfg.APIURL, cfg.APITimeout, appLogger)
	if err != nil {
		appLogger.Warn("Backend disabled, running offline", zap.String("apiURL", cfg.APIURL), zap.Error(err))
	} else {
		backend, sessions = client, client
	}

	br := bridge.New(ctx, store, backend, sc, appLogger, bridge.Options{CallTimeout: cfg.APITimeout})
	defer br.Close()
	br.SetLanguage(lang)

	resume := br.Resolve(ctx)
	appLogger.Info("Terminal starting",
		zap.String("lang", lang),
		zap.String("resume", string(resume.Source)),
		zap.String("dataDir", cfg.DataDir),
	)

	nav := navigator.NewChain(navigator.NewSystem(), navigator.NewClipboard(), appLogger)

	f := funnel.New(ctx, sc, progression.Config{
		TypeInterval:   cfg.TypeInterval,
		StepDelay:      cfg.StepDelay,
		NoticeDuration: progression.DefaultConfig().NoticeDuration,
		ReturnDebounce: cfg.ReturnDebounce,
		ReturnTimeout:  cfg.ReturnTimeout,
	}, progression.Deps{
		Persister: br,
		Skills:    br,
		Tracker:   br,
		Navigator: nav,
		Logger:    appLogger,
	}, funnel.Options{
		Sessions:     sessions,
		Resume:       func() *state.Snapshot { return br.Resolve(ctx).Snapshot },
		Claimed:      br.SatsClaimed,
		EarnedSkills: br.EarnedSkills,
		Logger:       appLogger,
	})
	defer f.Close()
	f.Start(resume.Snapshot, time.Now())

	model := tui.New(f, time.Now)
	nav.OnFallback = func(string) {
		model.Flash("Link copied to clipboard. Paste it into your wallet app.")
	}

	if err := tui.Run(ctx, model); err != nil {
		return fmt.Errorf("ошибка интерфейса: %w", err)
	}
	appLogger.Info("Terminal stopped")
	return nil
}
