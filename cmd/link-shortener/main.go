package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/link-shortener/internal/app"
	"github.com/vadimbarashkov/link-shortener/internal/config"
)

const defaultConfigPath = "./configs/local.yml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Env)

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("application stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func newLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel:        slog.LevelDebug,
		Concise:         true,
		RequestHeaders:  false,
		TimeFieldFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	if env == config.EnvProd {
		opts.JSON = true
		opts.Concise = false
		opts.LogLevel = slog.LevelInfo
	}

	return httplog.NewLogger("link-shortener", opts)
}
