package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DevN0mad/FreedcampMCP/internal/config"
	"github.com/DevN0mad/FreedcampMCP/internal/core"
)

var version = "dev"

var (
	configPath = flag.String("config", "", "Путь к файлу с конфигурацией (необязательно)")
	transport  = flag.String("transport", "", "Транспорт MCP: stdio или http (перекрывает конфигурацию)")
)

func main() {
	flag.Parse()
	if *transport != "" {
		os.Setenv("FCMCP_TRANSPORT_MODE", *transport)
	}

	// stdout занят протоколом, до чтения конфигурации пишем в stderr
	var level slog.LevelVar
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgMgr, err := config.NewManager(*configPath, bootLogger)
	if err != nil {
		bootLogger.Error("Failed to init config manager", "error", err)
		os.Exit(1)
	}

	cfg := cfgMgr.Current()
	logger := config.NewLogger(logOutput(cfg), cfg.Log, &level)

	app := core.NewApp(ctx, logger, version)

	if err := app.ApplyConfig(cfg); err != nil {
		logger.Error("Failed to apply initial config", "error", err)
		os.Exit(1)
	}

	cfgMgr.OnChange(func(newCfg config.Config) {
		level.Set(newCfg.Log.SlogLevel())
		if err := app.ApplyConfig(newCfg); err != nil {
			logger.Error("Failed to apply new config", "error", err)
		}
	})

	if cfg.Transport.Mode == config.ModeStdio {
		done := make(chan error, 1)
		go func() { done <- app.ServeStdio(ctx, os.Stdin, os.Stdout) }()

		select {
		case <-ctx.Done():
			logger.Info("Shutdown requested", "reason", ctx.Err())
		case err := <-done:
			if err != nil {
				logger.Error("Stdio session failed", "error", err)
			}
			logger.Info("Stdio session finished")
		}
	} else {
		<-ctx.Done()
		logger.Info("Shutdown requested", "reason", ctx.Err())
	}

	app.Shutdown()
	logger.Info("Shutdown complete")
}

func logOutput(cfg config.Config) io.Writer {
	if cfg.Transport.Mode == config.ModeStdio {
		return os.Stderr
	}
	return os.Stdout
}
