package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/victornm/equiz-client/internal/app"
	"github.com/victornm/equiz-client/internal/config"
	"github.com/victornm/equiz-client/internal/telemetry"
)

func main() {
	c, err := loadConfig()
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	logs, err := telemetry.SetupLogger(c.Log)
	if err != nil {
		log.Fatalf("Setup logger failed: %v", err)
	}
	defer logs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	a, err := app.Init(c, app.IO{In: os.Stdin, Out: os.Stdout, AltScreen: true})
	if err != nil {
		log.Fatalf("Init app failed: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "app: stopped with error", "error", err)
	}
	a.Shutdown()
}

// loadConfig reads the file at CONFIG_PATH when set. Every key can be overridden by the environment.
func loadConfig() (app.Config, error) {
	c := app.DefaultConfig()

	if err := config.Load(os.Getenv("CONFIG_PATH"), &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}
