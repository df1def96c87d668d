// Twinotterd serves the MASIN flight core read-only over HTTP, with a
// WebSocket stream of load and derive events. Shutdown is graceful on
// SIGINT or SIGTERM.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/eurec4a/twinotter/internal/app"
	"github.com/eurec4a/twinotter/internal/config"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/twinotter/twinotter.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (default: server.bind)")
		dataRoot   = pflag.String("data", "", "Override data.root")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *dataRoot != "" {
		cfg.Data.Root = *dataRoot
	}

	logger := log.New(os.Stdout, "twinotterd ", log.LstdFlags|log.Lmicroseconds)

	a, err := app.New(app.Options{
		Logger:     logger,
		Cfg:        cfg,
		Bind:       *bind,
		ConfigPath: *configPath,
	})
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Fatalf("twinotterd failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
