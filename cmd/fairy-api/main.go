package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/PabloGalante/fairy-agent/internal/config"
	"github.com/PabloGalante/fairy-agent/internal/observability"
	"github.com/PabloGalante/fairy-agent/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		observability.Logger().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := observability.Setup(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	svc, err := server.NewService(cfg)
	if err != nil {
		log.Error("error initializing conversation service", "error", err)
		os.Exit(1)
	}
	if _, err := svc.Bootstrap(ctx); err != nil {
		log.Error("error creating first thread", "error", err)
		os.Exit(1)
	}

	if err := server.Serve(ctx, cfg, svc); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
