// Package server wires the conversation service from config and runs it
// behind the HTTP API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/PabloGalante/fairy-agent/internal/adapters/http"
	"github.com/PabloGalante/fairy-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/fairy-agent/internal/app/conversation"
	"github.com/PabloGalante/fairy-agent/internal/app/live"
	"github.com/PabloGalante/fairy-agent/internal/app/logic"
	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/config"
	"github.com/PabloGalante/fairy-agent/internal/observability"
	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

const shutdownTimeout = 10 * time.Second

// NewService builds the in-memory conversation service described by cfg.
func NewService(cfg *config.Config) (*conversation.Service, error) {
	rng := sampling.Global()
	if cfg.Seed != 0 {
		rng = sampling.Locked(sampling.Seeded(cfg.Seed))
	}

	registry, err := logic.NewRegistry(logic.Options{
		Rand:             rng,
		DefaultID:        cfg.DefaultPersonality,
		Override:         cfg.Override,
		EmpathRareChance: cfg.EmpathRareChance,
		AnimateRewrite:   cfg.AnimateRewrite,
	})
	if err != nil {
		return nil, err
	}

	return conversation.NewService(
		memory.NewThreadStore(),
		registry,
		live.NewHub(),
		sequencer.RealClock{Scale: cfg.TimeScale},
		rng,
	), nil
}

// Serve runs the HTTP API until ctx is cancelled, then stops accepting
// requests, cancels running turns and closes live streams.
func Serve(ctx context.Context, cfg *config.Config, svc *conversation.Service) error {
	log := observability.Logger()

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           httpadapter.NewServer(svc),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("fairy api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		svc.Hub().Close()
		err := srv.Shutdown(shutdownCtx)
		return errors.Join(err, svc.Shutdown(shutdownCtx))
	})

	return g.Wait()
}
