package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "dmrelay/internal/adapters/http"
	"dmrelay/internal/adapters/ws"
	"dmrelay/internal/app"
	"dmrelay/internal/config"
	"dmrelay/internal/core"
	"dmrelay/internal/identity"
	"dmrelay/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open message store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("closing message store")
		}
	}()

	var verifier identity.Verifier
	if cfg.Secret == "" {
		log.Warn().Msg("no secret configured, using static identity (dev only)")
		verifier = identity.StaticVerifier{}
	} else {
		verifier = identity.NewJWTVerifier(cfg.Secret)
	}

	presence := core.NewPresence()
	members := core.NewMembership()
	roster := app.NewRoster()

	sup := &app.Supervisor{Presence: presence, Members: members, Roster: roster}
	messages := &app.MessageRelay{Store: store, Members: members, Roster: roster}
	typing := &app.TypingRelay{Members: members, Roster: roster}

	ctl := ws.NewController(cfg, sup, messages, typing, verifier)
	r := router.SetupRouter(ctx, cfg, ctl, store)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("dmrelay server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
