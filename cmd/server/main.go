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

	"github.com/dkeye/Parley/internal/adapters/ws"
	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/config"
	"github.com/dkeye/Parley/internal/store"
	"github.com/dkeye/Parley/internal/transport/tcp"
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
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}

	router := app.NewRouter(
		store.NewCredentials(db),
		store.NewRooms(db),
		store.NewMessages(db),
	)
	router.SetHistoryLimit(cfg.HistoryLimit)

	srv, err := tcp.NewServer(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), router, tcp.Options{
		SendQueue:    cfg.SendQueue,
		ReadLimit:    cfg.ReadLimit,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bind")
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("Parley server started")
		errc <- srv.Run(ctx)
	}()

	var web *http.Server
	if cfg.WSPort > 0 {
		ctl := ws.NewController(router, ws.Options{
			SendQueue:    cfg.SendQueue,
			ReadLimit:    int64(cfg.ReadLimit),
			WriteTimeout: cfg.WriteTimeout,
		})
		web = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.WSPort),
			Handler: ws.SetupRouter(cfg.Mode, ctl),
		}
		go func() {
			log.Info().Int("port", cfg.WSPort).Msg("websocket bridge started")
			if err := web.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("websocket bridge error")
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}

	log.Info().Msg("Shutting down")
	if web != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := web.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("bridge forced to shutdown")
		}
	}
	cancel()
	log.Info().Msg("Server exited")
}
