package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/therealtin05/SmartParking/internal/adapters/http"
	"github.com/therealtin05/SmartParking/internal/alpr"
	"github.com/therealtin05/SmartParking/internal/app"
	"github.com/therealtin05/SmartParking/internal/config"
	"github.com/therealtin05/SmartParking/internal/store"
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

	// The record store is a decoupled collaborator: if Redis is down the
	// relay still runs, it just stops persisting records.
	var recordStore store.RecordStore
	if cfg.RedisURL != "" {
		rOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("bad redis url, record store disabled")
		} else {
			rdb := redis.NewClient(rOpts)
			pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				log.Error().Err(err).Msg("redis unreachable, record store disabled")
			} else {
				recordStore = store.NewRedisStore(rdb)
			}
			pingCancel()
		}
	}

	registry := app.NewRegistry()
	dispatcher := app.NewDispatcher(registry, recordStore)
	bridge := alpr.NewBridge(cfg.Worker)

	r := router.SetupRouter(ctx, cfg, &router.Deps{
		Registry:   registry,
		Dispatcher: dispatcher,
		Bridge:     bridge,
		Store:      recordStore,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("SmartParking server started")
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
