package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/config"
	"github.com/irisdrone/moviedb/database"
	"github.com/irisdrone/moviedb/events"
	"github.com/irisdrone/moviedb/logger"
	"github.com/irisdrone/moviedb/services"
)

// Recomputes every movie rating from its reviews and publishes a reconcile
// event for each movie that had drifted.
func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.LogLevel, true)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("reconcile aborted")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	store, closeStore, err := database.OpenStore(cfg.DatabaseURL, log, false)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}()

	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL, nats.Name("moviedb-reconcile"))
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer func() {
			if err := conn.Drain(); err != nil {
				log.Warn().Err(err).Msg("failed to drain NATS connection")
			}
		}()
		publisher = events.NewNATSPublisher(conn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changed, err := services.NewRatingService(store, publisher, log).ReconcileAll(ctx)
	if err != nil {
		return fmt.Errorf("after %d changed ratings: %w", changed, err)
	}
	log.Info().Int("changed", changed).Msg("reconcile complete")
	return nil
}
