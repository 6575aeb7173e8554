package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/auth"
	"github.com/irisdrone/moviedb/config"
	"github.com/irisdrone/moviedb/database"
	"github.com/irisdrone/moviedb/events"
	"github.com/irisdrone/moviedb/handlers"
	"github.com/irisdrone/moviedb/logger"
	"github.com/irisdrone/moviedb/natsserver"
	"github.com/irisdrone/moviedb/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", true)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, !cfg.IsProduction())

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	store, closeStore, err := database.OpenStore(cfg.DatabaseURL, log, cfg.LogLevel == "debug")
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.TokenTTL)
	if err != nil {
		return err
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	// Rating events: embedded NATS, an external NATS, or nothing
	var (
		publisher   events.Publisher = events.Nop{}
		hub         *services.RatingHub
		brokerStats func() interface{}
	)
	if cfg.LiveFeedEnabled() {
		conn, shutdown, stats, err := connectNATS(cfg, log)
		if err != nil {
			return err
		}
		defer shutdown()

		publisher = events.NewNATSPublisher(conn)
		hub = services.NewRatingHub(conn, log)
		defer hub.Close()
		brokerStats = stats
		log.Info().Msg("live rating feed enabled")
	}

	ratings := services.NewRatingService(store, publisher, log)
	h := handlers.New(handlers.Deps{
		Auth:           services.NewAuthService(store, hasher, tokens, cfg.RoleSource, log),
		Movies:         services.NewMovieService(store, log),
		Reviews:        services.NewReviewService(store, ratings, log),
		Genres:         services.NewGenreService(store, log),
		Store:          store,
		Hub:            hub,
		BrokerStats:    brokerStats,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// connectNATS starts the embedded broker or dials NATS_URL
func connectNATS(cfg config.Config, log zerolog.Logger) (*nats.Conn, func(), func() interface{}, error) {
	if cfg.NATSEmbedded {
		natsCfg := natsserver.DefaultConfig()
		natsCfg.Port = cfg.NATSPort
		ns, err := natsserver.New(natsCfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return ns.Conn(), ns.Shutdown, func() interface{} { return ns.GetStats() }, nil
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("moviedb"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Info().Str("url", cfg.NATSURL).Msg("connected to NATS")
	return conn, conn.Close, func() interface{} { return conn.Stats() }, nil
}
