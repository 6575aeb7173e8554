package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/auth"
	"github.com/irisdrone/moviedb/config"
	"github.com/irisdrone/moviedb/database"
	"github.com/irisdrone/moviedb/logger"
	"github.com/irisdrone/moviedb/services"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <username>\n\nGrants the admin role to an existing user.\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	username := flag.Arg(0)

	cfg, err := config.Load()
	log := logger.New(cfg.LogLevel, true)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := run(cfg, log, username); err != nil {
		log.Fatal().Err(err).Str("username", username).Msg("failed to promote user")
	}
	fmt.Printf("User %s is now an admin\n", username)
}

func run(cfg config.Config, log zerolog.Logger, username string) error {
	store, closeStore, err := database.OpenStore(cfg.DatabaseURL, log, false)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token settings: %w", err)
	}
	authSvc := services.NewAuthService(store, auth.NewPasswordHasher(cfg.BcryptCost), tokens, cfg.RoleSource, log)
	return authSvc.Promote(context.Background(), username)
}
