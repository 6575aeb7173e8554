package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/irisdrone/moviedb/logger"
	"github.com/irisdrone/moviedb/models"
)

const connectTimeout = 10 * time.Second

// Connect opens the postgres connection, verifies it and migrates the schema
func Connect(databaseURL string, log zerolog.Logger, verbose bool) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Gorm(log, verbose),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	log.Info().Msg("database connected")

	if err := AutoMigrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the users, genres, movies, movie_genres and reviews tables
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Movie{}, "Genres", &models.MovieGenre{}); err != nil {
		return fmt.Errorf("setup movie_genres join table: %w", err)
	}
	return db.AutoMigrate(
		&models.User{},
		&models.Genre{},
		&models.Movie{},
		&models.Review{},
	)
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
