package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/events"
	"github.com/irisdrone/moviedb/metrics"
)

// MeanRating is the arithmetic mean of ratings, 0 when there are none
func MeanRating(ratings []float64) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return sum / float64(len(ratings))
}

// RatingService keeps Movie.Rating equal to the mean of the movie's reviews
type RatingService struct {
	store     Store
	publisher events.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewRatingService builds the aggregator. A nil publisher disables events.
func NewRatingService(store Store, publisher events.Publisher, log zerolog.Logger) *RatingService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &RatingService{
		store:     store,
		publisher: publisher,
		log:       log.With().Str("component", "ratings").Logger(),
		now:       time.Now,
	}
}

// Recompute rewrites the movie's rating from its current reviews. It must run
// on the transaction that performed the review mutation.
func (s *RatingService) Recompute(ctx context.Context, tx Store, movieID uint) (float64, int, error) {
	ratings, err := tx.ReviewRatings(ctx, movieID)
	if err != nil {
		return 0, 0, fmt.Errorf("load ratings for movie %d: %w", movieID, err)
	}
	mean := MeanRating(ratings)
	if err := tx.SetMovieRating(ctx, movieID, mean); err != nil {
		return 0, 0, fmt.Errorf("store rating for movie %d: %w", movieID, err)
	}
	metrics.RecordRatingRecompute()
	return mean, len(ratings), nil
}

// ReconcileAll recomputes every movie, one transaction per movie. It returns
// the number of movies whose stored rating changed.
func (s *RatingService) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.store.ListMovieIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list movies: %w", err)
	}

	changed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return changed, err
		}

		var before, after float64
		var count int
		err := s.store.Transaction(ctx, func(tx Store) error {
			movie, err := tx.LockMovie(ctx, id)
			if err != nil {
				return err
			}
			before = movie.Rating
			after, count, err = s.Recompute(ctx, tx, id)
			return err
		})
		if err != nil {
			return changed, fmt.Errorf("reconcile movie %d: %w", id, err)
		}

		if before != after {
			changed++
			s.log.Info().Uint("movie_id", id).Float64("from", before).Float64("to", after).Msg("rating reconciled")
			s.publish(ctx, id, after, count, events.ReasonReconcile)
		}
	}
	return changed, nil
}

// publish is best effort, the mutation is already committed
func (s *RatingService) publish(ctx context.Context, movieID uint, rating float64, count int, reason string) {
	evt := events.RatingChanged{
		MovieID:     movieID,
		Rating:      rating,
		ReviewCount: count,
		Reason:      reason,
		At:          s.now().UTC(),
	}
	if err := s.publisher.PublishRatingChanged(ctx, evt); err != nil {
		s.log.Warn().Err(err).Uint("movie_id", movieID).Str("reason", reason).Msg("failed to publish rating event")
	}
}
