package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/events"
	"github.com/irisdrone/moviedb/metrics"
	"github.com/irisdrone/moviedb/models"
)

// ReviewService manages reviews. Every mutation recomputes the movie rating
// in the same transaction, with the movie row locked.
type ReviewService struct {
	store   Store
	ratings *RatingService
	log     zerolog.Logger
}

func NewReviewService(store Store, ratings *RatingService, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		store:   store,
		ratings: ratings,
		log:     log.With().Str("component", "reviews").Logger(),
	}
}

// ratingResult is captured inside the transaction and published after commit
type ratingResult struct {
	movieID uint
	rating  float64
	count   int
}

// Get returns a single review with its author
func (s *ReviewService) Get(ctx context.Context, id uint) (*models.Review, error) {
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, reviewErr(err)
	}
	return review, nil
}

// ListForMovie returns the reviews of an existing movie
func (s *ReviewService) ListForMovie(ctx context.Context, movieID uint) ([]models.Review, error) {
	if _, err := s.store.GetMovie(ctx, movieID); err != nil {
		return nil, movieErr(err)
	}
	reviews, err := s.store.ListReviews(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// Create posts the principal's review of a movie. A second review of the same
// movie by the same user is a conflict.
func (s *ReviewService) Create(ctx context.Context, p *Principal, in ReviewInput) (*models.Review, error) {
	review, err := s.create(ctx, p, in)
	metrics.RecordReviewMutation("create", outcome(err))
	return review, err
}

func (s *ReviewService) create(ctx context.Context, p *Principal, in ReviewInput) (*models.Review, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	review := &models.Review{
		MovieID: in.MovieID,
		UserID:  p.UserID,
		Rating:  in.Rating,
		Comment: in.Comment,
	}
	var result ratingResult
	err := s.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.LockMovie(ctx, in.MovieID); err != nil {
			return movieErr(err)
		}
		if _, err := tx.FindReview(ctx, in.MovieID, p.UserID); err == nil {
			return conflict("You have already reviewed this movie")
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("lookup review: %w", err)
		}

		if err := tx.CreateReview(ctx, review); err != nil {
			switch {
			case errors.Is(err, ErrConflict):
				return conflict("You have already reviewed this movie")
			case errors.Is(err, ErrNotFound):
				return notFound("Movie not found")
			}
			return fmt.Errorf("create review: %w", err)
		}
		return s.recompute(ctx, tx, in.MovieID, &result)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("review_id", review.ID).Uint("movie_id", review.MovieID).Uint("user_id", p.UserID).Msg("review created")
	s.ratings.publish(ctx, result.movieID, result.rating, result.count, events.ReasonReviewCreated)
	return review, nil
}

// Update changes the author's own review
func (s *ReviewService) Update(ctx context.Context, p *Principal, id uint, in ReviewUpdate) (*models.Review, error) {
	review, err := s.update(ctx, p, id, in)
	metrics.RecordReviewMutation("update", outcome(err))
	return review, err
}

func (s *ReviewService) update(ctx context.Context, p *Principal, id uint, in ReviewUpdate) (*models.Review, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	var updated *models.Review
	var result ratingResult
	err := s.store.Transaction(ctx, func(tx Store) error {
		review, err := s.lockReview(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := requireAuthor(p, review, "update"); err != nil {
			return err
		}

		if in.Rating != nil {
			review.Rating = *in.Rating
		}
		if in.Comment != nil {
			review.Comment = in.Comment
		}
		if err := tx.SaveReview(ctx, review); err != nil {
			return reviewErr(err)
		}
		updated = review
		return s.recompute(ctx, tx, review.MovieID, &result)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("review_id", id).Uint("movie_id", updated.MovieID).Uint("user_id", p.UserID).Msg("review updated")
	s.ratings.publish(ctx, result.movieID, result.rating, result.count, events.ReasonReviewUpdated)
	return updated, nil
}

// Delete removes the author's own review
func (s *ReviewService) Delete(ctx context.Context, p *Principal, id uint) error {
	err := s.delete(ctx, p, id)
	metrics.RecordReviewMutation("delete", outcome(err))
	return err
}

func (s *ReviewService) delete(ctx context.Context, p *Principal, id uint) error {
	if err := requireUser(p); err != nil {
		return err
	}

	var result ratingResult
	err := s.store.Transaction(ctx, func(tx Store) error {
		review, err := s.lockReview(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := requireAuthor(p, review, "delete"); err != nil {
			return err
		}
		if err := tx.DeleteReview(ctx, id); err != nil {
			return reviewErr(err)
		}
		return s.recompute(ctx, tx, review.MovieID, &result)
	})
	if err != nil {
		return err
	}

	s.log.Info().Uint("review_id", id).Uint("movie_id", result.movieID).Uint("user_id", p.UserID).Msg("review deleted")
	s.ratings.publish(ctx, result.movieID, result.rating, result.count, events.ReasonReviewDeleted)
	return nil
}

// lockReview locks the review's movie and then reloads the review, so the
// returned row cannot change until the transaction ends.
func (s *ReviewService) lockReview(ctx context.Context, tx Store, id uint) (*models.Review, error) {
	review, err := tx.GetReview(ctx, id)
	if err != nil {
		return nil, reviewErr(err)
	}
	if _, err := tx.LockMovie(ctx, review.MovieID); err != nil {
		return nil, movieErr(err)
	}
	review, err = tx.GetReview(ctx, id)
	if err != nil {
		return nil, reviewErr(err)
	}
	// the author is loaded for reads only
	review.Author = nil
	return review, nil
}

func (s *ReviewService) recompute(ctx context.Context, tx Store, movieID uint, out *ratingResult) error {
	rating, count, err := s.ratings.Recompute(ctx, tx, movieID)
	if err != nil {
		return err
	}
	*out = ratingResult{movieID: movieID, rating: rating, count: count}
	return nil
}

func reviewErr(err error) error {
	var derr *Error
	if errors.As(err, &derr) {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		return notFound("Review not found")
	}
	return fmt.Errorf("load review: %w", err)
}
