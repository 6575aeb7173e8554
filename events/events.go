// Package events publishes rating change notifications
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Reasons attached to RatingChanged
const (
	ReasonReviewCreated = "review.created"
	ReasonReviewUpdated = "review.updated"
	ReasonReviewDeleted = "review.deleted"
	ReasonReconcile     = "reconcile"
)

// RatingChanged is emitted after a movie's aggregate rating has been rewritten
type RatingChanged struct {
	MovieID     uint      `json:"movie_id"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
}

// Publisher delivers rating events
type Publisher interface {
	PublishRatingChanged(ctx context.Context, evt RatingChanged) error
}

// Nop drops every event
type Nop struct{}

func (Nop) PublishRatingChanged(context.Context, RatingChanged) error { return nil }

// RatingSubject returns the NATS subject for a movie's rating events
func RatingSubject(movieID uint) string {
	return fmt.Sprintf("movies.%d.rating", movieID)
}

// RatingWildcard matches the rating subject of every movie
const RatingWildcard = "movies.*.rating"

// ParseRatingSubject extracts the movie id from a rating subject
func ParseRatingSubject(subject string) (uint, error) {
	parts := strings.Split(subject, ".")
	if len(parts) != 3 || parts[0] != "movies" || parts[2] != "rating" {
		return 0, fmt.Errorf("invalid rating subject: %s", subject)
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid movie id in subject %s: %w", subject, err)
	}
	return uint(id), nil
}

// NATSPublisher publishes events as JSON on the core NATS connection
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher wraps an established connection
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func (p *NATSPublisher) PublishRatingChanged(ctx context.Context, evt RatingChanged) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode rating event: %w", err)
	}
	if err := p.conn.Publish(RatingSubject(evt.MovieID), data); err != nil {
		return fmt.Errorf("publish rating event: %w", err)
	}
	return nil
}
