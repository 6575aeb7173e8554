package models

import (
	"time"
)

// Movie model. Rating is the mean of the movie's review ratings and is only
// written by rating recomputation.
type Movie struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description *string   `gorm:"size:2000" json:"description"`
	Year        *int      `json:"year"`
	Director    *string   `gorm:"size:255" json:"director"`
	Rating      float64   `gorm:"type:double precision;not null;default:0" json:"rating"`
	CreatedBy   uint      `gorm:"index;not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Reviews []Review `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE" json:"-"`
	Genres  []Genre  `gorm:"many2many:movie_genres" json:"-"`
}

func (Movie) TableName() string {
	return "movies"
}

// Review model. One review per (movie, author) is enforced by a unique index.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MovieID   uint      `gorm:"not null;uniqueIndex:idx_reviews_movie_user" json:"movie_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_reviews_movie_user;index" json:"user_id"`
	Rating    float64   `gorm:"type:double precision;not null" json:"rating"`
	Comment   *string   `gorm:"size:1000" json:"comment"`
	CreatedAt time.Time `json:"created_at"`

	Author *User `gorm:"foreignKey:UserID" json:"author,omitempty"`
}

func (Review) TableName() string {
	return "reviews"
}
