package models

import (
	"time"
)

// Genre is a catalogue label movies are tagged with. Common genres are the
// ones offered as quick filters.
type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Common    bool      `gorm:"not null;default:false" json:"common"`
	CreatedAt time.Time `json:"created_at"`
}

func (Genre) TableName() string {
	return "genres"
}

// MovieGenre is the join row of Movie.Genres
type MovieGenre struct {
	MovieID   uint `gorm:"primaryKey;autoIncrement:false"`
	GenreID   uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

func (MovieGenre) TableName() string {
	return "movie_genres"
}
