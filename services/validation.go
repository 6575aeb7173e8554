package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// bcrypt ignores everything past 72 bytes and newer x/crypto rejects it
const maxPasswordBytes = 72

// RegisterInput is the self-service signup payload
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,hasupper,bcryptsafe"`
}

// LoginInput identifies a user by email
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MovieInput creates a movie
type MovieInput struct {
	Title       string  `json:"title" validate:"required,min=2,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Year        *int    `json:"year" validate:"omitempty,min=1800,max=2100"`
	Director    *string `json:"director" validate:"omitempty,max=255"`
}

// MovieUpdate changes only the fields that are present
type MovieUpdate struct {
	Title       *string `json:"title" validate:"omitempty,min=2,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Year        *int    `json:"year" validate:"omitempty,min=1800,max=2100"`
	Director    *string `json:"director" validate:"omitempty,max=255"`
}

// ReviewInput creates a review for the acting user
type ReviewInput struct {
	MovieID uint    `json:"movie_id" validate:"required"`
	Rating  float64 `json:"rating" validate:"required,min=1,max=10"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

// ReviewUpdate changes only the fields that are present
type ReviewUpdate struct {
	Rating  *float64 `json:"rating" validate:"omitempty,min=1,max=10"`
	Comment *string  `json:"comment" validate:"omitempty,max=1000"`
}

// GenreInput creates a genre
type GenreInput struct {
	Name   string `json:"name" validate:"required,min=2,max=100"`
	Common bool   `json:"common"`
}

// GenreUpdate changes only the fields that are present
type GenreUpdate struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=100"`
	Common *bool   `json:"common"`
}

// MovieGenresInput lists genre ids to attach to a movie. An empty list is
// valid for a replace and clears the movie's genres.
type MovieGenresInput struct {
	GenreIDs []uint `json:"genre_ids" validate:"required,max=20,dive,min=1"`
}

// ListParams is offset pagination for movie listings
type ListParams struct {
	Skip  int `json:"skip" validate:"min=0"`
	Limit int `json:"limit" validate:"min=1,max=100"`
}

// DefaultListLimit is the page size when the caller sends no limit
const DefaultListLimit = 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "hasupper", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if unicode.IsUpper(r) {
				return true
			}
		}
		return false
	})
	mustRegister(v, "bcryptsafe", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate checks a tagged input struct and returns a *ValidationError on rejection
func Validate(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: describe(fe),
		})
	}
	return out
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if text {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if text {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "hasupper":
		return fmt.Sprintf("%s must contain at least one uppercase letter", field)
	case "bcryptsafe":
		return fmt.Sprintf("%s must be at most %d bytes", field, maxPasswordBytes)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
