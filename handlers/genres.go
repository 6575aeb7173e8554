package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irisdrone/moviedb/services"
)

// ListGenres handles GET /api/genres
func (h *Handler) ListGenres(c *gin.Context) {
	genres, err := h.genres.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    genres,
		"count":   len(genres),
	})
}

// GetGenre handles GET /api/genres/:id
func (h *Handler) GetGenre(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	genre, err := h.genres.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, genre)
}

// CreateGenre handles POST /api/genres
func (h *Handler) CreateGenre(c *gin.Context) {
	var req services.GenreInput
	if !h.bindJSON(c, &req) {
		return
	}

	genre, err := h.genres.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Genre created",
		"id":      genre.ID,
	})
}

// UpdateGenre handles PUT /api/genres/:id
func (h *Handler) UpdateGenre(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req services.GenreUpdate
	if !h.bindJSON(c, &req) {
		return
	}

	genre, err := h.genres.Update(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Genre updated",
		"genre":   genre,
	})
}

// DeleteGenre handles DELETE /api/genres/:id
func (h *Handler) DeleteGenre(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.genres.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Genre deleted",
	})
}

// GetMovieGenres handles GET /api/movies/:id/genres
func (h *Handler) GetMovieGenres(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	genres, err := h.movies.Genres(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"genres":  genres,
		"count":   len(genres),
	})
}

// AddMovieGenres handles POST /api/movies/:id/genres
func (h *Handler) AddMovieGenres(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req services.MovieGenresInput
	if !h.bindJSON(c, &req) {
		return
	}

	added, genres, err := h.movies.AddGenres(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": fmt.Sprintf("Added %d genres to movie", added),
		"added":   added,
		"genres":  genres,
	})
}

// ReplaceMovieGenres handles PUT /api/movies/:id/genres
func (h *Handler) ReplaceMovieGenres(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req services.MovieGenresInput
	if !h.bindJSON(c, &req) {
		return
	}

	genres, err := h.movies.ReplaceGenres(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Movie genres updated",
		"genres":  genres,
		"count":   len(genres),
	})
}

// RemoveMovieGenre handles DELETE /api/movies/:id/genres/:genre_id
func (h *Handler) RemoveMovieGenre(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	genreID, ok := h.pathID(c, "genre_id")
	if !ok {
		return
	}

	if err := h.movies.RemoveGenre(c.Request.Context(), principal(c), id, genreID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Genre removed from movie",
	})
}
