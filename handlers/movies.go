package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irisdrone/moviedb/services"
)

// ListMovies handles GET /api/movies?skip=&limit=
func (h *Handler) ListMovies(c *gin.Context) {
	skip, ok := h.queryInt(c, "skip", 0)
	if !ok {
		return
	}
	limit, ok := h.queryInt(c, "limit", services.DefaultListLimit)
	if !ok {
		return
	}

	movies, err := h.movies.List(c.Request.Context(), services.ListParams{Skip: skip, Limit: limit})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movies)
}

// GetMovie handles GET /api/movies/:id
func (h *Handler) GetMovie(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	movie, err := h.movies.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movie)
}

// ListMovieReviews handles GET /api/movies/:id/reviews
func (h *Handler) ListMovieReviews(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	reviews, err := h.reviews.ListForMovie(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// CreateMovie handles POST /api/movies
func (h *Handler) CreateMovie(c *gin.Context) {
	var req services.MovieInput
	if !h.bindJSON(c, &req) {
		return
	}

	movie, err := h.movies.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Movie created",
		"id":      movie.ID,
	})
}

// UpdateMovie handles PUT /api/movies/:id
func (h *Handler) UpdateMovie(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req services.MovieUpdate
	if !h.bindJSON(c, &req) {
		return
	}

	movie, err := h.movies.Update(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Movie updated",
		"movie":   movie,
	})
}

// DeleteMovie handles DELETE /api/movies/:id
func (h *Handler) DeleteMovie(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.movies.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Movie deleted",
	})
}
