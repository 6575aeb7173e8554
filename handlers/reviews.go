package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irisdrone/moviedb/services"
)

// GetReview handles GET /api/reviews/:id
func (h *Handler) GetReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	review, err := h.reviews.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// CreateReview handles POST /api/reviews
func (h *Handler) CreateReview(c *gin.Context) {
	var req services.ReviewInput
	if !h.bindJSON(c, &req) {
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Review created",
		"id":      review.ID,
	})
}

// UpdateReview handles PUT /api/reviews/:id
func (h *Handler) UpdateReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req services.ReviewUpdate
	if !h.bindJSON(c, &req) {
		return
	}

	review, err := h.reviews.Update(c.Request.Context(), principal(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Review updated",
		"review":  review,
	})
}

// DeleteReview handles DELETE /api/reviews/:id
func (h *Handler) DeleteReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.reviews.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Review deleted",
	})
}
