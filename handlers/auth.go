package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irisdrone/moviedb/services"
)

func authResponse(message string, res *services.AuthResult) gin.H {
	return gin.H{
		"success":    true,
		"message":    message,
		"token":      res.Token,
		"token_type": res.TokenType,
		"expires_at": res.ExpiresAt,
		"user":       res.User,
	}
}

// Register handles POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse("User registered successfully", res))
}

// Login handles POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req services.LoginInput
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse("Login successful", res))
}

// Me handles GET /api/auth/me
func (h *Handler) Me(c *gin.Context) {
	user, err := h.auth.CurrentUser(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
