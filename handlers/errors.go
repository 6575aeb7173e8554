package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/irisdrone/moviedb/services"
)

func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Validation failed",
			"details": verr.Details(),
		})
		return
	}

	var derr *services.Error
	if errors.As(err, &derr) {
		c.JSON(statusFor(derr.Kind), gin.H{"error": derr.Message})
		return
	}

	h.log.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("request_id", c.GetString(requestIDKey)).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func statusFor(kind error) int {
	switch kind {
	case services.ErrValidation:
		return http.StatusUnprocessableEntity
	case services.ErrNotFound:
		return http.StatusNotFound
	case services.ErrConflict:
		return http.StatusConflict
	case services.ErrUnauthorized:
		return http.StatusUnauthorized
	case services.ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// bindJSON decodes the body. Malformed JSON is a 400, a value of the wrong
// type for a field is a validation failure.
func (h *Handler) bindJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		h.respondError(c, services.Invalid(typeErr.Field, "type",
			fmt.Sprintf("%s must be a %s", typeErr.Field, jsonKind(typeErr.Type.Kind().String()))))
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
	return false
}

func jsonKind(kind string) string {
	switch kind {
	case "string":
		return "string"
	case "float32", "float64":
		return "number"
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return "integer"
	case "ptr":
		return "value of the expected type"
	default:
		return kind
	}
}

// pathID parses a positive integer path parameter
func (h *Handler) pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		h.respondError(c, services.Invalid(name, "id", name+" must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

// queryInt reads an optional integer query parameter
func (h *Handler) queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		h.respondError(c, services.Invalid(name, "integer", name+" must be an integer"))
		return 0, false
	}
	return v, true
}
