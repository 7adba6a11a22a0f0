package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/game/progression"
)

// writeProgressionError maps progression errors to HTTP responses.
// Validation failures are the caller's fault (400), missing rows are 404,
// and an exhausted retry budget is reported as 409 so clients retry.
func writeProgressionError(c *gin.Context, err error) {
	switch {
	case progression.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, progression.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, progression.ErrTransient):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
