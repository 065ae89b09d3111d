package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/accountly/bank_ledger_app/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP responses with a consistent body.
func respondError(c *gin.Context, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("Duplicate resource", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		logger.Warn("State conflict", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Internal error", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

// operatorFrom identifies the acting operator. Authentication lives outside
// this service; upstream infrastructure sets the header.
func operatorFrom(c *gin.Context) string {
	if op := c.GetHeader("X-Operator"); op != "" {
		return op
	}
	return "system"
}
