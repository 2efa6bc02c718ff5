package handler

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "senha-engine/pkg/app_errors"
	"senha-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func ParamID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid id",
		})
		return 0, err
	}
	return id, nil
}

// handleError maps the precondition taxonomy onto HTTP statuses. A full
// queue additionally carries the alternative queue suggestions.
func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	var full *apperrors.QueueFullError
	if errors.As(err, &full) {
		log.Warn("queue full")
		c.JSON(http.StatusConflict, gin.H{
			"error":        "Queue reached its daily limit",
			"alternatives": full.Alternatives,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrQueueNotFound),
		errors.Is(err, apperrors.ErrTicketNotFound),
		errors.Is(err, apperrors.ErrBranchNotFound):
		log.Warn("not found")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNoPendingTicket):
		log.Info("no pending ticket")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotOwner),
		errors.Is(err, apperrors.ErrTooFar):
		log.Warn("forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrQueueClosed),
		errors.Is(err, apperrors.ErrQueueFull),
		errors.Is(err, apperrors.ErrDuplicateActiveTicket),
		errors.Is(err, apperrors.ErrInvalidState),
		errors.Is(err, apperrors.ErrNotTradeable),
		errors.Is(err, apperrors.ErrQueueMismatch):
		log.Warn("precondition failed")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
