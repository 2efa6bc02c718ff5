package handler

import (
	"net/http"

	"senha-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	tickets service.TicketService
	calls   service.CallService
}

func NewQueueHandler(tickets service.TicketService, calls service.CallService) *QueueHandler {
	return &QueueHandler{tickets: tickets, calls: calls}
}

func (h *QueueHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("queues/:id", h.GetSnapshot)
		router.PUT("queues/:id/call-next", h.CallNext)
	}
}

func (h *QueueHandler) GetSnapshot(c *gin.Context) {
	queueID, err := ParamID(c, "id")
	if err != nil {
		return
	}

	snapshot, err := h.tickets.Snapshot(c, queueID)
	if err != nil {
		handleError(c, err, "GetSnapshot")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *QueueHandler) CallNext(c *gin.Context) {
	queueID, err := ParamID(c, "id")
	if err != nil {
		return
	}

	ticket, err := h.calls.CallNext(c, queueID)
	if err != nil {
		handleError(c, err, "CallNext")
		return
	}
	c.JSON(http.StatusOK, ticket)
}
