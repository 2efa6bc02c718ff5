package handler

import (
	"net/http"

	"senha-engine/internal/geo"
	"senha-engine/internal/notify"

	"github.com/gin-gonic/gin"
)

type SweepHandler struct {
	engine *notify.Engine
}

func NewSweepHandler(engine *notify.Engine) *SweepHandler {
	return &SweepHandler{engine: engine}
}

func (h *SweepHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("sweeps/proximity", h.ProximitySweep)
		router.POST("sweeps/proactive", h.ProactiveSweep)
	}
}

type proximityRequest struct {
	UserID    int64   `json:"user_id" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
	Service   string  `json:"service"`
}

func (h *SweepHandler) ProximitySweep(c *gin.Context) {
	var req proximityRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	point := geo.Point{Latitude: req.Latitude, Longitude: req.Longitude}
	sent, err := h.engine.ProximitySweep(c, req.UserID, point, req.Service)
	if err != nil {
		handleError(c, err, "ProximitySweep")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notified_branches": sent})
}

// ProactiveSweep triggers one reconciliation pass on demand, the same pass
// the cron runner executes periodically.
func (h *SweepHandler) ProactiveSweep(c *gin.Context) {
	if err := h.engine.ProactiveSweep(c); err != nil {
		handleError(c, err, "ProactiveSweep")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
