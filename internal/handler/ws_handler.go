package handler

import (
	"net/http"
	"time"

	"senha-engine/internal/fanout"
	"senha-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewers are public display boards and the mobile app; auth lives in
	// the gateway in front of this service.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSHandler streams fan-out topics to realtime viewers: a queue room or an
// institution dashboard room.
type WSHandler struct {
	hub *fanout.Hub
	log *zap.Logger
}

func NewWSHandler(hub *fanout.Hub) *WSHandler {
	return &WSHandler{hub: hub, log: logger.WithComponent("ws")}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.Subscribe)
}

func (h *WSHandler) Subscribe(c *gin.Context) {
	topic := c.Query("topic")
	if topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic query parameter required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := h.hub.Subscribe(topic)
	defer cancel()
	defer conn.Close()

	// Drain reads so close frames and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for event := range events {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.log.Info("viewer disconnected", zap.String("topic", topic), zap.Error(err))
			return
		}
	}
}
