package handler

import (
	"net/http"

	"senha-engine/internal/geo"
	"senha-engine/internal/model"
	"senha-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	tickets  service.TicketService
	trades   service.TradeService
	presence service.PresenceService
}

func NewTicketHandler(tickets service.TicketService, trades service.TradeService, presence service.PresenceService) *TicketHandler {
	return &TicketHandler{tickets: tickets, trades: trades, presence: presence}
}

func (h *TicketHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("queues/:id/tickets", h.IssueTicket)
		router.GET("tickets/:id", h.GetTicket)
		router.PUT("tickets/:id/cancel", h.CancelTicket)
		router.PUT("tickets/:id/validate", h.ValidateTicket)
		router.PUT("tickets/:id/trade", h.OfferTrade)
		router.POST("tickets/:id/trade/accept", h.AcceptTrade)
	}
}

func (h *TicketHandler) IssueTicket(c *gin.Context) {
	queueID, err := ParamID(c, "id")
	if err != nil {
		return
	}

	var req model.IssueTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	issued, err := h.tickets.Issue(c, queueID, req)
	if err != nil {
		handleError(c, err, "IssueTicket")
		return
	}
	c.JSON(http.StatusCreated, issued)
}

func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticketID, err := ParamID(c, "id")
	if err != nil {
		return
	}

	ticket, err := h.tickets.Get(c, ticketID)
	if err != nil {
		handleError(c, err, "GetTicket")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type cancelRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (h *TicketHandler) CancelTicket(c *gin.Context) {
	ticketID, err := ParamID(c, "id")
	if err != nil {
		return
	}

	var req cancelRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	ticket, err := h.tickets.Cancel(c, ticketID, req.UserID)
	if err != nil {
		handleError(c, err, "CancelTicket")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type validateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *TicketHandler) ValidateTicket(c *gin.Context) {
	ticketID, err := ParamID(c, "id")
	if err != nil {
		return
	}

	var req validateRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	var location *geo.Point
	if req.Latitude != nil && req.Longitude != nil {
		location = &geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	ticket, err := h.presence.Validate(c, ticketID, location)
	if err != nil {
		handleError(c, err, "ValidateTicket")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type offerRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (h *TicketHandler) OfferTrade(c *gin.Context) {
	ticketID, err := ParamID(c, "id")
	if err != nil {
		return
	}

	var req offerRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	ticket, err := h.trades.Offer(c, ticketID, req.UserID)
	if err != nil {
		handleError(c, err, "OfferTrade")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type acceptRequest struct {
	UserID         int64 `json:"user_id" binding:"required"`
	TargetTicketID int64 `json:"target_ticket_id" binding:"required"`
}

func (h *TicketHandler) AcceptTrade(c *gin.Context) {
	ticketID, err := ParamID(c, "id")
	if err != nil {
		return
	}

	var req acceptRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	mine, target, err := h.trades.Accept(c, ticketID, req.TargetTicketID, req.UserID)
	if err != nil {
		handleError(c, err, "AcceptTrade")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": mine, "traded_with": target})
}
