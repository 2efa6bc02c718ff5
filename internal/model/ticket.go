package model

import (
	"fmt"
	"time"
)

// TicketStatus is the lifecycle state of a senha.
type TicketStatus string

const (
	StatusPending   TicketStatus = "pending"
	StatusCalled    TicketStatus = "called"
	StatusServed    TicketStatus = "served"
	StatusCancelled TicketStatus = "cancelled"
)

func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCalled, StatusServed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s TicketStatus) IsTerminal() bool {
	return s == StatusServed || s == StatusCancelled
}

// CanTransitionTo checks whether a transition to the target status is legal.
// The only reachable edges are pending→called, pending→cancelled,
// called→served and called→cancelled.
func (s TicketStatus) CanTransitionTo(target TicketStatus) bool {
	transitions := map[TicketStatus][]TicketStatus{
		StatusPending:   {StatusCalled, StatusCancelled},
		StatusCalled:    {StatusServed, StatusCancelled},
		StatusServed:    {},
		StatusCancelled: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Ticket is a numbered admission slot within a queue. All status mutations go
// through the ledger; other components never write these fields directly.
type Ticket struct {
	ID             int64        `json:"id"`
	QueueID        int64        `json:"queue_id"`
	UserID         int64        `json:"user_id,omitempty"` // zero for physical tickets
	Number         int          `json:"ticket_number"`
	QRCode         string       `json:"qr_code"`
	Status         TicketStatus `json:"status"`
	Priority       int          `json:"priority"`
	Counter        int          `json:"counter,omitempty"`
	IsPhysical     bool         `json:"is_physical"`
	TradeAvailable bool         `json:"trade_available"`
	IssuedAt       time.Time    `json:"issued_at"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	AttendedAt     *time.Time   `json:"attended_at,omitempty"`
}

// DisplayNumber renders the ticket number with the queue prefix, e.g. "B-042".
func (t *Ticket) DisplayNumber(prefix string) string {
	return fmt.Sprintf("%s-%03d", prefix, t.Number)
}

// Expired reports whether a called ticket's deadline has passed. Only the
// proactive sweep may act on this; see the sweep engine.
func (t *Ticket) Expired(now time.Time) bool {
	return t.Status == StatusCalled && t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// IssueTicketRequest is the payload for creating a new ticket.
type IssueTicketRequest struct {
	UserID     int64 `json:"user_id"`
	Priority   int   `json:"priority"`
	IsPhysical bool  `json:"is_physical"`
}

// IssuedTicketResponse is returned on issuance, including the position and
// wait estimate the mobile app renders with the senha.
type IssuedTicketResponse struct {
	Ticket        *Ticket `json:"ticket"`
	DisplayNumber string  `json:"display_number"`
	Position      int     `json:"position"`
	EstimatedWait float64 `json:"estimated_wait_minutes"`
}
