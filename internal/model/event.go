package model

import "time"

// EventType labels a ticket mutation on the fan-out channel.
type EventType string

const (
	EventIssued       EventType = "ticket_issued"
	EventCalled       EventType = "ticket_called"
	EventServed       EventType = "ticket_served"
	EventCancelled    EventType = "ticket_cancelled"
	EventTradeOffered EventType = "trade_offered"
	EventTraded       EventType = "ticket_traded"
)

// TicketEvent is published after every committed mutation. Subscribers get
// at-least-once delivery, FIFO within a topic.
type TicketEvent struct {
	Type          EventType    `json:"type"`
	TicketID      int64        `json:"ticket_id"`
	QueueID       int64        `json:"queue_id"`
	InstitutionID int64        `json:"institution_id"`
	Number        int          `json:"ticket_number"`
	Status        TicketStatus `json:"status"`
	Counter       int          `json:"counter,omitempty"`
	At            time.Time    `json:"at"`
}
