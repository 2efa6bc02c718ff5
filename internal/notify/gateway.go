package notify

import (
	"context"
	"sync"

	"senha-engine/pkg/logger"

	"go.uber.org/zap"
)

// Gateway delivers a message to a user. Fire-and-forget: the engine logs
// failures and never rolls back the ticket mutation that triggered the send.
type Gateway interface {
	Send(ctx context.Context, recipientID int64, message string, ticketID int64) error
}

// LogGateway is the default transport when no push provider is configured;
// it writes every message to the structured log.
type LogGateway struct {
	log *zap.Logger
}

func NewLogGateway() *LogGateway {
	return &LogGateway{log: logger.WithComponent("notify-gateway")}
}

func (g *LogGateway) Send(_ context.Context, recipientID int64, message string, ticketID int64) error {
	g.log.Info("notification",
		zap.Int64("recipient_id", recipientID),
		zap.Int64("ticket_id", ticketID),
		zap.String("message", message))
	return nil
}

// Recorder captures sends for tests.
type Recorder struct {
	mu    sync.Mutex
	sends []RecordedSend
}

type RecordedSend struct {
	RecipientID int64
	Message     string
	TicketID    int64
}

func (r *Recorder) Send(_ context.Context, recipientID int64, message string, ticketID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, RecordedSend{recipientID, message, ticketID})
	return nil
}

func (r *Recorder) Sends() []RecordedSend {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedSend(nil), r.sends...)
}
