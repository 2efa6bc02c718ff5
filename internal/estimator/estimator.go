package estimator

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the prediction model cannot answer.
var ErrUnavailable = errors.New("estimator unavailable")

// Features is the input vector for a wait prediction.
type Features struct {
	QueueID       int64
	Position      int
	ActiveTickets int
	Priority      int
	HourOfDay     int
	Latitude      *float64
	Longitude     *float64
}

// Estimator is the external prediction model, consumed as a pure function.
// Model lifecycle (training, persistence) is not this engine's concern.
type Estimator interface {
	PredictWaitMinutes(ctx context.Context, features Features) (float64, error)
	PredictDemand(ctx context.Context, queueID int64, hoursAhead int) (float64, error)
}

// Position is the numeric distance between a ticket and the queue's current
// ticket, clamped to at least 1. Strictly numeric: priority calls may move
// current_ticket past lower numbers, which keeps this an upper bound rather
// than an exact count.
func Position(ticketNumber, currentTicket int) int {
	position := ticketNumber - currentTicket
	if position < 1 {
		position = 1
	}
	return position
}
