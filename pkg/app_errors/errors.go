package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrQueueNotFound  = errors.New("queue not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrBranchNotFound = errors.New("branch not found")

	ErrQueueClosed           = errors.New("queue is closed")
	ErrQueueFull             = errors.New("queue reached its daily limit")
	ErrDuplicateActiveTicket = errors.New("requester already holds a pending ticket in this queue")
	ErrNotOwner              = errors.New("requester does not own this ticket")
	ErrInvalidState          = errors.New("ticket is not in a valid state for this operation")
	ErrNotTradeable          = errors.New("ticket is not offered for trade")
	ErrQueueMismatch         = errors.New("tickets belong to different queues")
	ErrTooFar                = errors.New("requester is too far from the branch")
	ErrNoPendingTicket       = errors.New("no pending ticket in queue")

	ErrInternalServerError = errors.New("internal server error")
)

// QueueFullError carries up to three alternative queue suggestions from the
// clustering collaborator. It unwraps to ErrQueueFull so callers can keep
// using errors.Is.
type QueueFullError struct {
	QueueID      int64
	Alternatives []int64
}

func (e *QueueFullError) Error() string {
	if len(e.Alternatives) == 0 {
		return fmt.Sprintf("queue %d reached its daily limit", e.QueueID)
	}
	return fmt.Sprintf("queue %d reached its daily limit (alternatives: %v)", e.QueueID, e.Alternatives)
}

func (e *QueueFullError) Unwrap() error {
	return ErrQueueFull
}
