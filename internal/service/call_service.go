package service

import (
	"context"
	"fmt"
	"time"

	"senha-engine/internal/fanout"
	"senha-engine/internal/ledger"
	"senha-engine/internal/model"
	"senha-engine/internal/notify"
	"senha-engine/pkg/logger"

	"go.uber.org/zap"
)

type CallService interface {
	// CallNext dispatches the next pending ticket to a counter.
	CallNext(ctx context.Context, queueID int64) (*model.Ticket, error)
}

type CallServiceImpl struct {
	ledger      *ledger.Ledger
	publisher   fanout.Publisher
	gateway     notify.Gateway
	callTimeout time.Duration
	log         *zap.Logger
}

func NewCallService(
	ticketLedger *ledger.Ledger,
	publisher fanout.Publisher,
	gateway notify.Gateway,
	callTimeout time.Duration,
) CallService {
	return &CallServiceImpl{
		ledger:      ticketLedger,
		publisher:   publisher,
		gateway:     gateway,
		callTimeout: callTimeout,
		log:         logger.WithComponent("call-service"),
	}
}

func (s *CallServiceImpl) CallNext(ctx context.Context, queueID int64) (*model.Ticket, error) {
	ticket, err := s.ledger.CallNext(ctx, queueID, s.callTimeout)
	if err != nil {
		return nil, err
	}

	queue, err := s.ledger.Queue(ctx, queueID)
	if err != nil {
		return nil, err
	}

	publishTicketEvent(ctx, s.publisher, s.log, queue, ticket, model.EventCalled)

	if ticket.UserID != 0 && s.gateway != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
		defer cancel()
		message := fmt.Sprintf("Ticket %s: go to counter %d now", ticket.DisplayNumber(queue.Prefix), ticket.Counter)
		if err := s.gateway.Send(notifyCtx, ticket.UserID, message, ticket.ID); err != nil {
			s.log.Warn("call notification failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	return ticket, nil
}
