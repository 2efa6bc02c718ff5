package service

import (
	"context"
	"fmt"

	"senha-engine/internal/fanout"
	"senha-engine/internal/ledger"
	"senha-engine/internal/model"
	"senha-engine/internal/notify"
	"senha-engine/pkg/logger"

	"go.uber.org/zap"
)

// maxTradeInvites bounds how many other waiting users hear about a new offer.
const maxTradeInvites = 5

type TradeService interface {
	// Offer marks the owner's pending ticket as tradeable and invites other
	// holders in the queue.
	Offer(ctx context.Context, ticketID, ownerID int64) (*model.Ticket, error)
	// Accept exchanges ownership between the requester's ticket and the
	// offered target ticket.
	Accept(ctx context.Context, ticketID, targetTicketID, requesterID int64) (*model.Ticket, *model.Ticket, error)
}

type TradeServiceImpl struct {
	ledger    *ledger.Ledger
	publisher fanout.Publisher
	gateway   notify.Gateway
	log       *zap.Logger
}

func NewTradeService(ticketLedger *ledger.Ledger, publisher fanout.Publisher, gateway notify.Gateway) TradeService {
	return &TradeServiceImpl{
		ledger:    ticketLedger,
		publisher: publisher,
		gateway:   gateway,
		log:       logger.WithComponent("trade-service"),
	}
}

func (s *TradeServiceImpl) Offer(ctx context.Context, ticketID, ownerID int64) (*model.Ticket, error) {
	ticket, err := s.ledger.Offer(ctx, ticketID, ownerID)
	if err != nil {
		return nil, err
	}

	queue, err := s.ledger.Queue(ctx, ticket.QueueID)
	if err != nil {
		return nil, err
	}

	publishTicketEvent(ctx, s.publisher, s.log, queue, ticket, model.EventTradeOffered)
	s.inviteHolders(ctx, queue, ticket)
	return ticket, nil
}

func (s *TradeServiceImpl) Accept(ctx context.Context, ticketID, targetTicketID, requesterID int64) (*model.Ticket, *model.Ticket, error) {
	mine, target, err := s.ledger.Swap(ctx, ticketID, targetTicketID, requesterID)
	if err != nil {
		return nil, nil, err
	}

	queue, err := s.ledger.Queue(ctx, mine.QueueID)
	if err != nil {
		return nil, nil, err
	}

	publishTicketEvent(ctx, s.publisher, s.log, queue, mine, model.EventTraded)
	publishTicketEvent(ctx, s.publisher, s.log, queue, target, model.EventTraded)

	s.sendBestEffort(ctx, mine.UserID, fmt.Sprintf("Trade complete: you now hold ticket %s", mine.DisplayNumber(queue.Prefix)), mine.ID)
	s.sendBestEffort(ctx, target.UserID, fmt.Sprintf("Trade complete: you now hold ticket %s", target.DisplayNumber(queue.Prefix)), target.ID)

	return mine, target, nil
}

// inviteHolders notifies up to maxTradeInvites other pending-ticket holders
// in the same queue that a trade is available. Best effort, after commit.
func (s *TradeServiceImpl) inviteHolders(ctx context.Context, queue model.Queue, offered *model.Ticket) {
	if s.gateway == nil {
		return
	}

	pending, err := s.ledger.Pending(ctx, queue.ID)
	if err != nil {
		s.log.Warn("pending lookup failed", zap.Int64("queue_id", queue.ID), zap.Error(err))
		return
	}

	message := fmt.Sprintf("Ticket %s in queue %s is up for trade", offered.DisplayNumber(queue.Prefix), queue.Name)
	invited := 0
	seen := map[int64]bool{offered.UserID: true}
	for _, t := range pending {
		if invited >= maxTradeInvites {
			break
		}
		if t.UserID == 0 || seen[t.UserID] {
			continue
		}
		seen[t.UserID] = true
		s.sendBestEffort(ctx, t.UserID, message, offered.ID)
		invited++
	}
}

func (s *TradeServiceImpl) sendBestEffort(ctx context.Context, userID int64, message string, ticketID int64) {
	if s.gateway == nil || userID == 0 {
		return
	}
	notifyCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()
	if err := s.gateway.Send(notifyCtx, userID, message, ticketID); err != nil {
		s.log.Warn("trade notification failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
