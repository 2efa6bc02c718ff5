package service

import (
	"context"
	"errors"
	"time"

	"senha-engine/internal/cluster"
	"senha-engine/internal/estimator"
	"senha-engine/internal/fanout"
	"senha-engine/internal/ledger"
	"senha-engine/internal/model"
	apperrors "senha-engine/pkg/app_errors"
	"senha-engine/pkg/logger"

	"go.uber.org/zap"
)

// collaboratorTimeout bounds best-effort calls to the clustering and
// estimation models so a slow model cannot stall issuance.
const collaboratorTimeout = 2 * time.Second

type TicketService interface {
	Issue(ctx context.Context, queueID int64, req model.IssueTicketRequest) (*model.IssuedTicketResponse, error)
	Cancel(ctx context.Context, ticketID, requesterID int64) (*model.Ticket, error)
	Get(ctx context.Context, ticketID int64) (*model.Ticket, error)
	Snapshot(ctx context.Context, queueID int64) (model.QueueSnapshot, error)
}

type TicketServiceImpl struct {
	ledger    *ledger.Ledger
	cluster   cluster.Alternatives
	estimator estimator.Estimator
	publisher fanout.Publisher
	log       *zap.Logger
}

func NewTicketService(
	ticketLedger *ledger.Ledger,
	alternatives cluster.Alternatives,
	est estimator.Estimator,
	publisher fanout.Publisher,
) TicketService {
	return &TicketServiceImpl{
		ledger:    ticketLedger,
		cluster:   alternatives,
		estimator: est,
		publisher: publisher,
		log:       logger.WithComponent("ticket-service"),
	}
}

func (s *TicketServiceImpl) Issue(ctx context.Context, queueID int64, req model.IssueTicketRequest) (*model.IssuedTicketResponse, error) {
	ticket, err := s.ledger.Issue(ctx, queueID, req.UserID, req.Priority, req.IsPhysical)
	if errors.Is(err, apperrors.ErrQueueFull) {
		return nil, &apperrors.QueueFullError{
			QueueID:      queueID,
			Alternatives: s.alternatives(ctx, queueID),
		}
	}
	if err != nil {
		return nil, err
	}

	queue, err := s.ledger.Queue(ctx, queueID)
	if err != nil {
		return nil, err
	}

	publishTicketEvent(ctx, s.publisher, s.log, queue, ticket, model.EventIssued)

	snapshot, err := s.ledger.Snapshot(ctx, queueID)
	if err != nil {
		return nil, err
	}
	position := estimator.Position(ticket.Number, snapshot.CurrentTicket)

	return &model.IssuedTicketResponse{
		Ticket:        ticket,
		DisplayNumber: ticket.DisplayNumber(queue.Prefix),
		Position:      position,
		EstimatedWait: s.estimateWait(ctx, queue, snapshot, ticket, position),
	}, nil
}

func (s *TicketServiceImpl) Cancel(ctx context.Context, ticketID, requesterID int64) (*model.Ticket, error) {
	ticket, err := s.ledger.Cancel(ctx, ticketID, requesterID)
	if err != nil {
		return nil, err
	}

	queue, err := s.ledger.Queue(ctx, ticket.QueueID)
	if err != nil {
		return nil, err
	}
	publishTicketEvent(ctx, s.publisher, s.log, queue, ticket, model.EventCancelled)
	return ticket, nil
}

func (s *TicketServiceImpl) Get(_ context.Context, ticketID int64) (*model.Ticket, error) {
	return s.ledger.Get(ticketID)
}

func (s *TicketServiceImpl) Snapshot(ctx context.Context, queueID int64) (model.QueueSnapshot, error) {
	return s.ledger.Snapshot(ctx, queueID)
}

func (s *TicketServiceImpl) alternatives(ctx context.Context, queueID int64) []int64 {
	if s.cluster == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()

	suggestions, err := s.cluster.Alternatives(ctx, queueID, 3)
	if err != nil {
		s.log.Warn("alternative lookup failed", zap.Int64("queue_id", queueID), zap.Error(err))
		return nil
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

func (s *TicketServiceImpl) estimateWait(ctx context.Context, queue model.Queue, snapshot model.QueueSnapshot, ticket *model.Ticket, position int) float64 {
	if s.estimator == nil {
		return estimator.DefaultWaitMinutes
	}
	ctx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()

	wait, err := s.estimator.PredictWaitMinutes(ctx, estimator.Features{
		QueueID:       queue.ID,
		Position:      position,
		ActiveTickets: snapshot.ActiveTickets,
		Priority:      ticket.Priority,
		HourOfDay:     ticket.IssuedAt.Hour(),
	})
	if err != nil {
		s.log.Warn("wait estimate failed", zap.Int64("queue_id", queue.ID), zap.Error(err))
		return estimator.DefaultWaitMinutes
	}
	return wait
}
