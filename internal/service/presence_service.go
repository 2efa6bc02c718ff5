package service

import (
	"context"

	"senha-engine/internal/directory"
	"senha-engine/internal/fanout"
	"senha-engine/internal/geo"
	"senha-engine/internal/ledger"
	"senha-engine/internal/model"
	"senha-engine/internal/schedule"
	apperrors "senha-engine/pkg/app_errors"
	"senha-engine/pkg/logger"

	"go.uber.org/zap"
)

type PresenceService interface {
	// Validate confirms the holder is at the branch and marks the called
	// ticket served. A nil location skips the geofence (kiosk validation).
	Validate(ctx context.Context, ticketID int64, location *geo.Point) (*model.Ticket, error)
}

type PresenceServiceImpl struct {
	ledger    *ledger.Ledger
	directory directory.Directory
	evaluator *schedule.Evaluator
	publisher fanout.Publisher
	radiusKm  float64
	log       *zap.Logger
}

func NewPresenceService(
	ticketLedger *ledger.Ledger,
	dir directory.Directory,
	evaluator *schedule.Evaluator,
	publisher fanout.Publisher,
	radiusKm float64,
) PresenceService {
	return &PresenceServiceImpl{
		ledger:    ticketLedger,
		directory: dir,
		evaluator: evaluator,
		publisher: publisher,
		radiusKm:  radiusKm,
		log:       logger.WithComponent("presence-service"),
	}
}

func (s *PresenceServiceImpl) Validate(ctx context.Context, ticketID int64, location *geo.Point) (*model.Ticket, error) {
	ticket, err := s.ledger.Get(ticketID)
	if err != nil {
		return nil, err
	}

	queue, err := s.ledger.Queue(ctx, ticket.QueueID)
	if err != nil {
		return nil, err
	}

	open, err := s.evaluator.IsOpen(ctx, queue.ID, s.ledger.Now())
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, apperrors.ErrQueueClosed
	}

	if location != nil {
		branch, err := s.directory.GetBranch(ctx, queue.BranchID)
		if err != nil {
			return nil, err
		}
		distance := geo.DistanceKm(*location, geo.Point{Latitude: branch.Latitude, Longitude: branch.Longitude})
		if distance > s.radiusKm {
			return nil, apperrors.ErrTooFar
		}
	}

	// Serve re-checks status and deadline under the queue lock, so a late
	// validation cannot race the expiry sweep.
	served, serviceMinutes, err := s.ledger.Serve(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	publishTicketEvent(ctx, s.publisher, s.log, queue, served, model.EventServed)

	if serviceMinutes > 0 {
		feedCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
		defer cancel()
		if err := s.directory.RecordServiceTime(feedCtx, queue.ID, serviceMinutes); err != nil {
			s.log.Warn("service-time feedback failed", zap.Int64("queue_id", queue.ID), zap.Error(err))
		}
	}

	return served, nil
}
