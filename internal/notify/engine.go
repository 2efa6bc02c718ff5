package notify

import (
	"context"
	"fmt"
	"time"

	"senha-engine/config"
	"senha-engine/internal/directory"
	"senha-engine/internal/estimator"
	"senha-engine/internal/fanout"
	"senha-engine/internal/geo"
	"senha-engine/internal/ledger"
	"senha-engine/internal/model"
	"senha-engine/internal/schedule"
	"senha-engine/pkg/logger"

	"go.uber.org/zap"
)

// Engine runs the two notification sweeps. Both are idempotent: the throttle
// suppresses repeat messages and the ledger's cancellation primitives only
// act on tickets still in a cancellable state, so running a sweep twice in a
// row is safe.
type Engine struct {
	directory directory.Directory
	ledger    *ledger.Ledger
	evaluator *schedule.Evaluator
	estimator estimator.Estimator
	gateway   Gateway
	throttle  Throttle
	publisher fanout.Publisher
	locations *Locations
	cfg       config.EngineConfig
	log       *zap.Logger

	Now func() time.Time
}

func NewEngine(
	dir directory.Directory,
	ticketLedger *ledger.Ledger,
	evaluator *schedule.Evaluator,
	est estimator.Estimator,
	gateway Gateway,
	throttle Throttle,
	publisher fanout.Publisher,
	locations *Locations,
	cfg config.EngineConfig,
) *Engine {
	return &Engine{
		directory: dir,
		ledger:    ticketLedger,
		evaluator: evaluator,
		estimator: est,
		gateway:   gateway,
		throttle:  throttle,
		publisher: publisher,
		locations: locations,
		cfg:       cfg,
		log:       logger.WithComponent("notify"),
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ProximitySweep alerts a user about nearby open queues with low predicted
// demand. One message per qualifying branch; a per-(user,branch,queue,cell)
// key throttles repeats for an hour. The reported position also becomes the
// user's last known location for the proactive sweep.
func (e *Engine) ProximitySweep(ctx context.Context, userID int64, point geo.Point, service string) (int, error) {
	e.locations.Update(userID, point)

	queues, err := e.directory.ListQueuesNear(ctx, point.Latitude, point.Longitude, e.cfg.DiscoveryRadiusKm, service)
	if err != nil {
		return 0, err
	}

	now := e.now()
	cell := geo.Cell(point)
	qualifying := make(map[int64][]model.Queue)

	for _, queue := range queues {
		open, err := e.evaluator.IsOpen(ctx, queue.ID, now)
		if err != nil || !open {
			continue
		}

		demand, err := e.estimator.PredictDemand(ctx, queue.ID, 1)
		if err != nil {
			// Model down: the throttle still bounds message volume, so the
			// queue qualifies rather than going silent.
			e.log.Warn("demand prediction failed", zap.Int64("queue_id", queue.ID), zap.Error(err))
		} else if demand >= e.cfg.DemandThreshold {
			continue
		}

		key := fmt.Sprintf("prox:%d:%d:%d:%s", userID, queue.BranchID, queue.ID, cell)
		allowed, err := e.throttle.Allow(ctx, key, e.cfg.ProximityThrottle)
		if err != nil {
			e.log.Warn("throttle check failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if allowed {
			qualifying[queue.BranchID] = append(qualifying[queue.BranchID], queue)
		}
	}

	sent := 0
	for branchID, branchQueues := range qualifying {
		branch, err := e.directory.GetBranch(ctx, branchID)
		if err != nil {
			e.log.Warn("branch lookup failed", zap.Int64("branch_id", branchID), zap.Error(err))
			continue
		}
		message := fmt.Sprintf("%s is nearby with %d short queue(s) right now", branch.Name, len(branchQueues))
		if err := e.gateway.Send(ctx, userID, message, 0); err != nil {
			e.log.Warn("proximity notification failed", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// ProactiveSweep reconciles every queue the ledger knows: cancels pending
// tickets of closed queues, expires overdue calls (the sole authority for
// that transition), and sends near-turn and start-moving alerts.
func (e *Engine) ProactiveSweep(ctx context.Context) error {
	now := e.now()

	for _, queueID := range e.ledger.QueueIDs() {
		queue, err := e.ledger.Queue(ctx, queueID)
		if err != nil {
			e.log.Warn("queue lookup failed", zap.Int64("queue_id", queueID), zap.Error(err))
			continue
		}

		expired, err := e.ledger.ExpireCalled(ctx, queueID)
		if err != nil {
			e.log.Error("call expiry failed", zap.Int64("queue_id", queueID), zap.Error(err))
		}
		for _, t := range expired {
			e.publish(ctx, queue, t, model.EventCancelled)
			e.send(ctx, t.UserID, fmt.Sprintf("Your ticket %s expired after not showing up", t.DisplayNumber(queue.Prefix)), t.ID)
		}

		open, err := e.evaluator.IsOpen(ctx, queueID, now)
		if err != nil {
			e.log.Warn("schedule check failed", zap.Int64("queue_id", queueID), zap.Error(err))
			continue
		}

		if !open {
			cancelled, err := e.ledger.CancelPending(ctx, queueID)
			if err != nil {
				e.log.Error("closed-queue cancellation failed", zap.Int64("queue_id", queueID), zap.Error(err))
			}
			for _, t := range cancelled {
				e.publish(ctx, queue, t, model.EventCancelled)
				e.send(ctx, t.UserID, fmt.Sprintf("Queue %s closed; your ticket %s was cancelled", queue.Name, t.DisplayNumber(queue.Prefix)), t.ID)
			}
			continue
		}

		e.alertPending(ctx, queue, now)
	}
	return nil
}

func (e *Engine) alertPending(ctx context.Context, queue model.Queue, now time.Time) {
	snapshot, err := e.ledger.Snapshot(ctx, queue.ID)
	if err != nil {
		return
	}
	pending, err := e.ledger.Pending(ctx, queue.ID)
	if err != nil {
		return
	}

	for _, t := range pending {
		if t.IsPhysical {
			continue
		}

		wait, err := e.estimator.PredictWaitMinutes(ctx, estimator.Features{
			QueueID:       queue.ID,
			Position:      estimator.Position(t.Number, snapshot.CurrentTicket),
			ActiveTickets: snapshot.ActiveTickets,
			Priority:      t.Priority,
			HourOfDay:     now.Hour(),
		})
		if err != nil {
			continue
		}

		if wait <= e.cfg.NearTurnThresholdMin {
			key := fmt.Sprintf("near:%d", t.ID)
			if allowed, _ := e.throttle.Allow(ctx, key, e.cfg.NearTurnThrottle); allowed {
				e.send(ctx, t.UserID, fmt.Sprintf("Your turn is near: ticket %s, about %.0f min", t.DisplayNumber(queue.Prefix), wait), t.ID)
			}
			continue
		}

		point, ok := e.locations.Get(t.UserID)
		if !ok {
			continue
		}
		branch, err := e.directory.GetBranch(ctx, queue.BranchID)
		if err != nil {
			continue
		}
		distance := geo.DistanceKm(point, geo.Point{Latitude: branch.Latitude, Longitude: branch.Longitude})
		travel := geo.TravelMinutes(distance, e.cfg.WalkingSpeedKmh)
		if travel >= wait {
			key := fmt.Sprintf("move:%d", t.ID)
			if allowed, _ := e.throttle.Allow(ctx, key, e.cfg.NearTurnThrottle); allowed {
				e.send(ctx, t.UserID, fmt.Sprintf("Start moving: %.0f min to %s, ticket %s is ~%.0f min away", travel, branch.Name, t.DisplayNumber(queue.Prefix), wait), t.ID)
			}
		}
	}
}

func (e *Engine) publish(ctx context.Context, queue model.Queue, t *model.Ticket, eventType model.EventType) {
	if e.publisher == nil {
		return
	}
	event := model.TicketEvent{
		Type:          eventType,
		TicketID:      t.ID,
		QueueID:       t.QueueID,
		InstitutionID: queue.InstitutionID,
		Number:        t.Number,
		Status:        t.Status,
		Counter:       t.Counter,
		At:            e.now(),
	}
	if err := e.publisher.Publish(ctx, fanout.QueueTopic(t.QueueID), event); err != nil {
		e.log.Warn("fanout publish failed", zap.String("topic", fanout.QueueTopic(t.QueueID)), zap.Error(err))
	}
	if err := e.publisher.Publish(ctx, fanout.InstitutionTopic(queue.InstitutionID), event); err != nil {
		e.log.Warn("fanout publish failed", zap.String("topic", fanout.InstitutionTopic(queue.InstitutionID)), zap.Error(err))
	}
}

func (e *Engine) send(ctx context.Context, userID int64, message string, ticketID int64) {
	if userID == 0 {
		return
	}
	if err := e.gateway.Send(ctx, userID, message, ticketID); err != nil {
		e.log.Warn("notification failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
