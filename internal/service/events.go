package service

import (
	"context"
	"time"

	"senha-engine/internal/fanout"
	"senha-engine/internal/model"

	"go.uber.org/zap"
)

// publishTicketEvent emits a committed mutation to the queue room and the
// institution dashboard room. Publish failures are logged and never unwind
// the mutation; the fan-out is not transactional with ticket state.
func publishTicketEvent(
	ctx context.Context,
	publisher fanout.Publisher,
	log *zap.Logger,
	queue model.Queue,
	t *model.Ticket,
	eventType model.EventType,
) {
	if publisher == nil {
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
		At:            time.Now(),
	}

	for _, topic := range []string{
		fanout.QueueTopic(t.QueueID),
		fanout.InstitutionTopic(queue.InstitutionID),
	} {
		if err := publisher.Publish(ctx, topic, event); err != nil {
			log.Warn("fanout publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}
