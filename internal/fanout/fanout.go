package fanout

import (
	"context"
	"fmt"

	"senha-engine/internal/model"
)

// Publisher pushes a committed ticket mutation onto a topic. Delivery is
// at-least-once with no ordering across topics; within one topic events
// arrive in commit order.
type Publisher interface {
	Publish(ctx context.Context, topic string, event model.TicketEvent) error
}

func QueueTopic(queueID int64) string {
	return fmt.Sprintf("queue:%d", queueID)
}

func InstitutionTopic(institutionID int64) string {
	return fmt.Sprintf("institution:%d", institutionID)
}

// Multi publishes to several publishers in order, returning the first error
// after attempting all of them.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, topic string, event model.TicketEvent) error {
	var firstErr error
	for _, p := range m {
		if err := p.Publish(ctx, topic, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
