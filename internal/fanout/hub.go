package fanout

import (
	"context"
	"sync"

	"senha-engine/internal/model"
	"senha-engine/pkg/logger"

	"go.uber.org/zap"
)

const subscriberBuffer = 64

// Hub is the in-process fan-out channel. Publish appends to each subscriber
// of the topic under the hub lock, which preserves commit order per topic.
// A subscriber that stops draining gets its buffer filled and further events
// dropped with a log line rather than blocking publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]*subscriber
	log  *zap.Logger
}

type subscriber struct {
	ch     chan model.TicketEvent
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string][]*subscriber),
		log:  logger.WithComponent("fanout"),
	}
}

// Subscribe registers a listener on a topic. The returned cancel function
// detaches it and closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan model.TicketEvent, func()) {
	sub := &subscriber{ch: make(chan model.TicketEvent, subscriberBuffer)}

	h.mu.Lock()
	h.subs[topic] = append(h.subs[topic], sub)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub.closed {
			return
		}
		sub.closed = true
		close(sub.ch)
		list := h.subs[topic]
		for i, s := range list {
			if s == sub {
				h.subs[topic] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(h.subs[topic]) == 0 {
			delete(h.subs, topic)
		}
	}
	return sub.ch, cancel
}

func (h *Hub) Publish(_ context.Context, topic string, event model.TicketEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs[topic] {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.log.Warn("dropping event for slow subscriber",
				zap.String("topic", topic),
				zap.Int64("ticket_id", event.TicketID))
		}
	}
	return nil
}
