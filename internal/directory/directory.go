package directory

import (
	"context"
	"time"

	"senha-engine/internal/model"
)

// Directory is the read-only view into the persistence layer that owns
// institutions, branches and queue configuration. The engine never writes
// entity records; the one write path, RecordServiceTime, feeds the external
// estimator's training signal.
type Directory interface {
	GetQueue(ctx context.Context, queueID int64) (model.Queue, error)
	GetBranch(ctx context.Context, branchID int64) (model.Branch, error)
	// GetSchedule returns the schedule row for the weekday; found is false
	// when no row exists, which callers must treat as closed.
	GetSchedule(ctx context.Context, queueID int64, weekday time.Weekday) (model.Schedule, bool, error)
	// ListQueuesNear returns queues whose branch lies within radiusKm of the
	// point, optionally filtered by service name.
	ListQueuesNear(ctx context.Context, lat, lon, radiusKm float64, service string) ([]model.Queue, error)
	// RecordServiceTime stores one observed service duration and refreshes
	// the queue's running average.
	RecordServiceTime(ctx context.Context, queueID int64, minutes float64) error
}
