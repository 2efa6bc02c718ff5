package estimator

import (
	"context"

	"senha-engine/pkg/logger"

	"go.uber.org/zap"
)

// DefaultWaitMinutes is used when neither the model nor a queue average can
// produce an estimate.
const DefaultWaitMinutes = 5.0

// AverageLookup resolves a queue's stored average service time in minutes.
type AverageLookup func(ctx context.Context, queueID int64) (float64, error)

// WithFallback wraps an Estimator and degrades gracefully: a model failure
// falls back to the queue's stored average times position, or the fixed
// default. Failures are logged, never propagated.
type WithFallback struct {
	inner   Estimator
	average AverageLookup
	log     *zap.Logger
}

func NewWithFallback(inner Estimator, average AverageLookup) *WithFallback {
	return &WithFallback{
		inner:   inner,
		average: average,
		log:     logger.WithComponent("estimator"),
	}
}

func (e *WithFallback) PredictWaitMinutes(ctx context.Context, features Features) (float64, error) {
	if e.inner != nil {
		wait, err := e.inner.PredictWaitMinutes(ctx, features)
		if err == nil {
			return wait, nil
		}
		e.log.Warn("wait prediction failed, falling back",
			zap.Int64("queue_id", features.QueueID), zap.Error(err))
	}

	if e.average != nil {
		avg, err := e.average(ctx, features.QueueID)
		if err == nil && avg > 0 {
			return avg * float64(features.Position), nil
		}
	}
	return DefaultWaitMinutes, nil
}

func (e *WithFallback) PredictDemand(ctx context.Context, queueID int64, hoursAhead int) (float64, error) {
	if e.inner == nil {
		return 0, ErrUnavailable
	}
	return e.inner.PredictDemand(ctx, queueID, hoursAhead)
}
