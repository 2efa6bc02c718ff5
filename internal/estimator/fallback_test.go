package estimator_test

import (
	"context"
	"testing"

	"senha-engine/internal/estimator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEstimator struct {
	wait   float64
	demand float64
	err    error
}

func (s *stubEstimator) PredictWaitMinutes(context.Context, estimator.Features) (float64, error) {
	return s.wait, s.err
}

func (s *stubEstimator) PredictDemand(context.Context, int64, int) (float64, error) {
	return s.demand, s.err
}

func TestPosition(t *testing.T) {
	assert.Equal(t, 5, estimator.Position(12, 7))
	assert.Equal(t, 1, estimator.Position(7, 7), "clamped at the head of the queue")
	assert.Equal(t, 1, estimator.Position(3, 7), "priority calls can overtake lower numbers")
}

func TestFallbackUsesModelWhenHealthy(t *testing.T) {
	e := estimator.NewWithFallback(&stubEstimator{wait: 12.5}, nil)

	wait, err := e.PredictWaitMinutes(context.Background(), estimator.Features{QueueID: 1, Position: 3})
	require.NoError(t, err)
	assert.Equal(t, 12.5, wait)
}

func TestFallbackToQueueAverage(t *testing.T) {
	broken := &stubEstimator{err: estimator.ErrUnavailable}
	e := estimator.NewWithFallback(broken, func(context.Context, int64) (float64, error) {
		return 2.0, nil
	})

	wait, err := e.PredictWaitMinutes(context.Background(), estimator.Features{QueueID: 1, Position: 4})
	require.NoError(t, err)
	assert.Equal(t, 8.0, wait, "average times position")
}

func TestFallbackToFixedDefault(t *testing.T) {
	e := estimator.NewWithFallback(nil, nil)

	wait, err := e.PredictWaitMinutes(context.Background(), estimator.Features{QueueID: 1, Position: 4})
	require.NoError(t, err)
	assert.Equal(t, estimator.DefaultWaitMinutes, wait)
}

func TestDemandUnavailableWithoutModel(t *testing.T) {
	e := estimator.NewWithFallback(nil, nil)

	_, err := e.PredictDemand(context.Background(), 1, 2)
	assert.ErrorIs(t, err, estimator.ErrUnavailable)
}
