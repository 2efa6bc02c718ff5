package schedule_test

import (
	"context"
	"testing"
	"time"

	"senha-engine/internal/directory"
	"senha-engine/internal/model"
	"senha-engine/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-04 is a Wednesday.
var wednesday = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

func newEvaluator(rows ...model.Schedule) *schedule.Evaluator {
	dir := directory.NewMemory()
	for _, row := range rows {
		dir.PutSchedule(row)
	}
	return schedule.NewEvaluator(dir)
}

func TestIsOpenWithinWindow(t *testing.T) {
	evaluator := newEvaluator(model.Schedule{
		QueueID: 1, Weekday: time.Wednesday, OpenTime: "08:00", EndTime: "17:00",
	})

	cases := []struct {
		at   time.Time
		open bool
	}{
		{wednesday.Add(10 * time.Hour), true},
		{wednesday.Add(8 * time.Hour), true},                   // opening minute admits
		{wednesday.Add(7*time.Hour + 59*time.Minute), false},   // before opening
		{wednesday.Add(17 * time.Hour), false},                 // end minute excluded
		{wednesday.Add(16*time.Hour + 59*time.Minute), true},   // last admitted minute
		{wednesday.Add(24*time.Hour + 10*time.Hour), false},    // Thursday has no row
	}

	for _, c := range cases {
		open, err := evaluator.IsOpen(context.Background(), 1, c.at)
		require.NoError(t, err)
		assert.Equal(t, c.open, open, "at %s", c.at)
	}
}

func TestIsOpenClosedFlag(t *testing.T) {
	evaluator := newEvaluator(model.Schedule{
		QueueID: 1, Weekday: time.Wednesday, OpenTime: "08:00", EndTime: "17:00", IsClosed: true,
	})

	open, err := evaluator.IsOpen(context.Background(), 1, wednesday.Add(10*time.Hour))
	require.NoError(t, err)
	assert.False(t, open)
}

func TestIsOpenNoScheduleRow(t *testing.T) {
	evaluator := newEvaluator()

	open, err := evaluator.IsOpen(context.Background(), 1, wednesday.Add(10*time.Hour))
	require.NoError(t, err)
	assert.False(t, open)
}

func TestIsOpenMalformedTime(t *testing.T) {
	evaluator := newEvaluator(model.Schedule{
		QueueID: 1, Weekday: time.Wednesday, OpenTime: "8am", EndTime: "17:00",
	})

	_, err := evaluator.IsOpen(context.Background(), 1, wednesday.Add(10*time.Hour))
	assert.Error(t, err)
}
