package schedule

import (
	"context"
	"fmt"
	"time"

	"senha-engine/internal/directory"
	"senha-engine/internal/model"
)

// Evaluator answers whether a queue admits tickets at a given instant. It has
// no side effects; it gates issuance, dispatch and the sweeps.
type Evaluator struct {
	directory directory.Directory
}

func NewEvaluator(dir directory.Directory) *Evaluator {
	return &Evaluator{directory: dir}
}

// IsOpen looks up the schedule row for at's weekday. Absent row, is_closed,
// or at outside [open_time, end_time) all mean closed.
func (e *Evaluator) IsOpen(ctx context.Context, queueID int64, at time.Time) (bool, error) {
	row, found, err := e.directory.GetSchedule(ctx, queueID, at.Weekday())
	if err != nil {
		return false, err
	}
	if !found || row.IsClosed {
		return false, nil
	}
	return withinWindow(row, at)
}

func withinWindow(row model.Schedule, at time.Time) (bool, error) {
	open, err := minutesOfDay(row.OpenTime)
	if err != nil {
		return false, fmt.Errorf("queue %d schedule open_time: %w", row.QueueID, err)
	}
	end, err := minutesOfDay(row.EndTime)
	if err != nil {
		return false, fmt.Errorf("queue %d schedule end_time: %w", row.QueueID, err)
	}

	now := at.Hour()*60 + at.Minute()
	return now >= open && now < end, nil
}

func minutesOfDay(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
