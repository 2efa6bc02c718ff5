package directory

import (
	"context"
	"sync"
	"time"

	"senha-engine/internal/geo"
	"senha-engine/internal/model"
	apperrors "senha-engine/pkg/app_errors"
)

// Memory is an in-process Directory used by tests and single-node deploys.
type Memory struct {
	mu        sync.RWMutex
	queues    map[int64]model.Queue
	branches  map[int64]model.Branch
	schedules map[scheduleKey]model.Schedule
	samples   map[int64]int
}

type scheduleKey struct {
	queueID int64
	weekday time.Weekday
}

func NewMemory() *Memory {
	return &Memory{
		queues:    make(map[int64]model.Queue),
		branches:  make(map[int64]model.Branch),
		schedules: make(map[scheduleKey]model.Schedule),
		samples:   make(map[int64]int),
	}
}

func (m *Memory) PutQueue(q model.Queue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[q.ID] = q
}

func (m *Memory) PutBranch(b model.Branch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.branches[b.ID] = b
}

func (m *Memory) PutSchedule(s model.Schedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[scheduleKey{s.QueueID, s.Weekday}] = s
}

func (m *Memory) GetQueue(_ context.Context, queueID int64) (model.Queue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.queues[queueID]
	if !ok {
		return model.Queue{}, apperrors.ErrQueueNotFound
	}
	return q, nil
}

func (m *Memory) GetBranch(_ context.Context, branchID int64) (model.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.branches[branchID]
	if !ok {
		return model.Branch{}, apperrors.ErrBranchNotFound
	}
	return b, nil
}

func (m *Memory) GetSchedule(_ context.Context, queueID int64, weekday time.Weekday) (model.Schedule, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schedules[scheduleKey{queueID, weekday}]
	return s, ok, nil
}

func (m *Memory) ListQueuesNear(_ context.Context, lat, lon, radiusKm float64, service string) ([]model.Queue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from := geo.Point{Latitude: lat, Longitude: lon}
	result := make([]model.Queue, 0)
	for _, q := range m.queues {
		if service != "" && q.Service != service {
			continue
		}
		branch, ok := m.branches[q.BranchID]
		if !ok {
			continue
		}
		at := geo.Point{Latitude: branch.Latitude, Longitude: branch.Longitude}
		if geo.DistanceKm(from, at) <= radiusKm {
			result = append(result, q)
		}
	}
	return result, nil
}

func (m *Memory) RecordServiceTime(_ context.Context, queueID int64, minutes float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[queueID]
	if !ok {
		return apperrors.ErrQueueNotFound
	}

	n := m.samples[queueID]
	q.AvgServiceMin = (q.AvgServiceMin*float64(n) + minutes) / float64(n+1)
	m.samples[queueID] = n + 1
	m.queues[queueID] = q
	return nil
}
