package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"senha-engine/internal/cluster"
	"senha-engine/internal/directory"
	"senha-engine/internal/fanout"
	"senha-engine/internal/ledger"
	"senha-engine/internal/model"
	"senha-engine/internal/notify"
	"senha-engine/internal/schedule"
)

// 2026-03-04 10:00 UTC is a Wednesday morning.
var serviceBase = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

const testCallTimeout = 5 * time.Minute

type serviceFixture struct {
	ledger    *ledger.Ledger
	dir       *directory.Memory
	evaluator *schedule.Evaluator
	hub       *fanout.Hub
	recorder  *notify.Recorder
	cluster   *cluster.Static

	mu  sync.Mutex
	now time.Time
}

func (f *serviceFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newServiceFixture() *serviceFixture {
	dir := directory.NewMemory()
	dir.PutBranch(model.Branch{ID: 1, InstitutionID: 1, Name: "Centro", Latitude: -5.089, Longitude: -42.801})
	dir.PutQueue(model.Queue{
		ID: 1, BranchID: 1, InstitutionID: 1, Name: "Atendimento Geral",
		Prefix: "A", DailyLimit: 2, NumCounters: 2,
	})
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		dir.PutSchedule(model.Schedule{QueueID: 1, Weekday: weekday, OpenTime: "08:00", EndTime: "18:00"})
	}

	f := &serviceFixture{
		dir:      dir,
		hub:      fanout.NewHub(),
		recorder: &notify.Recorder{},
		cluster:  &cluster.Static{ByQueue: map[int64][]int64{1: {2, 3, 4, 5}}},
		now:      serviceBase,
	}
	f.evaluator = schedule.NewEvaluator(dir)
	f.ledger = ledger.New(dir, f.evaluator)
	f.ledger.Now = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	return f
}

func (f *serviceFixture) raiseLimit(limit int) {
	// Directory changes only affect queues the ledger has not loaded yet, so
	// tests call this before the first issuance.
	f.dir.PutQueue(model.Queue{
		ID: 1, BranchID: 1, InstitutionID: 1, Name: "Atendimento Geral",
		Prefix: "A", DailyLimit: limit, NumCounters: 2,
	})
}

func issueN(t *testing.T, f *serviceFixture, n int) []*model.Ticket {
	t.Helper()
	tickets := make([]*model.Ticket, 0, n)
	for i := 0; i < n; i++ {
		ticket, err := f.ledger.Issue(context.Background(), 1, int64(100+i), 0, false)
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets
}
