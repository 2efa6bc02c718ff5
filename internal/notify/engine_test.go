package notify

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"senha-engine/config"
	"senha-engine/internal/directory"
	"senha-engine/internal/estimator"
	"senha-engine/internal/fanout"
	"senha-engine/internal/geo"
	"senha-engine/internal/ledger"
	"senha-engine/internal/model"
	"senha-engine/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-04 10:00 UTC, a Wednesday morning. The fixture queue only has a
// Wednesday schedule, so advancing a day closes it.
var sweepBase = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func pointFixture() geo.Point {
	return geo.Point{Latitude: -5.089, Longitude: -42.801}
}

type stubModel struct {
	wait   float64
	demand float64
	err    error
}

func (s *stubModel) PredictWaitMinutes(context.Context, estimator.Features) (float64, error) {
	return s.wait, s.err
}

func (s *stubModel) PredictDemand(context.Context, int64, int) (float64, error) {
	return s.demand, s.err
}

type sweepFixture struct {
	engine   *Engine
	ledger   *ledger.Ledger
	dir      *directory.Memory
	recorder *Recorder
	hub      *fanout.Hub
	model    *stubModel

	mu  sync.Mutex
	now time.Time
}

func (f *sweepFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newSweepFixture() *sweepFixture {
	dir := directory.NewMemory()
	dir.PutBranch(model.Branch{ID: 1, InstitutionID: 1, Name: "Centro", Latitude: pointFixture().Latitude, Longitude: pointFixture().Longitude})
	dir.PutQueue(model.Queue{
		ID: 1, BranchID: 1, InstitutionID: 1, Name: "Atendimento Geral",
		Service: "identity", Prefix: "A", DailyLimit: 50, NumCounters: 2,
	})
	dir.PutSchedule(model.Schedule{QueueID: 1, Weekday: time.Wednesday, OpenTime: "08:00", EndTime: "18:00"})

	f := &sweepFixture{
		dir:      dir,
		recorder: &Recorder{},
		hub:      fanout.NewHub(),
		model:    &stubModel{wait: 30, demand: 0.1},
		now:      sweepBase,
	}
	clock := func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}

	evaluator := schedule.NewEvaluator(dir)
	f.ledger = ledger.New(dir, evaluator)
	f.ledger.Now = clock

	throttle := NewMemoryThrottle()
	throttle.Now = clock
	locations := NewLocations()
	locations.Now = clock

	f.engine = NewEngine(dir, f.ledger, evaluator, f.model, f.recorder, throttle, f.hub, locations, config.GetEngineConfig())
	f.engine.Now = clock
	return f
}

func (f *sweepFixture) sendsContaining(fragment string) []RecordedSend {
	matched := make([]RecordedSend, 0)
	for _, send := range f.recorder.Sends() {
		if strings.Contains(send.Message, fragment) {
			matched = append(matched, send)
		}
	}
	return matched
}

func TestProactiveSweepExpiresOverdueCalls(t *testing.T) {
	f := newSweepFixture()
	ctx := context.Background()

	ticket, err := f.ledger.Issue(ctx, 1, 101, 0, false)
	require.NoError(t, err)
	_, err = f.ledger.CallNext(ctx, 1, 5*time.Minute)
	require.NoError(t, err)

	events, cancel := f.hub.Subscribe(fanout.QueueTopic(1))
	defer cancel()

	// Still within the deadline: nothing happens.
	require.NoError(t, f.engine.ProactiveSweep(ctx))
	assert.Empty(t, f.sendsContaining("expired"))

	f.advance(6 * time.Minute)
	require.NoError(t, f.engine.ProactiveSweep(ctx))

	stored, err := f.ledger.Get(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)

	expiredSends := f.sendsContaining("expired")
	require.Len(t, expiredSends, 1)
	assert.Equal(t, int64(101), expiredSends[0].RecipientID)

	event := <-events
	assert.Equal(t, model.EventCancelled, event.Type)
	assert.Equal(t, ticket.ID, event.TicketID)

	// Re-running finds nothing new.
	require.NoError(t, f.engine.ProactiveSweep(ctx))
	assert.Len(t, f.sendsContaining("expired"), 1)
}

func TestProactiveSweepCancelsTicketsOfClosedQueues(t *testing.T) {
	f := newSweepFixture()
	ctx := context.Background()

	ticket, err := f.ledger.Issue(ctx, 1, 101, 0, false)
	require.NoError(t, err)

	f.advance(24 * time.Hour) // Thursday: no schedule row, queue closed

	require.NoError(t, f.engine.ProactiveSweep(ctx))

	stored, err := f.ledger.Get(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)

	closedSends := f.sendsContaining("closed")
	require.Len(t, closedSends, 1)
	assert.Equal(t, int64(101), closedSends[0].RecipientID)
}

func TestProactiveSweepNearTurnAlertThrottled(t *testing.T) {
	f := newSweepFixture()
	f.model.wait = 3 // at or under the 5 minute threshold
	ctx := context.Background()

	_, err := f.ledger.Issue(ctx, 1, 101, 0, false)
	require.NoError(t, err)

	require.NoError(t, f.engine.ProactiveSweep(ctx))
	assert.Len(t, f.sendsContaining("turn is near"), 1)

	// Immediately again: suppressed.
	require.NoError(t, f.engine.ProactiveSweep(ctx))
	assert.Len(t, f.sendsContaining("turn is near"), 1)

	f.advance(61 * time.Second)
	require.NoError(t, f.engine.ProactiveSweep(ctx))
	assert.Len(t, f.sendsContaining("turn is near"), 2)
}

func TestProactiveSweepStartMovingAlert(t *testing.T) {
	f := newSweepFixture()
	f.model.wait = 10 // above the near-turn threshold
	ctx := context.Background()

	_, err := f.ledger.Issue(ctx, 1, 101, 0, false)
	require.NoError(t, err)

	// Without a known location no travel advice is possible.
	require.NoError(t, f.engine.ProactiveSweep(ctx))
	assert.Empty(t, f.sendsContaining("Start moving"))

	// ~1.1 km away: about 15 walking minutes, more than the 10 minute wait.
	far := geo.Point{Latitude: pointFixture().Latitude + 0.01, Longitude: pointFixture().Longitude}
	_, err = f.engine.ProximitySweep(ctx, 101, far, "")
	require.NoError(t, err)

	require.NoError(t, f.engine.ProactiveSweep(ctx))
	moving := f.sendsContaining("Start moving")
	require.Len(t, moving, 1)
	assert.Equal(t, int64(101), moving[0].RecipientID)
}

func TestProximitySweepNotifiesPerBranchAndThrottles(t *testing.T) {
	f := newSweepFixture()
	ctx := context.Background()

	sent, err := f.engine.ProximitySweep(ctx, 101, pointFixture(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	nearby := f.sendsContaining("nearby")
	require.Len(t, nearby, 1)
	assert.Equal(t, int64(101), nearby[0].RecipientID)

	// Same user, same cell, within the hour: suppressed.
	sent, err = f.engine.ProximitySweep(ctx, 101, pointFixture(), "")
	require.NoError(t, err)
	assert.Zero(t, sent)

	// A different user is not affected by the first user's throttle key.
	sent, err = f.engine.ProximitySweep(ctx, 202, pointFixture(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestProximitySweepFilters(t *testing.T) {
	f := newSweepFixture()
	ctx := context.Background()

	// Service filter mismatch.
	sent, err := f.engine.ProximitySweep(ctx, 101, pointFixture(), "passport")
	require.NoError(t, err)
	assert.Zero(t, sent)

	// High predicted demand keeps the queue out.
	f.model.demand = 0.9
	sent, err = f.engine.ProximitySweep(ctx, 102, pointFixture(), "")
	require.NoError(t, err)
	assert.Zero(t, sent)

	// Out of range.
	f.model.demand = 0.1
	away := geo.Point{Latitude: pointFixture().Latitude + 0.05, Longitude: pointFixture().Longitude}
	sent, err = f.engine.ProximitySweep(ctx, 103, away, "")
	require.NoError(t, err)
	assert.Zero(t, sent)

	// Closed queue never qualifies.
	f.advance(24 * time.Hour)
	sent, err = f.engine.ProximitySweep(ctx, 104, pointFixture(), "")
	require.NoError(t, err)
	assert.Zero(t, sent)
}
