package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"senha-engine/internal/directory"
	"senha-engine/internal/model"
	"senha-engine/internal/schedule"
	apperrors "senha-engine/pkg/app_errors"
	"senha-engine/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger owns every ticket status mutation and the per-queue live counters:
// numbering, active (pending) count, rotation cursor and current ticket. All
// read-compute-write sequences run under the owning queue's mutex, so
// concurrent requests on one queue serialize while independent queues do not
// coordinate at all.
//
// The ledger commits state only. Callers publish fan-out events and send
// notifications after the mutation returns; no I/O happens under a queue lock.
type Ledger struct {
	directory directory.Directory
	evaluator *schedule.Evaluator
	log       *zap.Logger

	// Now is swapped out by tests that drive call expiry.
	Now func() time.Time

	mu      sync.Mutex
	queues  map[int64]*queueState
	tickets map[int64]int64 // ticket id → queue id
	nextID  int64
}

// queueState is the live state of one queue. Its mutex is the per-queue
// exclusivity guarantee from the concurrency model.
type queueState struct {
	mu sync.Mutex

	queue model.Queue

	lastNumber    int
	currentTicket int
	lastCounter   int
	active        int

	tickets      map[int64]*model.Ticket
	lastServedAt *time.Time
}

func New(dir directory.Directory, evaluator *schedule.Evaluator) *Ledger {
	return &Ledger{
		directory: dir,
		evaluator: evaluator,
		log:       logger.WithComponent("ledger"),
		Now:       time.Now,
		queues:    make(map[int64]*queueState),
		tickets:   make(map[int64]int64),
	}
}

// state returns the queueState for queueID, loading the queue's static
// configuration from the directory on first touch.
func (l *Ledger) state(ctx context.Context, queueID int64) (*queueState, error) {
	l.mu.Lock()
	if qs, ok := l.queues[queueID]; ok {
		l.mu.Unlock()
		return qs, nil
	}
	l.mu.Unlock()

	queue, err := l.directory.GetQueue(ctx, queueID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if qs, ok := l.queues[queueID]; ok {
		return qs, nil
	}
	qs := &queueState{
		queue:   queue,
		tickets: make(map[int64]*model.Ticket),
	}
	l.queues[queueID] = qs
	return qs, nil
}

func (l *Ledger) stateByTicket(ticketID int64) (*queueState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	queueID, ok := l.tickets[ticketID]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	qs, ok := l.queues[queueID]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return qs, nil
}

// Queue returns the static configuration of a queue as the ledger sees it.
func (l *Ledger) Queue(ctx context.Context, queueID int64) (model.Queue, error) {
	qs, err := l.state(ctx, queueID)
	if err != nil {
		return model.Queue{}, err
	}
	return qs.queue, nil
}

// QueueIDs lists every queue the ledger has touched. The sweeps iterate this.
func (l *Ledger) QueueIDs() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]int64, 0, len(l.queues))
	for id := range l.queues {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Issue atomically allocates the next ticket number for the queue and
// increments the pending count. Preconditions checked inside the queue lock:
// capacity and the one-pending-ticket-per-requester rule (skipped for
// physical tickets, which carry no identity).
func (l *Ledger) Issue(ctx context.Context, queueID, userID int64, priority int, isPhysical bool) (*model.Ticket, error) {
	now := l.Now()

	open, err := l.evaluator.IsOpen(ctx, queueID, now)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, apperrors.ErrQueueClosed
	}

	qs, err := l.state(ctx, queueID)
	if err != nil {
		return nil, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	if qs.active >= qs.queue.DailyLimit {
		return nil, apperrors.ErrQueueFull
	}

	if !isPhysical {
		for _, t := range qs.tickets {
			if t.Status == model.StatusPending && t.UserID == userID {
				return nil, apperrors.ErrDuplicateActiveTicket
			}
		}
	}

	number := qs.lastNumber + 1
	for _, t := range qs.tickets {
		if t.Number == number {
			return nil, fmt.Errorf("%w: ticket number %d already allocated in queue %d",
				apperrors.ErrInternalServerError, number, queueID)
		}
	}

	ticket := &model.Ticket{
		ID:         l.allocateID(),
		QueueID:    queueID,
		Number:     number,
		QRCode:     uuid.NewString(),
		Status:     model.StatusPending,
		Priority:   priority,
		IsPhysical: isPhysical,
		IssuedAt:   now,
	}
	if !isPhysical {
		ticket.UserID = userID
	}

	qs.lastNumber = number
	qs.active++
	qs.tickets[ticket.ID] = ticket

	l.mu.Lock()
	l.tickets[ticket.ID] = queueID
	l.mu.Unlock()

	return copyTicket(ticket), nil
}

// Cancel is the owner-initiated cancellation, legal only from pending.
func (l *Ledger) Cancel(ctx context.Context, ticketID, requesterID int64) (*model.Ticket, error) {
	qs, err := l.stateByTicket(ticketID)
	if err != nil {
		return nil, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	t := qs.tickets[ticketID]
	if t == nil {
		return nil, apperrors.ErrTicketNotFound
	}
	if t.UserID != requesterID {
		return nil, apperrors.ErrNotOwner
	}
	if t.Status != model.StatusPending {
		return nil, apperrors.ErrInvalidState
	}

	if err := qs.transition(t, model.StatusCancelled); err != nil {
		return nil, err
	}
	t.TradeAvailable = false
	return copyTicket(t), nil
}

// CallNext selects the pending ticket with the highest priority (FIFO by
// ticket number within a band), assigns the next counter round-robin and
// starts the expiry clock. Selection and mutation are one critical section:
// two operators calling concurrently can never dispatch the same ticket or
// double-allocate a counter slot.
func (l *Ledger) CallNext(ctx context.Context, queueID int64, timeout time.Duration) (*model.Ticket, error) {
	now := l.Now()

	open, err := l.evaluator.IsOpen(ctx, queueID, now)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, apperrors.ErrQueueClosed
	}

	qs, err := l.state(ctx, queueID)
	if err != nil {
		return nil, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	var next *model.Ticket
	for _, t := range qs.tickets {
		if t.Status != model.StatusPending {
			continue
		}
		if next == nil ||
			t.Priority > next.Priority ||
			(t.Priority == next.Priority && t.Number < next.Number) {
			next = t
		}
	}
	if next == nil {
		return nil, apperrors.ErrNoPendingTicket
	}

	counters := qs.queue.NumCounters
	if counters < 1 {
		counters = 1
	}
	counter := qs.lastCounter%counters + 1

	if err := qs.transition(next, model.StatusCalled); err != nil {
		return nil, err
	}

	qs.lastCounter = counter
	next.Counter = counter
	next.TradeAvailable = false
	expires := now.Add(timeout)
	next.ExpiresAt = &expires
	if next.Number > qs.currentTicket {
		qs.currentTicket = next.Number
	}

	return copyTicket(next), nil
}

// Offer marks a pending ticket as available for trade.
func (l *Ledger) Offer(ctx context.Context, ticketID, ownerID int64) (*model.Ticket, error) {
	qs, err := l.stateByTicket(ticketID)
	if err != nil {
		return nil, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	t := qs.tickets[ticketID]
	if t == nil {
		return nil, apperrors.ErrTicketNotFound
	}
	if t.UserID != ownerID {
		return nil, apperrors.ErrNotOwner
	}
	if t.Status != model.StatusPending || t.TradeAvailable {
		return nil, apperrors.ErrInvalidState
	}

	t.TradeAvailable = true
	return copyTicket(t), nil
}

// Swap exchanges ownership between the requester's ticket and a ticket
// offered for trade in the same queue. Both tickets live under one queue
// lock, so the swap is atomic; ticket ids are validated lower-first which
// keeps the check order deterministic.
func (l *Ledger) Swap(ctx context.Context, ticketID, targetID, requesterID int64) (*model.Ticket, *model.Ticket, error) {
	if ticketID == targetID {
		return nil, nil, apperrors.ErrInvalidState
	}

	l.mu.Lock()
	queueID, ok := l.tickets[ticketID]
	targetQueueID, okTarget := l.tickets[targetID]
	l.mu.Unlock()
	if !ok || !okTarget {
		return nil, nil, apperrors.ErrTicketNotFound
	}
	if queueID != targetQueueID {
		return nil, nil, apperrors.ErrQueueMismatch
	}

	qs, err := l.state(ctx, queueID)
	if err != nil {
		return nil, nil, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	first, second := ticketID, targetID
	if second < first {
		first, second = second, first
	}
	for _, id := range []int64{first, second} {
		if qs.tickets[id] == nil {
			return nil, nil, apperrors.ErrTicketNotFound
		}
	}

	mine := qs.tickets[ticketID]
	target := qs.tickets[targetID]

	if mine.UserID != requesterID {
		return nil, nil, apperrors.ErrNotOwner
	}
	if !target.TradeAvailable {
		return nil, nil, apperrors.ErrNotTradeable
	}
	if mine.Status != model.StatusPending || target.Status != model.StatusPending {
		return nil, nil, apperrors.ErrInvalidState
	}

	mine.UserID, target.UserID = target.UserID, mine.UserID
	mine.TradeAvailable = false
	target.TradeAvailable = false

	return copyTicket(mine), copyTicket(target), nil
}

// Serve completes a called ticket after presence validation. The status and
// deadline are re-checked under the queue lock so a late validation and the
// expiry sweep are mutually exclusive. Returns the observed service time in
// minutes (zero for the first serve of the day).
func (l *Ledger) Serve(ctx context.Context, ticketID int64) (*model.Ticket, float64, error) {
	qs, err := l.stateByTicket(ticketID)
	if err != nil {
		return nil, 0, err
	}

	now := l.Now()

	qs.mu.Lock()
	defer qs.mu.Unlock()

	t := qs.tickets[ticketID]
	if t == nil {
		return nil, 0, apperrors.ErrTicketNotFound
	}
	if t.Status != model.StatusCalled {
		return nil, 0, apperrors.ErrInvalidState
	}
	if t.ExpiresAt == nil || !t.ExpiresAt.After(now) {
		return nil, 0, apperrors.ErrInvalidState
	}

	if err := qs.transition(t, model.StatusServed); err != nil {
		return nil, 0, err
	}
	t.AttendedAt = &now

	var serviceMinutes float64
	if qs.lastServedAt != nil {
		serviceMinutes = now.Sub(*qs.lastServedAt).Minutes()
	}
	qs.lastServedAt = &now

	return copyTicket(t), serviceMinutes, nil
}

// ExpireCalled cancels every called ticket in the queue whose deadline has
// passed. The proactive sweep is the sole caller; no other path converts an
// expired call to cancelled.
func (l *Ledger) ExpireCalled(ctx context.Context, queueID int64) ([]*model.Ticket, error) {
	qs, err := l.state(ctx, queueID)
	if err != nil {
		return nil, err
	}

	now := l.Now()

	qs.mu.Lock()
	defer qs.mu.Unlock()

	var expired []*model.Ticket
	for _, t := range qs.tickets {
		if !t.Expired(now) {
			continue
		}
		if err := qs.transition(t, model.StatusCancelled); err != nil {
			return expired, err
		}
		expired = append(expired, copyTicket(t))
	}
	sortByNumber(expired)
	return expired, nil
}

// CancelPending cancels every pending ticket in the queue. The proactive
// sweep uses this when a queue has closed since issuance.
func (l *Ledger) CancelPending(ctx context.Context, queueID int64) ([]*model.Ticket, error) {
	qs, err := l.state(ctx, queueID)
	if err != nil {
		return nil, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	var cancelled []*model.Ticket
	for _, t := range qs.tickets {
		if t.Status != model.StatusPending {
			continue
		}
		if err := qs.transition(t, model.StatusCancelled); err != nil {
			return cancelled, err
		}
		t.TradeAvailable = false
		cancelled = append(cancelled, copyTicket(t))
	}
	sortByNumber(cancelled)
	return cancelled, nil
}

// Get returns a copy of the ticket.
func (l *Ledger) Get(ticketID int64) (*model.Ticket, error) {
	qs, err := l.stateByTicket(ticketID)
	if err != nil {
		return nil, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()
	t := qs.tickets[ticketID]
	if t == nil {
		return nil, apperrors.ErrTicketNotFound
	}
	return copyTicket(t), nil
}

// Pending returns copies of the queue's pending tickets ordered by number.
func (l *Ledger) Pending(ctx context.Context, queueID int64) ([]*model.Ticket, error) {
	qs, err := l.state(ctx, queueID)
	if err != nil {
		return nil, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	pending := make([]*model.Ticket, 0)
	for _, t := range qs.tickets {
		if t.Status == model.StatusPending {
			pending = append(pending, copyTicket(t))
		}
	}
	sortByNumber(pending)
	return pending, nil
}

// Called returns copies of the queue's called tickets ordered by number.
func (l *Ledger) Called(ctx context.Context, queueID int64) ([]*model.Ticket, error) {
	qs, err := l.state(ctx, queueID)
	if err != nil {
		return nil, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	called := make([]*model.Ticket, 0)
	for _, t := range qs.tickets {
		if t.Status == model.StatusCalled {
			called = append(called, copyTicket(t))
		}
	}
	sortByNumber(called)
	return called, nil
}

// Snapshot is the display-board view of the queue counters.
func (l *Ledger) Snapshot(ctx context.Context, queueID int64) (model.QueueSnapshot, error) {
	qs, err := l.state(ctx, queueID)
	if err != nil {
		return model.QueueSnapshot{}, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()
	return model.QueueSnapshot{
		QueueID:       queueID,
		CurrentTicket: qs.currentTicket,
		ActiveTickets: qs.active,
		LastNumber:    qs.lastNumber,
		DailyLimit:    qs.queue.DailyLimit,
	}, nil
}

// CurrentTicket returns the highest ticket number a call has reached.
func (l *Ledger) CurrentTicket(ctx context.Context, queueID int64) (int, error) {
	snap, err := l.Snapshot(ctx, queueID)
	if err != nil {
		return 0, err
	}
	return snap.CurrentTicket, nil
}

// ResetDay clears the queue's tickets and counters at service-day roll.
// Numbering restarts from 1; current_ticket stays monotonic within a day
// because it only ever resets here.
func (l *Ledger) ResetDay(ctx context.Context, queueID int64) error {
	qs, err := l.state(ctx, queueID)
	if err != nil {
		return err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	l.mu.Lock()
	for id := range qs.tickets {
		delete(l.tickets, id)
	}
	l.mu.Unlock()

	cleared := len(qs.tickets)
	qs.tickets = make(map[int64]*model.Ticket)
	qs.lastNumber = 0
	qs.currentTicket = 0
	qs.lastCounter = 0
	qs.active = 0
	qs.lastServedAt = nil

	l.log.Info("queue reset for new service day",
		zap.Int64("queue_id", queueID), zap.Int("cleared", cleared))
	return nil
}

func (l *Ledger) allocateID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	return l.nextID
}

// transition applies a status change and maintains the pending count. Caller
// holds the queue lock. A negative pending count means the locking contract
// was violated somewhere; it aborts rather than self-correcting.
func (qs *queueState) transition(t *model.Ticket, target model.TicketStatus) error {
	if !t.Status.CanTransitionTo(target) {
		return apperrors.ErrInvalidState
	}
	if t.Status == model.StatusPending {
		qs.active--
		if qs.active < 0 {
			return fmt.Errorf("%w: negative active count in queue %d",
				apperrors.ErrInternalServerError, t.QueueID)
		}
	}
	t.Status = target
	return nil
}

func copyTicket(t *model.Ticket) *model.Ticket {
	c := *t
	if t.ExpiresAt != nil {
		expires := *t.ExpiresAt
		c.ExpiresAt = &expires
	}
	if t.AttendedAt != nil {
		attended := *t.AttendedAt
		c.AttendedAt = &attended
	}
	return &c
}

func sortByNumber(tickets []*model.Ticket) {
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].Number < tickets[j].Number })
}
