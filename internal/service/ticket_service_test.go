package service_test

import (
	"context"
	"errors"
	"testing"

	"senha-engine/internal/fanout"
	"senha-engine/internal/model"
	"senha-engine/internal/service"
	apperrors "senha-engine/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueReturnsPositionAndEstimate(t *testing.T) {
	f := newServiceFixture()
	tickets := service.NewTicketService(f.ledger, f.cluster, nil, f.hub)
	ctx := context.Background()

	events, cancel := f.hub.Subscribe(fanout.QueueTopic(1))
	defer cancel()

	issued, err := tickets.Issue(ctx, 1, model.IssueTicketRequest{UserID: 101})
	require.NoError(t, err)

	assert.Equal(t, "A-001", issued.DisplayNumber)
	assert.Equal(t, 1, issued.Position)
	assert.Equal(t, 5.0, issued.EstimatedWait, "fixed default without an estimator")
	assert.Equal(t, model.StatusPending, issued.Ticket.Status)
	assert.NotEmpty(t, issued.Ticket.QRCode)

	event := <-events
	assert.Equal(t, model.EventIssued, event.Type)
	assert.Equal(t, issued.Ticket.ID, event.TicketID)
}

func TestIssueFullQueueCarriesAlternatives(t *testing.T) {
	f := newServiceFixture()
	tickets := service.NewTicketService(f.ledger, f.cluster, nil, f.hub)
	ctx := context.Background()

	issueN(t, f, 2) // fills the limit-2 queue

	_, err := tickets.Issue(ctx, 1, model.IssueTicketRequest{UserID: 300})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrQueueFull))

	var full *apperrors.QueueFullError
	require.True(t, errors.As(err, &full))
	assert.Equal(t, []int64{2, 3, 4}, full.Alternatives, "capped at three suggestions")
}

func TestCancelPublishesEvent(t *testing.T) {
	f := newServiceFixture()
	tickets := service.NewTicketService(f.ledger, f.cluster, nil, f.hub)
	ctx := context.Background()

	issued, err := tickets.Issue(ctx, 1, model.IssueTicketRequest{UserID: 101})
	require.NoError(t, err)

	events, cancel := f.hub.Subscribe(fanout.InstitutionTopic(1))
	defer cancel()

	cancelled, err := tickets.Cancel(ctx, issued.Ticket.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	event := <-events
	assert.Equal(t, model.EventCancelled, event.Type)
	assert.Equal(t, model.StatusCancelled, event.Status)
}

func TestSnapshotReflectsLedger(t *testing.T) {
	f := newServiceFixture()
	f.raiseLimit(10)
	tickets := service.NewTicketService(f.ledger, f.cluster, nil, f.hub)
	ctx := context.Background()

	issueN(t, f, 3)

	snapshot, err := tickets.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.ActiveTickets)
	assert.Equal(t, 3, snapshot.LastNumber)
	assert.Equal(t, 0, snapshot.CurrentTicket)
}
