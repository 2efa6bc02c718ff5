package service_test

import (
	"context"
	"testing"
	"time"

	"senha-engine/internal/fanout"
	"senha-engine/internal/model"
	"senha-engine/internal/service"
	apperrors "senha-engine/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallNextDispatchesAndNotifies(t *testing.T) {
	f := newServiceFixture()
	f.raiseLimit(10)
	calls := service.NewCallService(f.ledger, f.hub, f.recorder, testCallTimeout)
	ctx := context.Background()

	issued := issueN(t, f, 2)

	events, cancel := f.hub.Subscribe(fanout.QueueTopic(1))
	defer cancel()

	called, err := calls.CallNext(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, issued[0].ID, called.ID)
	assert.Equal(t, model.StatusCalled, called.Status)
	assert.Equal(t, 1, called.Counter)

	event := <-events
	assert.Equal(t, model.EventCalled, event.Type)
	assert.Equal(t, called.ID, event.TicketID)
	assert.Equal(t, 1, event.Counter)

	sends := f.recorder.Sends()
	require.Len(t, sends, 1)
	assert.Equal(t, issued[0].UserID, sends[0].RecipientID)
	assert.Contains(t, sends[0].Message, "counter 1")
}

func TestCallNextEmptyQueue(t *testing.T) {
	f := newServiceFixture()
	calls := service.NewCallService(f.ledger, f.hub, f.recorder, testCallTimeout)

	_, err := calls.CallNext(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrNoPendingTicket)
}

func TestCallNextClosedQueue(t *testing.T) {
	f := newServiceFixture()
	calls := service.NewCallService(f.ledger, f.hub, f.recorder, testCallTimeout)

	f.advance(12 * time.Hour) // past closing

	_, err := calls.CallNext(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrQueueClosed)
}
