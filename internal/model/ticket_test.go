package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusTransitions(t *testing.T) {
	cases := []struct {
		from    TicketStatus
		to      TicketStatus
		allowed bool
	}{
		{StatusPending, StatusCalled, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusServed, false},
		{StatusCalled, StatusServed, true},
		{StatusCalled, StatusCancelled, true},
		{StatusCalled, StatusPending, false},
		{StatusServed, StatusCancelled, false},
		{StatusServed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCalled, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransitionTo(c.to),
			"%s -> %s should be %v", c.from, c.to, c.allowed)
	}
}

func TestTicketStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusCalled.IsTerminal())
	assert.True(t, StatusServed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestDisplayNumber(t *testing.T) {
	ticket := &Ticket{Number: 7}
	assert.Equal(t, "B-007", ticket.DisplayNumber("B"))

	ticket.Number = 1042
	assert.Equal(t, "B-1042", ticket.DisplayNumber("B"))
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	deadline := now.Add(5 * time.Minute)

	ticket := &Ticket{Status: StatusCalled, ExpiresAt: &deadline}
	assert.False(t, ticket.Expired(now))
	assert.False(t, ticket.Expired(now.Add(5*time.Minute-time.Second)))
	assert.True(t, ticket.Expired(now.Add(5*time.Minute)))

	// Only called tickets expire.
	pending := &Ticket{Status: StatusPending, ExpiresAt: &deadline}
	assert.False(t, pending.Expired(now.Add(time.Hour)))
}
