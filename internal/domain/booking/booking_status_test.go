package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		want     bool
	}{
		{StatusPendingPayment, StatusAwaitingPayment, true},
		{StatusPendingPayment, StatusPaid, true},
		{StatusAwaitingPayment, StatusPaid, true},
		{StatusAwaitingPayment, StatusCheckedIn, false},
		{StatusPaid, StatusCheckedIn, true},
		{StatusPaid, StatusRefunded, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusCheckedIn, StatusCancelled, false},
		{StatusCheckedIn, StatusCheckedOut, true},
		{StatusCompleted, StatusRefunded, false},
		{StatusCancelled, StatusPaid, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBookingStatus_Classification(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.IsValid(), s)
	}
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusCheckedOut.IsTerminal())
	assert.False(t, StatusPaid.IsTerminal())

	assert.True(t, StatusCheckedIn.IsPaid())
	assert.False(t, StatusAwaitingPayment.IsPaid())
	assert.False(t, StatusRefunded.IsPaid())

	_, err := ParseBookingStatus("shipped")
	assert.Error(t, err)
	s, err := ParseBookingStatus("confirmed")
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)
}
