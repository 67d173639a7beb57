package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexidesk/service-booking/internal/platform/apperror"
)

type countingSigner struct{ calls int }

func (s *countingSigner) Sign(b, l uuid.UUID) string {
	s.calls++
	return "FD:" + b.String() + ":" + l.String()
}

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	bk, err := NewBooking(NewBookingParams{
		ListingID:    uuid.New(),
		GuestID:      uuid.New(),
		HostID:       uuid.New(),
		StartDate:    "2025-03-03",
		EndDate:      "2025-03-03",
		CheckInTime:  "09:00",
		CheckOutTime: "12:00",
		AmountCents:  30000,
	})
	require.NoError(t, err)
	return bk
}

var beforeStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func TestNewBooking_Validation(t *testing.T) {
	base := NewBookingParams{
		ListingID: uuid.New(), GuestID: uuid.New(), StartDate: "2025-03-03", EndDate: "2025-03-03", AmountCents: 1,
	}

	bk, err := NewBooking(base)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment, bk.Status())
	assert.Equal(t, "PHP", bk.Currency())
	assert.Equal(t, 1, bk.Guests())
	assert.Equal(t, int64(1), bk.Version())

	noGuest := base
	noGuest.GuestID = uuid.Nil
	_, err = NewBooking(noGuest)
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))

	free := base
	free.AmountCents = 0
	_, err = NewBooking(free)
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))

	backwards := base
	backwards.EndDate = "2025-03-02"
	_, err = NewBooking(backwards)
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))
}

func TestBooking_MarkPaidIsIdempotent(t *testing.T) {
	bk := newTestBooking(t)
	signer := &countingSigner{}
	require.NoError(t, bk.AttachCheckout("cs_1", "https://pay.test"))

	changed, err := bk.MarkPaid("pay_1", signer)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusPaid, bk.Status())
	token := bk.EntryToken()
	assert.NotEmpty(t, token)
	require.NotNil(t, bk.PaidAt())

	changed, err = bk.MarkPaid("pay_2", signer)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, token, bk.EntryToken())
	assert.Equal(t, "pay_1", bk.Payment().PaymentID)
	assert.Equal(t, 1, signer.calls)
}

func TestBooking_MarkPaidRejectsCancelled(t *testing.T) {
	bk := newTestBooking(t)
	_, err := bk.Cancel("", beforeStart)
	require.NoError(t, err)

	_, err = bk.MarkPaid("pay_1", &countingSigner{})
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestBooking_Cancel(t *testing.T) {
	bk := newTestBooking(t)

	changed, err := bk.Cancel("changed plans", beforeStart)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "changed plans", bk.CancelReason())

	changed, err = bk.Cancel("again", beforeStart)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "changed plans", bk.CancelReason())

	started := newTestBooking(t)
	_, err = started.Cancel("", started.Window().Start)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestBooking_HostLifecycle(t *testing.T) {
	bk := newTestBooking(t)
	now := time.Date(2025, 3, 3, 9, 5, 0, 0, time.UTC)

	assert.True(t, apperror.Is(bk.CheckIn(now), apperror.KindInvalidState))

	_, err := bk.MarkPaid("pay_1", &countingSigner{})
	require.NoError(t, err)
	require.NoError(t, bk.CheckIn(now))
	require.NotNil(t, bk.CheckedInAt())
	require.NoError(t, bk.CheckOut(now.Add(3*time.Hour)))
	assert.Equal(t, StatusCheckedOut, bk.Status())

	paid := newTestBooking(t)
	_, err = paid.MarkPaid("pay_2", &countingSigner{})
	require.NoError(t, err)
	require.NoError(t, paid.Complete(now))
	assert.True(t, apperror.Is(paid.Complete(now), apperror.KindInvalidState))
}

func TestBooking_RefundAndForceStatus(t *testing.T) {
	bk := newTestBooking(t)
	_, err := bk.MarkPaid("pay_1", &countingSigner{})
	require.NoError(t, err)

	assert.True(t, apperror.Is(bk.ForceStatus(StatusPaid, beforeStart), apperror.KindInvalidInput))
	require.NoError(t, bk.ForceStatus(StatusConfirmed, beforeStart))
	require.NoError(t, bk.Refund("ref_1", 30000, beforeStart))
	assert.Equal(t, StatusRefunded, bk.Status())
	assert.Equal(t, int64(30000), bk.Payment().RefundedCents)
	assert.True(t, apperror.Is(bk.ForceStatus(StatusCheckedIn, beforeStart), apperror.KindInvalidState))
}

func TestBooking_GrossCents(t *testing.T) {
	bk := ReconstructBooking(Snapshot{ID: uuid.New(), Pricing: &PricingBreakdown{Total: 777}})
	assert.Equal(t, int64(777), bk.GrossCents())

	bk = ReconstructBooking(Snapshot{ID: uuid.New(), AmountCents: 500, Pricing: &PricingBreakdown{Total: 777, Fees: Fees{Service: 20, Cleaning: 30}}})
	assert.Equal(t, int64(500), bk.GrossCents())
	assert.Equal(t, int64(50), bk.FeeCents())
}

func TestFirstConflictAndBlockedDates(t *testing.T) {
	a := newTestBooking(t)
	cancelled := newTestBooking(t)
	_, err := cancelled.Cancel("", beforeStart)
	require.NoError(t, err)

	candidate, err := ResolveWindow("2025-03-03", "2025-03-03", "11:00", "13:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, a, FirstConflict(candidate, []*Booking{cancelled, a}, time.UTC))

	later, err := ResolveWindow("2025-03-03", "2025-03-03", "12:00", "13:00", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, FirstConflict(later, []*Booking{a}, time.UTC))

	multi := ReconstructBooking(Snapshot{ID: uuid.New(), StartDate: "2025-03-01", EndDate: "2025-03-04"})
	other := ReconstructBooking(Snapshot{ID: uuid.New(), StartDate: "2025-03-03", EndDate: "2025-03-05"})
	assert.Equal(t, []string{"2025-03-01", "2025-03-02", "2025-03-03", "2025-03-04"}, BlockedDates([]*Booking{multi, other}))
}
