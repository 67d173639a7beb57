package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/flexidesk/service-booking/internal/domain/booking"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
)

// ErrLockTimeout is returned by LocalLocker when ctx ends before the lock is free.
var ErrLockTimeout = errors.New("timed out waiting for listing lock")

// ListingLocker serializes the check-then-insert of bookings for a listing.
type ListingLocker interface {
	LockListing(ctx context.Context, listingID uuid.UUID) (release func(), err error)
}

// LocalLocker is an in-process ListingLocker for single-instance deployments.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*localLock
}

type localLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[uuid.UUID]*localLock)}
}

// LockListing blocks until the listing's lock is held or ctx is done.
func (l *LocalLocker) LockListing(ctx context.Context, listingID uuid.UUID) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[listingID]
	if !ok {
		lk = &localLock{sem: make(chan struct{}, 1)}
		l.locks[listingID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.sem <- struct{}{}:
		return func() {
			<-lk.sem
			l.unref(listingID, lk)
		}, nil
	case <-ctx.Done():
		l.unref(listingID, lk)
		return nil, ErrLockTimeout
	}
}

func (l *LocalLocker) unref(id uuid.UUID, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, id)
	}
}

// OverlapQuery is a candidate reservation window for a listing.
type OverlapQuery struct {
	ListingID    uuid.UUID
	StartDate    string
	EndDate      string
	CheckInTime  string
	CheckOutTime string
	Exclude      *uuid.UUID
}

// AvailabilityChecker detects reservations that collide with a candidate window.
type AvailabilityChecker struct {
	repo bookingDomain.BookingRepository
	loc  *time.Location
}

// NewAvailabilityChecker creates an AvailabilityChecker resolving wall-clock times in loc.
func NewAvailabilityChecker(repo bookingDomain.BookingRepository, loc *time.Location) *AvailabilityChecker {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityChecker{repo: repo, loc: loc}
}

// Location returns the time zone windows are resolved in.
func (c *AvailabilityChecker) Location() *time.Location { return c.loc }

// CheckOverlap returns the first non-cancelled booking overlapping the candidate window,
// or nil when the window is free. A window that does not resolve to a positive
// duration is rejected with a validation error.
func (c *AvailabilityChecker) CheckOverlap(ctx context.Context, q OverlapQuery) (*bookingDomain.Booking, error) {
	window, err := bookingDomain.ResolveWindow(q.StartDate, q.EndDate, q.CheckInTime, q.CheckOutTime, c.loc)
	if err != nil {
		return nil, apperror.NewValidationError(err.Error())
	}

	existing, err := c.repo.FindActiveInRange(ctx, q.ListingID, q.StartDate, q.EndDate, q.Exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for listing %s: %w", q.ListingID, err)
	}
	return bookingDomain.FirstConflict(window, existing, c.loc), nil
}

// BlockedDates lists the nights taken by non-cancelled bookings that end on or after today.
func (c *AvailabilityChecker) BlockedDates(ctx context.Context, listingID uuid.UUID, now time.Time) ([]string, error) {
	today := now.In(c.loc).Format(bookingDomain.DateLayout)
	active, err := c.repo.FindActiveEndingOnOrAfter(ctx, listingID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for listing %s: %w", listingID, err)
	}
	return bookingDomain.BlockedDates(active), nil
}
