package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/flexidesk/service-booking/internal/domain/booking"
	listingDomain "github.com/flexidesk/service-booking/internal/domain/listing"
	"github.com/flexidesk/service-booking/internal/notification"
	"github.com/flexidesk/service-booking/internal/payment"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
	"github.com/flexidesk/service-booking/internal/platform/kafka"
)

// memBookings is an in-memory BookingRepository storing snapshots so that
// optimistic locking behaves like the database.
type memBookings struct {
	mu   sync.Mutex
	rows map[uuid.UUID]bookingDomain.Snapshot

	// beforeSave runs ahead of Save; a non-nil error aborts the insert.
	beforeSave func(b *bookingDomain.Booking) error
}

func newMemBookings() *memBookings {
	return &memBookings{rows: make(map[uuid.UUID]bookingDomain.Snapshot)}
}

func (m *memBookings) all() []*bookingDomain.Booking {
	out := make([]*bookingDomain.Booking, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, bookingDomain.ReconstructBooking(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out
}

func (m *memBookings) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, apperror.NewNotFoundError("booking", id.String())
	}
	return bookingDomain.ReconstructBooking(s), nil
}

func (m *memBookings) findBy(match func(s bookingDomain.Snapshot) bool, what string) (*bookingDomain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if match(s) {
			return bookingDomain.ReconstructBooking(s), nil
		}
	}
	return nil, apperror.NewNotFoundError("booking", what)
}

func (m *memBookings) FindByPaymentID(_ context.Context, paymentID string) (*bookingDomain.Booking, error) {
	return m.findBy(func(s bookingDomain.Snapshot) bool { return s.Payment.PaymentID == paymentID }, paymentID)
}

func (m *memBookings) FindByCheckoutID(_ context.Context, checkoutID string) (*bookingDomain.Booking, error) {
	return m.findBy(func(s bookingDomain.Snapshot) bool { return s.Payment.CheckoutID == checkoutID }, checkoutID)
}

func (m *memBookings) FindActiveInRange(_ context.Context, listingID uuid.UUID, startDate, endDate string, exclude *uuid.UUID) ([]*bookingDomain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range m.all() {
		if b.ListingID() != listingID || b.Status() == bookingDomain.StatusCancelled {
			continue
		}
		if exclude != nil && b.ID() == *exclude {
			continue
		}
		if b.StartDate() <= endDate && b.EndDate() >= startDate {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBookings) FindActiveEndingOnOrAfter(_ context.Context, listingID uuid.UUID, date string) ([]*bookingDomain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range m.all() {
		if b.ListingID() == listingID && b.Status() != bookingDomain.StatusCancelled && b.EndDate() >= date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBookings) List(_ context.Context, f bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range m.all() {
		if f.GuestID != nil && b.GuestID() != *f.GuestID {
			continue
		}
		if f.HostID != nil && b.HostID() != *f.HostID {
			continue
		}
		if f.Status != nil && b.Status() != *f.Status {
			continue
		}
		if f.DateFrom != "" && b.StartDate() < f.DateFrom {
			continue
		}
		if f.DateTo != "" && b.StartDate() > f.DateTo {
			continue
		}
		out = append(out, b)
	}
	if strings.TrimPrefix(f.Sort, "-") == bookingDomain.SortAmount {
		desc := strings.HasPrefix(f.Sort, "-")
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].AmountCents() > out[j].AmountCents()
			}
			return out[i].AmountCents() < out[j].AmountCents()
		})
	}
	return out, int64(len(out)), nil
}

func (m *memBookings) FindForReport(_ context.Context, q bookingDomain.ReportQuery) ([]*bookingDomain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range m.all() {
		if !q.CreatedFrom.IsZero() && b.CreatedAt().Before(q.CreatedFrom) {
			continue
		}
		if !q.CreatedTo.IsZero() && b.CreatedAt().After(q.CreatedTo) {
			continue
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, b.Status()) {
			continue
		}
		if len(q.ListingIDs) > 0 && !containsID(q.ListingIDs, b.ListingID()) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memBookings) CountByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for _, s := range m.rows {
		counts[string(s.Status)]++
	}
	return counts, nil
}

func (m *memBookings) Save(_ context.Context, b *bookingDomain.Booking) error {
	if m.beforeSave != nil {
		if err := m.beforeSave(b); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[b.ID()]; ok {
		return apperror.NewConflictError("booking already exists")
	}
	m.rows[b.ID()] = b.Snapshot()
	return nil
}

func (m *memBookings) Update(_ context.Context, b *bookingDomain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[b.ID()]
	if !ok {
		return apperror.NewNotFoundError("booking", b.ID().String())
	}
	if cur.Version != b.Version()-1 {
		return apperror.NewConflictError("booking was modified concurrently")
	}
	m.rows[b.ID()] = b.Snapshot()
	return nil
}

// put stores a booking directly, bypassing the service.
func (m *memBookings) put(b *bookingDomain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[b.ID()] = b.Snapshot()
}

func containsStatus(list []bookingDomain.BookingStatus, s bookingDomain.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsID(list []uuid.UUID, id uuid.UUID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

type memListings struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*listingDomain.Listing
}

func newMemListings(ls ...*listingDomain.Listing) *memListings {
	m := &memListings{rows: make(map[uuid.UUID]*listingDomain.Listing)}
	for _, l := range ls {
		m.rows[l.ID] = l
	}
	return m
}

func (m *memListings) FindByID(_ context.Context, id uuid.UUID) (*listingDomain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok {
		return nil, apperror.NewNotFoundError("listing", id.String())
	}
	cp := *l
	return &cp, nil
}

func (m *memListings) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*listingDomain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]*listingDomain.Listing)
	for _, id := range ids {
		if l, ok := m.rows[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (m *memListings) Find(_ context.Context, f listingDomain.Filter) ([]*listingDomain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*listingDomain.Listing
	for _, l := range m.rows {
		if f.OwnerID != nil && l.OwnerID != *f.OwnerID {
			continue
		}
		if (f.Brand != "" && l.Brand != f.Brand) || (f.City != "" && l.City != f.City) ||
			(f.Category != "" && l.Category != f.Category) || (f.Status != "" && l.Status != f.Status) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	err       error
	checkouts []payment.CheckoutRequest
	refunds   []int64
	captures  []int64
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.checkouts = append(g.checkouts, req)
	id := "cs_" + req.IdempotencyKey
	return &payment.Checkout{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (g *fakeGateway) Capture(_ context.Context, paymentID string, amount int64) (*payment.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.captures = append(g.captures, amount)
	return &payment.Receipt{ID: paymentID, Status: "paid", AmountCents: amount}, nil
}

func (g *fakeGateway) Refund(_ context.Context, _ string, amount int64, _ string) (*payment.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.refunds = append(g.refunds, amount)
	return &payment.Receipt{ID: "ref_1", Status: "pending", AmountCents: amount}, nil
}

type publishedEvent struct {
	Topic string
	Key   string
	Event kafka.CloudEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishEventWithKey(_ context.Context, topic, key string, ce kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: ce})
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event.Type
	}
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	fail bool
	sent []notification.Confirmation
}

func (n *fakeNotifier) SendBookingConfirmation(_ context.Context, c notification.Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp down")
	}
	n.sent = append(n.sent, c)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
