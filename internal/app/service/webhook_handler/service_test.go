package webhook_handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/staypay/internal/app/service/ledger"
	"github.com/fatflowers/staypay/internal/app/service/reconciler"
	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/internal/platform/db/dbtest"
	"github.com/fatflowers/staypay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/staypay/internal/platform/stripe/stripe_webhook/stripetest"
	"github.com/fatflowers/staypay/pkg/types"
)

type nopEmitter struct{}

func (nopEmitter) BookingConfirmed(context.Context, *models.Booking)       {}
func (nopEmitter) PaymentFailed(context.Context, *models.Booking)          {}
func (nopEmitter) RefundProcessed(context.Context, *models.Booking)        {}
func (nopEmitter) DisputeCreated(context.Context, *models.Booking, string) {}

// flakyReconciler fails the first n calls with a transient error.
type flakyReconciler struct {
	BookingReconciler
	mu    sync.Mutex
	fails int
}

func (f *flakyReconciler) Confirm(ctx context.Context, ev *reconciler.PaymentEvent) (reconciler.Outcome, error) {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return "", errors.New("database is locked")
	}
	f.mu.Unlock()
	return f.BookingReconciler.Confirm(ctx, ev)
}

type mapCache struct {
	mu   sync.Mutex
	seen map[string]string
}

func (m *mapCache) Lookup(_ context.Context, id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.seen[id]
	return t, ok, nil
}

func (m *mapCache) Remember(_ context.Context, id, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[id] = eventType
	return nil
}

type fixture struct {
	db     *gorm.DB
	h      *Handler
	events *webhookevent.Service
	ledger *ledger.Service
	flaky  *flakyReconciler
	cache  *mapCache
}

// countingEmitter counts confirmations.
type countingEmitter struct {
	nopEmitter
	confirmed atomic.Int32
}

func (c *countingEmitter) BookingConfirmed(context.Context, *models.Booking) { c.confirmed.Add(1) }

func newFixture(t *testing.T) *fixture {
	return newFixtureWithEmitter(t, nopEmitter{})
}

func newFixtureWithEmitter(t *testing.T, em reconciler.Emitter) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	log := zap.NewNop().Sugar()
	events := webhookevent.New(db, log)
	l := ledger.New(db, events, log)
	flaky := &flakyReconciler{BookingReconciler: reconciler.New(db, l, em, log, "usd")}
	c := &mapCache{seen: map[string]string{}}
	h := New(stripe_webhook.NewVerifier(stripetest.Secret, 0), events, flaky, c, nil, log)

	require.NoError(t, db.Create(&models.Booking{
		ID: "B1", PropertyID: "P1", GuestID: "G1", HostID: "H1",
		TotalAmount: 25000, Currency: "usd",
		Status: types.BookingStatusPending, PaymentStatus: types.PaymentStatusUnpaid,
	}).Error)
	return &fixture{db: db, h: h, events: events, ledger: l, flaky: flaky, cache: c}
}

func (f *fixture) deliver(t *testing.T, payload []byte) *Result {
	t.Helper()
	res := f.h.Handle(context.Background(), payload, stripetest.Sign(t, payload))
	require.NotNil(t, res)
	return res
}

func (f *fixture) event(t *testing.T, id string) *models.WebhookEvent {
	t.Helper()
	evt, err := f.events.FindByEventID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, evt)
	return evt
}

func (f *fixture) booking(t *testing.T) *models.Booking {
	t.Helper()
	var b models.Booking
	require.NoError(t, f.db.Where("id = ?", "B1").Take(&b).Error)
	return &b
}

func TestHandle_ConfirmsBookingOnce(t *testing.T) {
	f := newFixture(t)
	payload := stripetest.CheckoutCompleted(t, "evt_1", "B1", "pi_1", 25000)

	res := f.deliver(t, payload)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "evt_1", res.EventID)
	require.Equal(t, "checkout.session.completed", res.EventType)
	require.Equal(t, reconciler.OutcomeApplied, res.Outcome)
	require.NoError(t, res.Err)

	b := f.booking(t)
	require.Equal(t, types.BookingStatusConfirmed, b.Status)
	require.Equal(t, types.PaymentStatusPaid, b.PaymentStatus)

	evt := f.event(t, "evt_1")
	require.True(t, evt.Processed)
	require.Equal(t, 1, evt.ProcessingAttempts)
	require.Equal(t, "B1", *evt.BookingID)
	require.NotNil(t, evt.ProcessedAt)

	// redelivery is answered from the cache without recording an attempt
	res = f.deliver(t, payload)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.True(t, res.AlreadyProcessed)
	require.Equal(t, 1, f.event(t, "evt_1").ProcessingAttempts)

	// and from the store when the cache has forgotten it
	delete(f.cache.seen, "evt_1")
	res = f.deliver(t, payload)
	require.True(t, res.AlreadyProcessed)
	require.Equal(t, 1, f.event(t, "evt_1").ProcessingAttempts)

	rows, err := f.ledger.ListByBooking(context.Background(), "B1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestHandle_ConcurrentDuplicateDeliveries(t *testing.T) {
	em := &countingEmitter{}
	f := newFixtureWithEmitter(t, em)
	payload := stripetest.CheckoutCompleted(t, "evt_1", "B1", "pi_1", 25000)
	sig := stripetest.Sign(t, payload)

	const deliveries = 8
	results := make([]*Result, deliveries)
	var wg sync.WaitGroup
	for i := range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.h.Handle(context.Background(), payload, sig)
		}()
	}
	wg.Wait()

	applied := 0
	for _, res := range results {
		require.NotNil(t, res)
		require.Equal(t, http.StatusOK, res.StatusCode, "err: %v", res.Err)
		if res.Outcome == reconciler.OutcomeApplied {
			applied++
		}
	}
	require.Equal(t, 1, applied)
	require.EqualValues(t, 1, em.confirmed.Load())

	rows, err := f.ledger.ListByBooking(context.Background(), "B1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	b := f.booking(t)
	require.Equal(t, types.BookingStatusConfirmed, b.Status)
	require.Equal(t, types.PaymentStatusPaid, b.PaymentStatus)
	require.True(t, f.event(t, "evt_1").Processed)
}

func TestHandle_InvalidSignatureRecordsNothing(t *testing.T) {
	f := newFixture(t)
	payload := stripetest.CheckoutCompleted(t, "evt_1", "B1", "pi_1", 25000)

	res := f.h.Handle(context.Background(), payload, "t=1,v1=deadbeef")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.ErrorIs(t, res.Err, stripe_webhook.ErrInvalidSignature)

	res = f.h.Handle(context.Background(), payload, "")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.ErrorIs(t, res.Err, stripe_webhook.ErrMissingSignature)

	var n int64
	require.NoError(t, f.db.Model(&models.WebhookEvent{}).Count(&n).Error)
	require.Zero(t, n)
	require.Equal(t, types.BookingStatusPending, f.booking(t).Status)
}

func TestHandle_PermanentFailureIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	payload := stripetest.CheckoutCompleted(t, "evt_nobooking", "", "pi_1", 25000)

	res := f.deliver(t, payload)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.False(t, res.WillRetry)
	require.ErrorIs(t, res.Err, reconciler.ErrMissingBookingReference)

	evt := f.event(t, "evt_nobooking")
	require.True(t, evt.Processed)
	require.NotNil(t, evt.LastError)
	require.Contains(t, *evt.LastError, "no booking reference")
	require.Equal(t, types.BookingStatusPending, f.booking(t).Status)
}

func TestHandle_TransientFailureIsRetried(t *testing.T) {
	f := newFixture(t)
	f.flaky.fails = 1
	payload := stripetest.CheckoutCompleted(t, "evt_1", "B1", "pi_1", 25000)

	res := f.deliver(t, payload)
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.True(t, res.WillRetry)

	evt := f.event(t, "evt_1")
	require.False(t, evt.Processed)
	require.Equal(t, 1, evt.ProcessingAttempts)
	require.NotNil(t, evt.LastError)
	require.Equal(t, types.PaymentStatusUnpaid, f.booking(t).PaymentStatus)

	res = f.deliver(t, payload)
	require.Equal(t, http.StatusOK, res.StatusCode)

	evt = f.event(t, "evt_1")
	require.True(t, evt.Processed)
	require.Equal(t, 2, evt.ProcessingAttempts)
	require.Nil(t, evt.LastError)
	require.Equal(t, types.PaymentStatusPaid, f.booking(t).PaymentStatus)
}

func TestHandle_RefundResolvedByPaymentReference(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.deliver(t, stripetest.CheckoutCompleted(t, "evt_1", "B1", "pi_1", 25000)).StatusCode)

	res := f.deliver(t, stripetest.ChargeRefunded(t, "evt_2", "pi_1", 5000))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, KindRefund, res.Kind)
	require.Equal(t, reconciler.OutcomeApplied, res.Outcome)

	b := f.booking(t)
	require.Equal(t, types.PaymentStatusRefunded, b.PaymentStatus)
	require.EqualValues(t, 5000, b.RefundAmount)
	require.InDelta(t, 50.00, b.RefundAmountMajor(), 0.0001)
	require.Equal(t, "pi_1", *f.event(t, "evt_2").PaymentReference)
}

func TestHandle_UnhandledTypeIsProcessed(t *testing.T) {
	f := newFixture(t)
	payload := stripetest.Event(t, "evt_cus", "customer.created", map[string]any{"id": "cus_1", "object": "customer"})

	res := f.deliver(t, payload)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, KindUnhandled, res.Kind)
	require.Equal(t, reconciler.OutcomeIgnored, res.Outcome)
	require.True(t, f.event(t, "evt_cus").Processed)
}

func TestReplay(t *testing.T) {
	f := newFixture(t)
	f.flaky.fails = 1
	payload := stripetest.CheckoutCompleted(t, "evt_1", "B1", "pi_1", 25000)
	require.Equal(t, http.StatusInternalServerError, f.deliver(t, payload).StatusCode)

	res, err := f.h.Replay(context.Background(), "evt_1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, reconciler.OutcomeApplied, res.Outcome)
	require.Equal(t, 2, f.event(t, "evt_1").ProcessingAttempts)
	require.Equal(t, types.PaymentStatusPaid, f.booking(t).PaymentStatus)

	res, err = f.h.Replay(context.Background(), "evt_1")
	require.NoError(t, err)
	require.True(t, res.AlreadyProcessed)

	_, err = f.h.Replay(context.Background(), "evt_missing")
	require.ErrorIs(t, err, ErrEventNotFound)
}
