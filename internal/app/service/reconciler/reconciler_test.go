package reconciler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/staypay/internal/app/service/ledger"
	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/internal/platform/db/dbtest"
	"github.com/fatflowers/staypay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/staypay/pkg/types"
)

type recordingEmitter struct {
	mu    sync.Mutex
	calls []string
}

func (e *recordingEmitter) record(kind, bookingID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, kind+":"+bookingID)
}

func (e *recordingEmitter) BookingConfirmed(_ context.Context, b *models.Booking) {
	e.record("confirmed", b.ID)
}

func (e *recordingEmitter) PaymentFailed(_ context.Context, b *models.Booking) {
	e.record("failed", b.ID)
}

func (e *recordingEmitter) RefundProcessed(_ context.Context, b *models.Booking) {
	e.record(fmt.Sprintf("refund(%s)", types.FormatMinor(b.RefundAmount)), b.ID)
}

func (e *recordingEmitter) DisputeCreated(_ context.Context, b *models.Booking, disputeID string) {
	e.record("dispute("+disputeID+")", b.ID)
}

type fixture struct {
	db      *gorm.DB
	rec     *Reconciler
	ledger  *ledger.Service
	emitter *recordingEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	log := zap.NewNop().Sugar()
	l := ledger.New(db, webhookevent.New(db, log), log)
	em := &recordingEmitter{}
	return &fixture{db: db, rec: New(db, l, em, log, ""), ledger: l, emitter: em}
}

func (f *fixture) seedBooking(t *testing.T, id string, mutate ...func(*models.Booking)) {
	t.Helper()
	b := &models.Booking{
		ID:            id,
		PropertyID:    "P1",
		GuestID:       "G1",
		HostID:        "H1",
		CheckIn:       time.Now().UTC().AddDate(0, 1, 0),
		CheckOut:      time.Now().UTC().AddDate(0, 1, 3),
		GuestsCount:   2,
		TotalAmount:   25000,
		Currency:      "usd",
		Status:        types.BookingStatusPending,
		PaymentStatus: types.PaymentStatusUnpaid,
	}
	for _, m := range mutate {
		m(b)
	}
	require.NoError(t, f.db.Create(b).Error)
}

func (f *fixture) booking(t *testing.T, id string) *models.Booking {
	t.Helper()
	var b models.Booking
	require.NoError(t, f.db.Where("id = ?", id).Take(&b).Error)
	return &b
}

func sessionCompleted(eventID string) *PaymentEvent {
	return &PaymentEvent{
		EventID:          eventID,
		EventType:        "checkout.session.completed",
		BookingID:        "B1",
		PaymentReference: "pi_1",
		SessionID:        "cs_1",
		AmountCents:      25000,
		PaymentMethod:    "card",
		CustomerEmail:    "guest@example.com",
	}
}

func TestConfirm_AppliesOnce(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, "B1")
	ctx := context.Background()

	out, err := f.rec.Confirm(ctx, sessionCompleted("evt_1"))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)

	b := f.booking(t, "B1")
	require.Equal(t, types.BookingStatusConfirmed, b.Status)
	require.Equal(t, types.PaymentStatusPaid, b.PaymentStatus)
	require.Equal(t, "pi_1", lo.FromPtr(b.PaymentReference))
	require.Equal(t, "cs_1", lo.FromPtr(b.CheckoutSessionID))
	require.Equal(t, "card", lo.FromPtr(b.PaymentMethod))

	rows, err := f.ledger.ListByBooking(ctx, "B1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, types.TransactionTypeCharge, rows[0].Type)
	require.EqualValues(t, 25000, rows[0].Amount)
	require.Equal(t, "usd", rows[0].Currency)
	require.Equal(t, "evt_1", rows[0].SourceEventID)
	require.Equal(t, "guest@example.com", rows[0].Metadata["customer_email"])

	// a second, distinct completion event for the same booking is a no-op
	out, err = f.rec.Confirm(ctx, sessionCompleted("evt_1b"))
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, out)

	rows, err = f.ledger.ListByBooking(ctx, "B1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, []string{"confirmed:B1"}, f.emitter.calls)
}

func TestConfirm_RetriesAfterFailedPayment(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, "B1", func(b *models.Booking) {
		b.Status = types.BookingStatusCancelled
		b.PaymentStatus = types.PaymentStatusFailed
	})

	out, err := f.rec.Confirm(context.Background(), sessionCompleted("evt_1"))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)
	require.Equal(t, types.BookingStatusConfirmed, f.booking(t, "B1").Status)
}

func TestConfirm_PermanentLinkageErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev := sessionCompleted("evt_1")
	ev.BookingID = ""
	_, err := f.rec.Confirm(ctx, ev)
	require.ErrorIs(t, err, ErrMissingBookingReference)
	require.True(t, IsPermanent(err))

	_, err = f.rec.Confirm(ctx, sessionCompleted("evt_1"))
	require.ErrorIs(t, err, ErrBookingNotFound)
	require.True(t, IsPermanent(err))
	require.Empty(t, f.emitter.calls)
}

func TestConfirm_LedgerFailureLeavesRepairMarker(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, "B1")
	ctx := context.Background()
	require.NoError(t, f.db.Migrator().DropTable(&models.PaymentTransaction{}))

	out, err := f.rec.Confirm(ctx, sessionCompleted("evt_1"))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)
	require.Equal(t, types.PaymentStatusPaid, f.booking(t, "B1").PaymentStatus)

	pending, err := f.ledger.CountPendingRepairs(ctx, "B1")
	require.NoError(t, err)
	require.EqualValues(t, 1, pending)

	// once the ledger is back the sweep appends the missing row
	require.NoError(t, f.db.AutoMigrate(&models.PaymentTransaction{}))
	res, err := f.ledger.Sweep(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Resolved)

	rows, err := f.ledger.ListByBooking(ctx, "B1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 25000, rows[0].Amount)
}

func TestMarkPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedBooking(t, "B1")
	f.seedBooking(t, "B2", func(b *models.Booking) {
		b.Status = types.BookingStatusConfirmed
		b.PaymentStatus = types.PaymentStatusFailed
	})

	ev := &PaymentEvent{EventID: "evt_pi", EventType: "payment_intent.succeeded", BookingID: "B1", PaymentReference: "pi_1"}
	out, err := f.rec.MarkPaid(ctx, ev)
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, out)
	b := f.booking(t, "B1")
	require.Equal(t, types.PaymentStatusUnpaid, b.PaymentStatus)
	require.Equal(t, types.BookingStatusPending, b.Status)

	ev.BookingID = "B2"
	out, err = f.rec.MarkPaid(ctx, ev)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)
	require.Equal(t, types.PaymentStatusPaid, f.booking(t, "B2").PaymentStatus)

	ev.BookingID = "missing"
	_, err = f.rec.MarkPaid(ctx, ev)
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestFail_NeverCancelsPaidBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedBooking(t, "B1")
	f.seedBooking(t, "B2", func(b *models.Booking) {
		b.Status = types.BookingStatusConfirmed
		b.PaymentStatus = types.PaymentStatusPaid
	})

	out, err := f.rec.Fail(ctx, &PaymentEvent{EventID: "evt_f1", BookingID: "B1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)
	b := f.booking(t, "B1")
	require.Equal(t, types.BookingStatusCancelled, b.Status)
	require.Equal(t, types.PaymentStatusFailed, b.PaymentStatus)

	out, err = f.rec.Fail(ctx, &PaymentEvent{EventID: "evt_f2", BookingID: "B2"})
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, out)
	b = f.booking(t, "B2")
	require.Equal(t, types.BookingStatusConfirmed, b.Status)
	require.Equal(t, types.PaymentStatusPaid, b.PaymentStatus)

	_, err = f.rec.Fail(ctx, &PaymentEvent{EventID: "evt_f3"})
	require.ErrorIs(t, err, ErrMissingBookingReference)
	require.Equal(t, []string{"failed:B1"}, f.emitter.calls)
}

func TestRefund_ByPaymentReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedBooking(t, "B1", func(b *models.Booking) {
		b.Status = types.BookingStatusConfirmed
		b.PaymentStatus = types.PaymentStatusPaid
		b.PaymentReference = lo.ToPtr("pi_1")
		b.PaymentMethod = lo.ToPtr("card")
	})

	// refund events carry no booking metadata
	ev := &PaymentEvent{EventID: "evt_2", EventType: "charge.refunded", PaymentReference: "pi_1", ChargeReference: "ch_1", AmountRefundedCents: 5000}
	out, err := f.rec.Refund(ctx, ev)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)

	b := f.booking(t, "B1")
	require.Equal(t, types.PaymentStatusRefunded, b.PaymentStatus)
	require.EqualValues(t, 5000, b.RefundAmount)
	require.InDelta(t, 50.00, b.RefundAmountMajor(), 0.0001)
	require.NotNil(t, b.RefundedAt)

	// redelivered total is skipped, a larger total appends only the delta
	out, err = f.rec.Refund(ctx, ev)
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, out)

	out, err = f.rec.Refund(ctx, &PaymentEvent{EventID: "evt_3", PaymentReference: "pi_1", AmountRefundedCents: 8000})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)

	rows, err := f.ledger.ListByBooking(ctx, "B1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.EqualValues(t, 5000, rows[0].Amount)
	require.Equal(t, "ch_1", lo.FromPtr(rows[0].ProviderChargeReference))
	require.EqualValues(t, 3000, rows[1].Amount)
	require.Equal(t, types.TransactionTypeRefund, rows[1].Type)
	require.Equal(t, []string{"refund(50.00):B1", "refund(80.00):B1"}, f.emitter.calls)
}

func TestRefund_PermanentLinkageErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.rec.Refund(ctx, &PaymentEvent{EventID: "evt_2", AmountRefundedCents: 5000})
	require.ErrorIs(t, err, ErrMissingPaymentReference)
	require.True(t, IsPermanent(err))

	_, err = f.rec.Refund(ctx, &PaymentEvent{EventID: "evt_2", PaymentReference: "pi_unknown", AmountRefundedCents: 5000})
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestDispute_NotifiesWithoutMutation(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, "B1", func(b *models.Booking) {
		b.Status = types.BookingStatusConfirmed
		b.PaymentStatus = types.PaymentStatusPaid
		b.PaymentReference = lo.ToPtr("pi_1")
	})

	out, err := f.rec.Dispute(context.Background(), &PaymentEvent{EventID: "evt_d", PaymentReference: "pi_1", DisputeID: "dp_1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)
	require.Equal(t, types.PaymentStatusPaid, f.booking(t, "B1").PaymentStatus)
	require.Equal(t, []string{"dispute(dp_1):B1"}, f.emitter.calls)
}

func TestIsPermanent(t *testing.T) {
	require.True(t, IsPermanent(fmt.Errorf("wrap: %w", stripe_webhook.ErrMalformedEvent)))
	require.False(t, IsPermanent(fmt.Errorf("database is locked")))
	require.False(t, IsPermanent(nil))
}
