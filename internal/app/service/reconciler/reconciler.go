package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/staypay/pkg/logctx"
	"github.com/fatflowers/staypay/pkg/types"
)

// PaymentEvent is the normalized input of every reconciler operation.
type PaymentEvent struct {
	EventID             string
	EventType           string
	BookingID           string
	PaymentReference    string
	ChargeReference     string
	SessionID           string
	AmountCents         int64
	AmountRefundedCents int64
	Currency            string
	PaymentMethod       string
	CustomerEmail       string
	DisputeID           string
	DisputeReason       string
}

// FromObject builds a PaymentEvent from a decoded provider object.
func FromObject(eventID, eventType string, obj *stripe_webhook.Object) *PaymentEvent {
	return &PaymentEvent{
		EventID:             eventID,
		EventType:           eventType,
		BookingID:           obj.BookingID,
		PaymentReference:    obj.PaymentReference,
		ChargeReference:     obj.ChargeReference,
		SessionID:           obj.SessionID,
		AmountCents:         obj.AmountTotal,
		AmountRefundedCents: obj.AmountRefunded,
		Currency:            obj.Currency,
		PaymentMethod:       obj.PaymentMethod,
		CustomerEmail:       obj.CustomerEmail,
		DisputeID:           obj.DisputeID,
		DisputeReason:       obj.DisputeReason,
	}
}

type Outcome string

const (
	// OutcomeApplied means this event moved the booking.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped means the booking was already past the transition.
	OutcomeSkipped Outcome = "skipped"
	OutcomeIgnored Outcome = "ignored"
)

// LedgerWriter appends ledger rows and records rows that still need appending.
type LedgerWriter interface {
	Append(ctx context.Context, tx *models.PaymentTransaction) error
	MarkRepairPending(ctx context.Context, tx *models.PaymentTransaction, cause error) error
}

// Emitter fires best-effort side effects after a committed transition.
type Emitter interface {
	BookingConfirmed(ctx context.Context, b *models.Booking)
	PaymentFailed(ctx context.Context, b *models.Booking)
	RefundProcessed(ctx context.Context, b *models.Booking)
	DisputeCreated(ctx context.Context, b *models.Booking, disputeID string)
}

// Reconciler applies payment events to bookings. Each transition is a single
// conditional UPDATE, so concurrent deliveries of equivalent events cannot
// both apply it.
type Reconciler struct {
	db              *gorm.DB
	ledger          LedgerWriter
	emitter         Emitter
	log             *zap.SugaredLogger
	defaultCurrency string
}

func New(db *gorm.DB, ledger LedgerWriter, emitter Emitter, log *zap.SugaredLogger, defaultCurrency string) *Reconciler {
	return &Reconciler{
		db:              db,
		ledger:          ledger,
		emitter:         emitter,
		log:             log,
		defaultCurrency: lo.CoalesceOrEmpty(defaultCurrency, types.DefaultCurrency),
	}
}

// Confirm marks the booking confirmed and paid, once.
func (r *Reconciler) Confirm(ctx context.Context, ev *PaymentEvent) (Outcome, error) {
	if ev.BookingID == "" {
		return "", ErrMissingBookingReference
	}
	updates := map[string]interface{}{
		"status":         types.BookingStatusConfirmed,
		"payment_status": types.PaymentStatusPaid,
		"updated_at":     r.now(),
	}
	if ev.PaymentReference != "" {
		updates["payment_reference"] = ev.PaymentReference
	}
	if ev.SessionID != "" {
		updates["checkout_session_id"] = ev.SessionID
	}
	if ev.PaymentMethod != "" {
		updates["payment_method"] = ev.PaymentMethod
	}
	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND payment_status IN ?", ev.BookingID, []types.PaymentStatus{types.PaymentStatusUnpaid, types.PaymentStatusFailed}).
		Updates(updates)
	if res.Error != nil {
		return "", fmt.Errorf("confirm booking %s: %w", ev.BookingID, res.Error)
	}
	b, err := r.loadBooking(ctx, ev.BookingID)
	if err != nil {
		return "", err
	}
	log := logctx.FromCtx(ctx, r.log)
	if res.RowsAffected == 0 {
		log.Infow("booking_confirm_skipped", "booking_id", b.ID, "event_id", ev.EventID, "payment_status", b.PaymentStatus)
		return OutcomeSkipped, nil
	}
	log.Infow("booking_confirmed", "booking_id", b.ID, "event_id", ev.EventID)

	r.appendLedger(ctx, &models.PaymentTransaction{
		BookingID:                b.ID,
		Type:                     types.TransactionTypeCharge,
		Amount:                   ev.AmountCents,
		Currency:                 r.currency(ev.Currency),
		ProviderPaymentReference: ev.PaymentReference,
		ProviderSessionReference: lo.EmptyableToPtr(ev.SessionID),
		Status:                   types.TransactionStatusSucceeded,
		PaymentMethodType:        ev.PaymentMethod,
		Metadata: datatypes.JSONMap{
			"webhook_event":  ev.EventType,
			"customer_email": ev.CustomerEmail,
		},
	}, ev)
	r.emitter.BookingConfirmed(ctx, b)
	return OutcomeApplied, nil
}

// MarkPaid records a settled payment intent on a booking that is already
// confirmed. It never changes the booking status.
func (r *Reconciler) MarkPaid(ctx context.Context, ev *PaymentEvent) (Outcome, error) {
	if ev.BookingID == "" {
		return "", ErrMissingBookingReference
	}
	updates := map[string]interface{}{
		"payment_status": types.PaymentStatusPaid,
		"updated_at":     r.now(),
	}
	if ev.PaymentReference != "" {
		updates["payment_reference"] = ev.PaymentReference
	}
	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND payment_status IN ? AND status IN ?", ev.BookingID,
			[]types.PaymentStatus{types.PaymentStatusUnpaid, types.PaymentStatusFailed},
			[]types.BookingStatus{types.BookingStatusConfirmed, types.BookingStatusCompleted}).
		Updates(updates)
	if res.Error != nil {
		return "", fmt.Errorf("mark booking %s paid: %w", ev.BookingID, res.Error)
	}
	if res.RowsAffected > 0 {
		logctx.FromCtx(ctx, r.log).Infow("booking_marked_paid", "booking_id", ev.BookingID, "event_id", ev.EventID)
		return OutcomeApplied, nil
	}
	b, err := r.loadBooking(ctx, ev.BookingID)
	if err != nil {
		return "", err
	}
	logctx.FromCtx(ctx, r.log).Infow("booking_mark_paid_skipped",
		"booking_id", b.ID, "event_id", ev.EventID, "status", b.Status, "payment_status", b.PaymentStatus)
	return OutcomeSkipped, nil
}

// Fail cancels an unpaid booking. A paid booking is never cancelled by a
// late failure.
func (r *Reconciler) Fail(ctx context.Context, ev *PaymentEvent) (Outcome, error) {
	if ev.BookingID == "" {
		return "", ErrMissingBookingReference
	}
	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND payment_status = ?", ev.BookingID, types.PaymentStatusUnpaid).
		Updates(map[string]interface{}{
			"status":         types.BookingStatusCancelled,
			"payment_status": types.PaymentStatusFailed,
			"updated_at":     r.now(),
		})
	if res.Error != nil {
		return "", fmt.Errorf("fail booking %s: %w", ev.BookingID, res.Error)
	}
	b, err := r.loadBooking(ctx, ev.BookingID)
	if err != nil {
		return "", err
	}
	log := logctx.FromCtx(ctx, r.log)
	if res.RowsAffected == 0 {
		log.Infow("booking_fail_skipped", "booking_id", b.ID, "event_id", ev.EventID, "payment_status", b.PaymentStatus)
		return OutcomeSkipped, nil
	}
	log.Infow("booking_payment_failed", "booking_id", b.ID, "event_id", ev.EventID)
	r.emitter.PaymentFailed(ctx, b)
	return OutcomeApplied, nil
}

// Refund raises the booking's cumulative refund amount to the provider's
// total. Bookings are resolved by payment reference only.
func (r *Reconciler) Refund(ctx context.Context, ev *PaymentEvent) (Outcome, error) {
	b, err := r.bookingByReference(ctx, ev.PaymentReference)
	if err != nil {
		return "", err
	}
	log := logctx.FromCtx(ctx, r.log)
	if ev.AmountRefundedCents <= b.RefundAmount {
		log.Infow("booking_refund_skipped", "booking_id", b.ID, "event_id", ev.EventID,
			"refund_amount", b.RefundAmount, "event_amount_refunded", ev.AmountRefundedCents)
		return OutcomeSkipped, nil
	}

	now := r.now()
	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND refund_amount = ?", b.ID, b.RefundAmount).
		Updates(map[string]interface{}{
			"payment_status": types.PaymentStatusRefunded,
			"refund_amount":  ev.AmountRefundedCents,
			"refunded_at":    now,
			"updated_at":     now,
		})
	if res.Error != nil {
		return "", fmt.Errorf("refund booking %s: %w", b.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		// lost a race with another refund event; redelivery re-reads the amount
		return "", fmt.Errorf("refund booking %s: refund amount changed concurrently", b.ID)
	}
	delta := ev.AmountRefundedCents - b.RefundAmount
	b.PaymentStatus = types.PaymentStatusRefunded
	b.RefundAmount = ev.AmountRefundedCents
	b.RefundedAt = &now
	log.Infow("booking_refunded", "booking_id", b.ID, "event_id", ev.EventID,
		"refund_amount", b.RefundAmount, "delta", delta)

	r.appendLedger(ctx, &models.PaymentTransaction{
		BookingID:                b.ID,
		Type:                     types.TransactionTypeRefund,
		Amount:                   delta,
		Currency:                 r.currency(ev.Currency),
		ProviderPaymentReference: ev.PaymentReference,
		ProviderChargeReference:  lo.EmptyableToPtr(ev.ChargeReference),
		Status:                   types.TransactionStatusSucceeded,
		PaymentMethodType:        lo.FromPtr(b.PaymentMethod),
		Metadata: datatypes.JSONMap{
			"webhook_event":   ev.EventType,
			"amount_refunded": ev.AmountRefundedCents,
		},
	}, ev)
	r.emitter.RefundProcessed(ctx, b)
	return OutcomeApplied, nil
}

// Dispute notifies the host. The booking itself is left unchanged.
func (r *Reconciler) Dispute(ctx context.Context, ev *PaymentEvent) (Outcome, error) {
	b, err := r.bookingByReference(ctx, ev.PaymentReference)
	if err != nil {
		return "", err
	}
	logctx.FromCtx(ctx, r.log).Warnw("booking_dispute_created",
		"booking_id", b.ID, "event_id", ev.EventID, "dispute_id", ev.DisputeID, "reason", ev.DisputeReason)
	r.emitter.DisputeCreated(ctx, b, ev.DisputeID)
	return OutcomeApplied, nil
}

// appendLedger writes the ledger row for a committed transition. When the
// append fails the booking stays moved and a repair marker is left for the
// sweep.
func (r *Reconciler) appendLedger(ctx context.Context, tx *models.PaymentTransaction, ev *PaymentEvent) {
	completed := r.now()
	tx.SourceEventID = ev.EventID
	tx.CompletedAt = &completed
	err := r.ledger.Append(ctx, tx)
	if err == nil {
		return
	}
	log := logctx.FromCtx(ctx, r.log)
	log.Errorw("ledger_append_failed", "booking_id", tx.BookingID, "event_id", ev.EventID, "err", err)
	tx.ID = ""
	if markErr := r.ledger.MarkRepairPending(ctx, tx, err); markErr != nil {
		log.Errorw("ledger_repair_mark_failed", "booking_id", tx.BookingID, "event_id", ev.EventID, "err", markErr)
	}
}

func (r *Reconciler) loadBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", id, err)
	}
	return &b, nil
}

func (r *Reconciler) bookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	if ref == "" {
		return nil, ErrMissingPaymentReference
	}
	var b models.Booking
	err := r.db.WithContext(ctx).Where("payment_reference = ?", ref).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: payment reference %s", ErrBookingNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("load booking by payment reference %s: %w", ref, err)
	}
	return &b, nil
}

func (r *Reconciler) currency(c string) string {
	return lo.CoalesceOrEmpty(c, r.defaultCurrency)
}

func (r *Reconciler) now() time.Time {
	return r.db.NowFunc()
}
