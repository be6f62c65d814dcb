package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/pkg/types"
)

var ErrBookingNotFound = errors.New("booking not found")

type NextAction string

const (
	NextActionNone           NextAction = "none"
	NextActionPay            NextAction = "complete_payment"
	NextActionRetryPayment   NextAction = "retry_payment"
	NextActionRefunded       NextAction = "refund_completed"
	NextActionAwaitRepair    NextAction = "ledger_reconciliation_pending"
	NextActionContactSupport NextAction = "contact_support"
)

type StatusEvent struct {
	EventID            string     `json:"event_id"`
	EventType          string     `json:"event_type"`
	Processed          bool       `json:"processed"`
	ProcessingAttempts int        `json:"processing_attempts"`
	LastError          *string    `json:"last_error"`
	ProcessedAt        *time.Time `json:"processed_at"`
	CreatedAt          time.Time  `json:"created_at"`
}

// PaymentStatus is the payment view of one booking.
type PaymentStatus struct {
	BookingID        string                       `json:"booking_id"`
	Status           types.BookingStatus          `json:"status"`
	PaymentStatus    types.PaymentStatus          `json:"payment_status"`
	PaymentReference *string                      `json:"payment_reference"`
	PaymentMethod    *string                      `json:"payment_method"`
	Currency         string                       `json:"currency"`
	TotalAmount      int64                        `json:"total_amount"`
	RefundAmount     int64                        `json:"refund_amount"`
	RefundedAt       *time.Time                   `json:"refunded_at"`
	TotalPaid        int64                        `json:"total_paid"`
	TotalRefunded    int64                        `json:"total_refunded"`
	FailedAttempts   int                          `json:"failed_attempts"`
	PendingRepairs   int64                        `json:"pending_repairs"`
	Transactions     []*models.PaymentTransaction `json:"transactions"`
	RecentEvents     []*StatusEvent               `json:"recent_events"`
	CanRetry         bool                         `json:"can_retry"`
	NextAction       NextAction                   `json:"next_action"`
}

const recentEventLimit = 10

// GetPaymentStatus summarizes booking payment state, ledger totals and the
// most recent provider events for the booking.
func (s *Service) GetPaymentStatus(ctx context.Context, bookingID string, now time.Time) (*PaymentStatus, error) {
	var b models.Booking
	err := s.db.WithContext(ctx).Where("id = ?", bookingID).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}

	txs, err := s.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByBooking(ctx, bookingID, lo.FromPtr(b.PaymentReference), recentEventLimit)
	if err != nil {
		return nil, err
	}
	pending, err := s.CountPendingRepairs(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	st := &PaymentStatus{
		BookingID:        b.ID,
		Status:           b.Status,
		PaymentStatus:    b.PaymentStatus,
		PaymentReference: b.PaymentReference,
		PaymentMethod:    b.PaymentMethod,
		Currency:         b.Currency,
		TotalAmount:      b.TotalAmount,
		RefundAmount:     b.RefundAmount,
		RefundedAt:       b.RefundedAt,
		PendingRepairs:   pending,
		Transactions:     txs,
		RecentEvents: lo.Map(events, func(e *models.WebhookEvent, _ int) *StatusEvent {
			return &StatusEvent{
				EventID:            e.EventID,
				EventType:          e.EventType,
				Processed:          e.Processed,
				ProcessingAttempts: e.ProcessingAttempts,
				LastError:          e.LastError,
				ProcessedAt:        e.ProcessedAt,
				CreatedAt:          e.CreatedAt,
			}
		}),
	}
	for _, tx := range txs {
		switch {
		case tx.Type == types.TransactionTypeCharge && tx.Status == types.TransactionStatusSucceeded:
			st.TotalPaid += tx.Amount
		case tx.Type == types.TransactionTypeRefund && tx.Status == types.TransactionStatusSucceeded:
			st.TotalRefunded += tx.Amount
		case tx.Status == types.TransactionStatusFailed:
			st.FailedAttempts++
		}
	}

	st.CanRetry = b.PaymentStatus != types.PaymentStatusPaid &&
		b.PaymentStatus != types.PaymentStatusRefunded &&
		b.Status != types.BookingStatusCancelled &&
		b.CheckIn.After(now)
	st.NextAction = nextAction(&b, st)
	return st, nil
}

func nextAction(b *models.Booking, st *PaymentStatus) NextAction {
	switch {
	case st.PendingRepairs > 0:
		return NextActionAwaitRepair
	case b.PaymentStatus == types.PaymentStatusRefunded:
		return NextActionRefunded
	case b.PaymentStatus == types.PaymentStatusPaid:
		return NextActionNone
	case st.CanRetry && b.PaymentStatus == types.PaymentStatusFailed:
		return NextActionRetryPayment
	case st.CanRetry:
		return NextActionPay
	case b.PaymentStatus == types.PaymentStatusFailed:
		return NextActionContactSupport
	}
	return NextActionNone
}
