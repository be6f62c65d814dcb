package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/internal/platform/mailer"
	"github.com/fatflowers/staypay/pkg/logctx"
	"github.com/fatflowers/staypay/pkg/tool"
	"github.com/fatflowers/staypay/pkg/types"
)

const dateLayout = "2006-01-02"

// Emitter writes in-app notifications and triggers emails after a booking
// transition has been committed. Every method returns immediately; failures
// are logged and never reach the caller.
type Emitter struct {
	db     *gorm.DB
	lookup DetailsLookup
	mail   mailer.Mailer
	log    *zap.SugaredLogger
	wg     sync.WaitGroup
}

func NewEmitter(db *gorm.DB, lookup DetailsLookup, mail mailer.Mailer, log *zap.SugaredLogger) *Emitter {
	return &Emitter{db: db, lookup: lookup, mail: mail, log: log}
}

// Wait blocks until all in-flight side effects finish.
func (e *Emitter) Wait() { e.wg.Wait() }

func (e *Emitter) BookingConfirmed(ctx context.Context, b *models.Booking) {
	e.goSafe(ctx, "booking_confirmed", func(ctx context.Context) error {
		d := e.details(ctx, b)
		meta := map[string]any{"booking_id": b.ID}
		err := e.notify(ctx, b.GuestID, types.NotificationTypeBookingConfirmed,
			"Booking Confirmed!",
			fmt.Sprintf("Your booking at %s has been confirmed.", d.title("your stay")),
			meta)
		guestName := lo.CoalesceOrEmpty(d.Guest.FullName(), "A guest")
		if hostErr := e.notify(ctx, b.HostID, types.NotificationTypeNewBooking,
			"New Booking Received",
			fmt.Sprintf("You have a new booking from %s.", guestName),
			meta); hostErr != nil && err == nil {
			err = hostErr
		}
		e.email(ctx, types.EmailTypeBookingConfirmation, b, d)
		e.email(ctx, types.EmailTypeHostNotification, b, d)
		return err
	})
}

func (e *Emitter) PaymentFailed(ctx context.Context, b *models.Booking) {
	e.goSafe(ctx, "payment_failed", func(ctx context.Context) error {
		d := e.details(ctx, b)
		err := e.notify(ctx, b.GuestID, types.NotificationTypePaymentFailed,
			"Payment Failed",
			fmt.Sprintf("Your payment for %s failed. Please try again.", d.title("your booking")),
			map[string]any{"booking_id": b.ID})
		e.email(ctx, types.EmailTypeBookingCancellation, b, d)
		return err
	})
}

func (e *Emitter) RefundProcessed(ctx context.Context, b *models.Booking) {
	e.goSafe(ctx, "refund_processed", func(ctx context.Context) error {
		d := e.details(ctx, b)
		return e.notify(ctx, b.GuestID, types.NotificationTypeRefundProcessed,
			"Refund Processed",
			fmt.Sprintf("Your refund of %s for %s has been processed.", types.FormatMinor(b.RefundAmount), d.title("your booking")),
			map[string]any{"booking_id": b.ID, "refund_amount": b.RefundAmount})
	})
}

func (e *Emitter) DisputeCreated(ctx context.Context, b *models.Booking, disputeID string) {
	e.goSafe(ctx, "payment_dispute", func(ctx context.Context) error {
		d := e.details(ctx, b)
		return e.notify(ctx, b.HostID, types.NotificationTypePaymentDispute,
			"Payment Dispute",
			fmt.Sprintf("A payment dispute has been filed for booking at %s.", d.title("your property")),
			map[string]any{"booking_id": b.ID, "dispute_id": disputeID})
	})
}

// goSafe runs fn detached from the request's cancellation but keeps its
// values, so trace ids still reach the logs.
func (e *Emitter) goSafe(ctx context.Context, kind string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		log := logctx.FromCtx(ctx, e.log)
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("side_effect_panic", "kind", kind, "panic", r)
			}
		}()
		start := time.Now()
		if err := fn(ctx); err != nil {
			log.Errorw("side_effect_failed", "kind", kind, "err", err, "elapsed_ms", tool.MillisSince(start))
			return
		}
		log.Infow("side_effect_emitted", "kind", kind, "elapsed_ms", tool.MillisSince(start))
	}()
}

func (e *Emitter) notify(ctx context.Context, userID string, typ types.NotificationType, title, message string, meta map[string]any) error {
	if userID == "" {
		return fmt.Errorf("%s notification: empty recipient", typ)
	}
	n := &models.Notification{
		ID:       tool.GenerateUUIDV7(),
		UserID:   userID,
		Type:     typ,
		Title:    title,
		Message:  message,
		Metadata: datatypes.JSONMap(meta),
	}
	if err := e.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create %s notification: %w", typ, err)
	}
	return nil
}

func (e *Emitter) email(ctx context.Context, typ types.EmailType, b *models.Booking, d *BookingDetails) {
	msg := &mailer.Message{Type: typ, Data: mailer.BookingEmail{
		BookingID:        b.ID,
		GuestName:        d.Guest.FullName(),
		HostName:         d.Host.FullName(),
		PropertyTitle:    d.PropertyTitle,
		PropertyLocation: d.PropertyLocation,
		CheckInDate:      b.CheckIn.Format(dateLayout),
		CheckOutDate:     b.CheckOut.Format(dateLayout),
		Guests:           b.GuestsCount,
		TotalAmount:      types.FormatMinor(b.TotalAmount),
	}}
	if d.Guest != nil {
		msg.Data.GuestEmail = d.Guest.Email
	}
	if d.Host != nil {
		msg.Data.HostEmail = d.Host.Email
	}
	if err := e.mail.Send(ctx, msg); err != nil {
		logctx.FromCtx(ctx, e.log).Warnw("email_send_failed", "type", typ, "booking_id", b.ID, "err", err)
	}
}

// details never returns nil; a failed lookup degrades to generic wording.
func (e *Emitter) details(ctx context.Context, b *models.Booking) *BookingDetails {
	if e.lookup == nil {
		return &BookingDetails{}
	}
	d, err := e.lookup.Lookup(ctx, b)
	if err != nil || d == nil {
		logctx.FromCtx(ctx, e.log).Warnw("booking_details_unavailable", "booking_id", b.ID, "err", err)
		return &BookingDetails{}
	}
	return d
}

func (d *BookingDetails) title(fallback string) string {
	return lo.CoalesceOrEmpty(d.PropertyTitle, fallback)
}
