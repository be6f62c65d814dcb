package webhook_handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatflowers/staypay/internal/app/service/reconciler"
)

var ErrUnknownEventKind = errors.New("unknown event kind")

// EventKind is the closed set of handlers an event type can route to.
type EventKind int

const (
	// KindUnhandled acknowledges an event no handler cares about. It is a
	// success that changes nothing.
	KindUnhandled EventKind = iota
	KindConfirmBooking
	KindFailBooking
	KindMarkPaid
	KindRefund
	KindDispute
)

func (k EventKind) String() string {
	switch k {
	case KindUnhandled:
		return "unhandled"
	case KindConfirmBooking:
		return "confirm_booking"
	case KindFailBooking:
		return "fail_booking"
	case KindMarkPaid:
		return "mark_paid"
	case KindRefund:
		return "refund"
	case KindDispute:
		return "dispute"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var routes = map[string]EventKind{
	"checkout.session.completed":               KindConfirmBooking,
	"checkout.session.async_payment_succeeded": KindConfirmBooking,
	"checkout.session.async_payment_failed":    KindFailBooking,
	"payment_intent.payment_failed":            KindFailBooking,
	"payment_intent.succeeded":                 KindMarkPaid,
	"charge.refunded":                          KindRefund,
	"charge.dispute.created":                   KindDispute,
}

// RouteEventType maps a provider event type to its handler kind.
func RouteEventType(eventType string) EventKind {
	if k, ok := routes[eventType]; ok {
		return k
	}
	return KindUnhandled
}

// BookingReconciler is the set of booking transitions events can trigger.
type BookingReconciler interface {
	Confirm(ctx context.Context, ev *reconciler.PaymentEvent) (reconciler.Outcome, error)
	MarkPaid(ctx context.Context, ev *reconciler.PaymentEvent) (reconciler.Outcome, error)
	Fail(ctx context.Context, ev *reconciler.PaymentEvent) (reconciler.Outcome, error)
	Refund(ctx context.Context, ev *reconciler.PaymentEvent) (reconciler.Outcome, error)
	Dispute(ctx context.Context, ev *reconciler.PaymentEvent) (reconciler.Outcome, error)
}

func dispatch(ctx context.Context, r BookingReconciler, kind EventKind, ev *reconciler.PaymentEvent) (reconciler.Outcome, error) {
	switch kind {
	case KindUnhandled:
		return reconciler.OutcomeIgnored, nil
	case KindConfirmBooking:
		return r.Confirm(ctx, ev)
	case KindFailBooking:
		return r.Fail(ctx, ev)
	case KindMarkPaid:
		return r.MarkPaid(ctx, ev)
	case KindRefund:
		return r.Refund(ctx, ev)
	case KindDispute:
		return r.Dispute(ctx, ev)
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownEventKind, kind)
}
