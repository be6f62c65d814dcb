package reconciler

import (
	"errors"

	"github.com/fatflowers/staypay/internal/platform/stripe/stripe_webhook"
)

var (
	// ErrMissingBookingReference means the event carries no booking id.
	ErrMissingBookingReference = errors.New("event has no booking reference")
	// ErrMissingPaymentReference means the event carries no payment intent id.
	ErrMissingPaymentReference = errors.New("event has no payment reference")
	ErrBookingNotFound         = errors.New("booking not found")
)

// IsPermanent reports whether redelivering the same event can never succeed.
// Everything else, store and network failures included, is transient.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrMissingBookingReference) ||
		errors.Is(err, ErrMissingPaymentReference) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, stripe_webhook.ErrMalformedEvent)
}
