package stripe_webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
)

const metadataBookingID = "booking_id"

// Object is the provider-neutral view of the event's data.object.
type Object struct {
	ID               string
	BookingID        string
	PaymentReference string
	ChargeReference  string
	SessionID        string
	AmountTotal      int64
	AmountRefunded   int64
	Currency         string
	PaymentMethod    string
	CustomerEmail    string
	DisputeID        string
	DisputeReason    string
}

// DecodeObject extracts booking and payment references from the event object.
// The booking id comes from metadata.booking_id, then client_reference_id. The
// payment reference is the object id for payment_intent.* and the object's
// payment_intent for checkout.session.* and charge.*.
func DecodeObject(evt *stripe.Event) (*Object, error) {
	if evt == nil || evt.Data == nil || len(evt.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: missing data.object", ErrMalformedEvent)
	}
	raw := evt.Data.Raw
	t := string(evt.Type)

	switch {
	case strings.HasPrefix(t, "checkout.session."):
		var s stripe.CheckoutSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", ErrMalformedEvent, err)
		}
		obj := &Object{
			ID:            s.ID,
			BookingID:     bookingID(s.Metadata, s.ClientReferenceID),
			SessionID:     s.ID,
			AmountTotal:   s.AmountTotal,
			Currency:      string(s.Currency),
			CustomerEmail: s.CustomerEmail,
			PaymentMethod: firstOf(s.PaymentMethodTypes),
		}
		if s.CustomerDetails != nil && obj.CustomerEmail == "" {
			obj.CustomerEmail = s.CustomerDetails.Email
		}
		if s.PaymentIntent != nil {
			obj.PaymentReference = s.PaymentIntent.ID
		}
		return obj, nil

	case strings.HasPrefix(t, "payment_intent."):
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: payment intent: %v", ErrMalformedEvent, err)
		}
		obj := &Object{
			ID:               pi.ID,
			BookingID:        bookingID(pi.Metadata, ""),
			PaymentReference: pi.ID,
			AmountTotal:      pi.Amount,
			Currency:         string(pi.Currency),
			PaymentMethod:    firstOf(pi.PaymentMethodTypes),
			CustomerEmail:    pi.ReceiptEmail,
		}
		if pi.LatestCharge != nil {
			obj.ChargeReference = pi.LatestCharge.ID
		}
		return obj, nil

	case strings.HasPrefix(t, "charge.dispute."):
		var d stripe.Dispute
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: dispute: %v", ErrMalformedEvent, err)
		}
		obj := &Object{
			ID:            d.ID,
			BookingID:     bookingID(d.Metadata, ""),
			DisputeID:     d.ID,
			DisputeReason: string(d.Reason),
			AmountTotal:   d.Amount,
			Currency:      string(d.Currency),
		}
		if d.PaymentIntent != nil {
			obj.PaymentReference = d.PaymentIntent.ID
		}
		if d.Charge != nil {
			obj.ChargeReference = d.Charge.ID
		}
		return obj, nil

	case strings.HasPrefix(t, "charge."):
		var c stripe.Charge
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: charge: %v", ErrMalformedEvent, err)
		}
		obj := &Object{
			ID:              c.ID,
			BookingID:       bookingID(c.Metadata, ""),
			ChargeReference: c.ID,
			AmountTotal:     c.Amount,
			AmountRefunded:  c.AmountRefunded,
			Currency:        string(c.Currency),
			CustomerEmail:   c.ReceiptEmail,
		}
		if c.PaymentIntent != nil {
			obj.PaymentReference = c.PaymentIntent.ID
		}
		if c.PaymentMethodDetails != nil {
			obj.PaymentMethod = string(c.PaymentMethodDetails.Type)
		}
		return obj, nil
	}

	// Unrouted types still get their id recorded for the audit trail.
	var generic struct {
		ID       string            `json:"id"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return &Object{ID: generic.ID, BookingID: bookingID(generic.Metadata, "")}, nil
}

func bookingID(metadata map[string]string, clientReference string) string {
	if id := strings.TrimSpace(metadata[metadataBookingID]); id != "" {
		return id
	}
	return strings.TrimSpace(clientReference)
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
