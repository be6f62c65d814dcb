// Package stripetest builds signed provider deliveries for tests.
package stripetest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v81/webhook"
)

const Secret = "whsec_test_secret"

// Sign returns the signature header for payload signed now with Secret.
func Sign(t testing.TB, payload []byte) string {
	t.Helper()
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    Secret,
		Timestamp: time.Now(),
	}).Header
}

// Event renders an event envelope around object.
func Event(t testing.TB, id, eventType string, object map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"api_version": "2024-06-20",
		"data":        map[string]any{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return b
}

// CheckoutCompleted is a checkout.session.completed event. An empty bookingID
// leaves the booking metadata out.
func CheckoutCompleted(t testing.TB, id, bookingID, paymentIntent string, amount int64) []byte {
	t.Helper()
	obj := map[string]any{
		"id":                   "cs_" + id,
		"object":               "checkout.session",
		"payment_intent":       paymentIntent,
		"amount_total":         amount,
		"currency":             "usd",
		"customer_email":       "guest@example.com",
		"payment_method_types": []string{"card"},
		"metadata":             map[string]string{},
	}
	if bookingID != "" {
		obj["metadata"] = map[string]string{"booking_id": bookingID}
	}
	return Event(t, id, "checkout.session.completed", obj)
}

// ChargeRefunded is a charge.refunded event without booking metadata.
func ChargeRefunded(t testing.TB, id, paymentIntent string, amountRefunded int64) []byte {
	t.Helper()
	return Event(t, id, "charge.refunded", map[string]any{
		"id":              "ch_" + id,
		"object":          "charge",
		"payment_intent":  paymentIntent,
		"amount":          25000,
		"amount_refunded": amountRefunded,
		"currency":        "usd",
		"refunded":        amountRefunded >= 25000,
	})
}
