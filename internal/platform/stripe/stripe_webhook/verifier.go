package stripe_webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/fatflowers/staypay/pkg/config"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac-sha256>" over "<t>.<raw body>".
const SignatureHeader = "Stripe-Signature"

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMalformedEvent   = errors.New("malformed event payload")
)

// Verifier authenticates webhook deliveries against the endpoint signing secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

func NewVerifierFromConfig(cfg *config.Config) *Verifier {
	return NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.Tolerance())
}

// Verify checks the signature over the raw, unparsed body and decodes the
// event envelope. Nothing should be persisted for a delivery that fails here.
func (v *Verifier) Verify(payload []byte, signature string) (*stripe.Event, error) {
	if signature == "" {
		return nil, ErrMissingSignature
	}
	if v.secret == "" {
		return nil, fmt.Errorf("%w: signing secret not configured", ErrInvalidSignature)
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if evt.ID == "" || evt.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}
	return &evt, nil
}

// Parse decodes a payload that was verified when it was first received.
func Parse(payload []byte) (*stripe.Event, error) {
	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if evt.ID == "" || evt.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}
	return &evt, nil
}
