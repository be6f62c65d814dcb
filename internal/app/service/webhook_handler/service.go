package webhook_handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"github.com/fatflowers/staypay/internal/app/service/reconciler"
	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/internal/platform/cache"
	"github.com/fatflowers/staypay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/staypay/pkg/logctx"
	"github.com/fatflowers/staypay/pkg/metrics"
)

var ErrEventNotFound = errors.New("webhook event not found")

// EventStore is the idempotency ledger the endpoint records deliveries in.
type EventStore interface {
	FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	RecordAttempt(ctx context.Context, rec *webhookevent.AttemptRecord) (*models.WebhookEvent, error)
	Finalize(ctx context.Context, eventID string, out webhookevent.Outcome) error
}

// Result is what the endpoint tells the provider about one delivery.
type Result struct {
	StatusCode       int
	EventID          string
	EventType        string
	Kind             EventKind
	Outcome          reconciler.Outcome
	AlreadyProcessed bool
	// WillRetry is set when the event was left unprocessed and a redelivery
	// is expected to succeed.
	WillRetry      bool
	Err            error
	ProcessingTime time.Duration
}

// Handler sequences verification, deduplication, routing, reconciliation
// and finalization for each delivery.
type Handler struct {
	verifier   *stripe_webhook.Verifier
	store      EventStore
	reconciler BookingReconciler
	processed  cache.ProcessedEvents
	metrics    *metrics.Recorder
	log        *zap.SugaredLogger
}

func New(verifier *stripe_webhook.Verifier, store EventStore, r BookingReconciler, processed cache.ProcessedEvents, m *metrics.Recorder, log *zap.SugaredLogger) *Handler {
	if processed == nil {
		processed = cache.Noop{}
	}
	return &Handler{verifier: verifier, store: store, reconciler: r, processed: processed, metrics: m, log: log}
}

// Handle processes one signed delivery. It never returns a nil Result.
func (h *Handler) Handle(ctx context.Context, payload []byte, signature string) *Result {
	start := time.Now()
	evt, err := h.verifier.Verify(payload, signature)
	if err != nil {
		logctx.FromCtx(ctx, h.log).Warnw("webhook_rejected", "err", err)
		h.metrics.WebhookEvent("unknown", "rejected")
		return &Result{StatusCode: http.StatusBadRequest, Err: err, ProcessingTime: time.Since(start)}
	}
	return h.process(ctx, evt, payload, start)
}

// Replay reprocesses a stored event that has not reached processed=true.
func (h *Handler) Replay(ctx context.Context, eventID string) (*Result, error) {
	start := time.Now()
	stored, err := h.store.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	payload := []byte(stored.RawPayload)
	evt, err := stripe_webhook.Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", eventID, err)
	}
	logctx.FromCtx(ctx, h.log).Infow("webhook_replay", "event_id", eventID, "event_type", stored.EventType)
	return h.process(ctx, evt, payload, start), nil
}

func (h *Handler) process(ctx context.Context, evt *stripe.Event, payload []byte, start time.Time) *Result {
	eventType := string(evt.Type)
	ctx, log := logctx.With(ctx, h.log, "event_id", evt.ID, "event_type", eventType)
	res := &Result{EventID: evt.ID, EventType: eventType, Kind: RouteEventType(eventType)}
	done := func(code int, result string) *Result {
		res.StatusCode = code
		res.ProcessingTime = time.Since(start)
		h.metrics.WebhookEvent(eventType, result)
		return res
	}

	if _, ok, err := h.processed.Lookup(ctx, evt.ID); err != nil {
		log.Warnw("processed_cache_lookup_failed", "err", err)
	} else if ok {
		res.AlreadyProcessed = true
		log.Infow("webhook_duplicate", "source", "cache")
		return done(http.StatusOK, "already_processed")
	}

	stored, err := h.store.FindByEventID(ctx, evt.ID)
	if err != nil {
		// the upsert below is still safe, so keep going
		log.Warnw("webhook_event_lookup_failed", "err", err)
	} else if stored != nil && stored.Processed {
		res.AlreadyProcessed = true
		log.Infow("webhook_duplicate", "source", "store", "attempts", stored.ProcessingAttempts)
		h.remember(ctx, evt.ID, eventType)
		return done(http.StatusOK, "already_processed")
	}

	obj, decodeErr := stripe_webhook.DecodeObject(evt)
	if decodeErr != nil {
		obj = &stripe_webhook.Object{}
	}
	if _, err := h.store.RecordAttempt(ctx, &webhookevent.AttemptRecord{
		EventID:           evt.ID,
		EventType:         eventType,
		BookingID:         obj.BookingID,
		PaymentReference:  obj.PaymentReference,
		RawPayload:        payload,
		ProviderCreatedAt: time.Unix(evt.Created, 0).UTC(),
	}); err != nil {
		log.Errorw("webhook_record_failed", "err", err)
		res.Err = err
		res.WillRetry = true
		return done(http.StatusInternalServerError, "retry")
	}

	var handleErr error
	if decodeErr != nil && res.Kind != KindUnhandled {
		handleErr = decodeErr
	} else {
		reconcileStart := time.Now()
		res.Outcome, handleErr = dispatch(ctx, h.reconciler, res.Kind, reconciler.FromObject(evt.ID, eventType, obj))
		h.metrics.Reconcile(res.Kind.String(), outcomeLabel(res.Outcome, handleErr), metrics.MillisecondsSince(reconcileStart))
	}
	res.Err = handleErr
	processed := handleErr == nil || reconciler.IsPermanent(handleErr)

	if err := h.store.Finalize(ctx, evt.ID, webhookevent.Outcome{Processed: processed, Err: handleErr}); err != nil {
		log.Errorw("webhook_finalize_failed", "err", err, "handler_err", handleErr)
		res.Err = errors.Join(handleErr, err)
		res.WillRetry = true
		return done(http.StatusInternalServerError, "retry")
	}

	switch {
	case handleErr == nil:
		log.Infow("webhook_processed", "kind", res.Kind.String(), "outcome", res.Outcome)
		h.remember(ctx, evt.ID, eventType)
		if res.Kind == KindUnhandled {
			return done(http.StatusOK, "ignored")
		}
		return done(http.StatusOK, "processed")
	case processed:
		log.Errorw("webhook_permanent_failure", "kind", res.Kind.String(), "err", handleErr)
		h.remember(ctx, evt.ID, eventType)
		return done(http.StatusOK, "failed")
	default:
		log.Errorw("webhook_transient_failure", "kind", res.Kind.String(), "err", handleErr)
		res.WillRetry = true
		return done(http.StatusInternalServerError, "retry")
	}
}

func (h *Handler) remember(ctx context.Context, eventID, eventType string) {
	if err := h.processed.Remember(ctx, eventID, eventType); err != nil {
		logctx.FromCtx(ctx, h.log).Warnw("processed_cache_write_failed", "event_id", eventID, "err", err)
	}
}

func outcomeLabel(out reconciler.Outcome, err error) string {
	switch {
	case err == nil:
		return string(out)
	case reconciler.IsPermanent(err):
		return "permanent_error"
	}
	return "transient_error"
}
