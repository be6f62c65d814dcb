package webhook_event

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/pkg/logctx"
	"github.com/fatflowers/staypay/pkg/types"
)

// maxErrorLen bounds last_error so a verbose driver error cannot bloat rows.
const maxErrorLen = 2000

// AttemptRecord is what the endpoint knows about a delivery before running
// its handler.
type AttemptRecord struct {
	EventID           string
	EventType         string
	BookingID         string
	PaymentReference  string
	RawPayload        []byte
	ProviderCreatedAt time.Time
}

// Outcome finalizes a handled delivery. Processed=false keeps the event
// eligible for redelivery.
type Outcome struct {
	Processed bool
	Err       error
}

// Service is the idempotency ledger for provider events.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// FindByEventID returns nil, nil when the event has never been recorded.
func (s *Service) FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var evt models.WebhookEvent
	err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&evt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find webhook event %s: %w", eventID, err)
	}
	return &evt, nil
}

// RecordAttempt inserts the event or increments its attempt counter in one
// statement. It never touches processed.
func (s *Service) RecordAttempt(ctx context.Context, rec *AttemptRecord) (*models.WebhookEvent, error) {
	if rec == nil || rec.EventID == "" {
		return nil, fmt.Errorf("record attempt: empty event id")
	}
	row := &models.WebhookEvent{
		EventID:            rec.EventID,
		EventType:          rec.EventType,
		BookingID:          lo.EmptyableToPtr(rec.BookingID),
		PaymentReference:   lo.EmptyableToPtr(rec.PaymentReference),
		ProcessingAttempts: 1,
		RawPayload:         datatypes.JSON(rec.RawPayload),
		ProviderCreatedAt:  rec.ProviderCreatedAt,
	}
	if len(rec.RawPayload) == 0 {
		row.RawPayload = datatypes.JSON("null")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"processing_attempts": gorm.Expr("webhook_events.processing_attempts + 1"),
			"event_type":          rec.EventType,
			"booking_id":          gorm.Expr("COALESCE(?, webhook_events.booking_id)", row.BookingID),
			"payment_reference":   gorm.Expr("COALESCE(?, webhook_events.payment_reference)", row.PaymentReference),
			"raw_payload":         row.RawPayload,
			"updated_at":          s.db.NowFunc(),
		}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("record attempt for %s: %w", rec.EventID, err)
	}

	stored, err := s.FindByEventID(ctx, rec.EventID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("record attempt for %s: row missing after upsert", rec.EventID)
	}
	logctx.FromCtx(ctx, s.log).Infow("webhook_attempt_recorded",
		"event_id", stored.EventID,
		"attempts", stored.ProcessingAttempts,
		"processed", stored.Processed,
	)
	return stored, nil
}

// Finalize records the handler result. Only unprocessed rows are touched, so
// a processed event is never reverted by a slower concurrent delivery.
func (s *Service) Finalize(ctx context.Context, eventID string, out Outcome) error {
	now := s.db.NowFunc()
	updates := map[string]interface{}{"updated_at": now}
	if out.Processed {
		updates["processed"] = true
		updates["processed_at"] = now
	}
	if out.Err != nil {
		updates["last_error"] = truncate(out.Err.Error(), maxErrorLen)
		updates["last_error_at"] = now
	} else {
		updates["last_error"] = nil
		updates["last_error_at"] = nil
	}

	res := s.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("event_id = ? AND processed = ?", eventID, false).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("finalize webhook event %s: %w", eventID, res.Error)
	}
	if res.RowsAffected == 0 {
		logctx.FromCtx(ctx, s.log).Infow("webhook_finalize_noop", "event_id", eventID, "processed", out.Processed)
	}
	return nil
}

// ListByBooking returns the most recent events linked to a booking, newest
// first. Refund and dispute events carry no booking id and are matched by
// paymentReference when it is set.
func (s *Service) ListByBooking(ctx context.Context, bookingID, paymentReference string, limit int) ([]*models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	cond := s.db.Where("booking_id = ?", bookingID)
	if paymentReference != "" {
		cond = cond.Or("payment_reference = ?", paymentReference)
	}
	var rows []*models.WebhookEvent
	err := s.db.WithContext(ctx).Omit("raw_payload").
		Where(cond).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list webhook events for booking %s: %w", bookingID, err)
	}
	return rows, nil
}

var scanFields = []string{
	"event_id", "event_type", "booking_id", "payment_reference", "processed",
	"processing_attempts", "last_error_at", "processed_at", "provider_created_at", "created_at", "updated_at",
}

type ScanResponse struct {
	Items []*models.WebhookEvent `json:"items"`
	Total int64                  `json:"total"`
}

// Scan implements the paginated admin listing with filters.
func (s *Service) Scan(ctx context.Context, req *types.ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := req.Normalize(scanFields); err != nil {
		return nil, err
	}

	query := func() *gorm.DB {
		tx := s.db.WithContext(ctx).Model(&models.WebhookEvent{})
		if len(req.Filters) > 0 {
			tx = tx.Where(clause.Where{Exprs: []clause.Expression{types.FiltersAnd(req.Filters)}})
		}
		return tx
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count webhook events: %w", err)
	}

	var rows []*models.WebhookEvent
	q := query().Omit("raw_payload").Order(req.OrderBy("created_at")).Limit(req.Size).Offset(req.From)
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}
	return &ScanResponse{Items: rows, Total: total}, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
