package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/pkg/logctx"
	"github.com/fatflowers/staypay/pkg/tool"
	"github.com/fatflowers/staypay/pkg/types"
)

var ErrInvalidTransaction = errors.New("invalid ledger transaction")

// EventLister reads the provider events recorded for a booking.
type EventLister interface {
	ListByBooking(ctx context.Context, bookingID, paymentReference string, limit int) ([]*models.WebhookEvent, error)
}

// Service owns the append-only payment ledger and its repair markers.
type Service struct {
	db     *gorm.DB
	events EventLister
	log    *zap.SugaredLogger
}

func New(db *gorm.DB, events EventLister, log *zap.SugaredLogger) *Service {
	return &Service{db: db, events: events, log: log}
}

// Append inserts a ledger row. A row for the same source event is left as is,
// which makes replays and repair sweeps safe.
func (s *Service) Append(ctx context.Context, tx *models.PaymentTransaction) error {
	if tx == nil || tx.BookingID == "" || tx.SourceEventID == "" {
		return ErrInvalidTransaction
	}
	if tx.ID == "" {
		tx.ID = tool.GenerateUUIDV7()
	}
	if tx.Metadata == nil {
		tx.Metadata = datatypes.JSONMap{}
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_event_id"}},
		DoNothing: true,
	}).Create(tx)
	if res.Error != nil {
		return fmt.Errorf("append %s ledger row for booking %s: %w", tx.Type, tx.BookingID, res.Error)
	}
	logctx.FromCtx(ctx, s.log).Infow("ledger_appended",
		"booking_id", tx.BookingID,
		"type", tx.Type,
		"amount", tx.Amount,
		"source_event_id", tx.SourceEventID,
		"inserted", res.RowsAffected > 0,
	)
	return nil
}

// MarkRepairPending records that tx must still be appended for a booking
// transition that already committed.
func (s *Service) MarkRepairPending(ctx context.Context, tx *models.PaymentTransaction, cause error) error {
	if tx == nil || tx.SourceEventID == "" {
		return ErrInvalidTransaction
	}
	repair := &models.LedgerRepair{
		ID:          tool.GenerateUUIDV7(),
		EventID:     tx.SourceEventID,
		BookingID:   tx.BookingID,
		Status:      models.LedgerRepairStatusPending,
		Transaction: datatypes.NewJSONType(tx),
	}
	if cause != nil {
		msg := cause.Error()
		repair.LastError = &msg
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(repair).Error
	if err != nil {
		return fmt.Errorf("mark ledger repair for event %s: %w", tx.SourceEventID, err)
	}
	logctx.FromCtx(ctx, s.log).Warnw("ledger_repair_pending",
		"booking_id", tx.BookingID,
		"source_event_id", tx.SourceEventID,
		"cause", cause,
	)
	return nil
}

// ListByBooking returns the ledger rows of a booking in insertion order.
func (s *Service) ListByBooking(ctx context.Context, bookingID string) ([]*models.PaymentTransaction, error) {
	var rows []*models.PaymentTransaction
	if err := s.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list ledger rows for booking %s: %w", bookingID, err)
	}
	return rows, nil
}

// CountPendingRepairs returns pending markers for bookingID, or all when empty.
func (s *Service) CountPendingRepairs(ctx context.Context, bookingID string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.LedgerRepair{}).Where("status = ?", models.LedgerRepairStatusPending)
	if bookingID != "" {
		q = q.Where("booking_id = ?", bookingID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count pending ledger repairs: %w", err)
	}
	return n, nil
}

var scanFields = []string{
	"id", "booking_id", "type", "amount", "currency", "provider_payment_reference",
	"status", "payment_method_type", "source_event_id", "completed_at", "created_at",
}

type ScanResponse struct {
	Items []*models.PaymentTransaction `json:"items"`
	Total int64                        `json:"total"`
}

// Scan implements paginated/admin listing with filters
func (s *Service) Scan(ctx context.Context, req *types.ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := req.Normalize(scanFields); err != nil {
		return nil, err
	}
	query := func() *gorm.DB {
		tx := s.db.WithContext(ctx).Model(&models.PaymentTransaction{})
		if len(req.Filters) > 0 {
			tx = tx.Where(clause.Where{Exprs: []clause.Expression{types.FiltersAnd(req.Filters)}})
		}
		return tx
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count ledger rows: %w", err)
	}
	var rows []*models.PaymentTransaction
	if err := query().Order(req.OrderBy("created_at")).Limit(req.Size).Offset(req.From).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger rows: %w", err)
	}
	return &ScanResponse{Items: rows, Total: total}, nil
}
