package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/internal/platform/db/dbtest"
	"github.com/fatflowers/staypay/pkg/config"
	"github.com/fatflowers/staypay/pkg/types"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	log := zap.NewNop().Sugar()
	return New(db, webhookevent.New(db, log), log), db
}

func charge(eventID string, amount int64) *models.PaymentTransaction {
	now := time.Now().UTC()
	return &models.PaymentTransaction{
		BookingID:                "B1",
		Type:                     types.TransactionTypeCharge,
		Amount:                   amount,
		Currency:                 "usd",
		ProviderPaymentReference: "pi_1",
		Status:                   types.TransactionStatusSucceeded,
		PaymentMethodType:        "card",
		SourceEventID:            eventID,
		CompletedAt:              &now,
	}
}

func TestAppend_IdempotentPerSourceEvent(t *testing.T) {
	s, db := newService(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, charge("evt_1", 25000)))
	require.NoError(t, s.Append(ctx, charge("evt_1", 25000)))
	require.NoError(t, s.Append(ctx, charge("evt_2", 100)))

	var n int64
	require.NoError(t, db.Model(&models.PaymentTransaction{}).Count(&n).Error)
	require.EqualValues(t, 2, n)

	require.ErrorIs(t, s.Append(ctx, &models.PaymentTransaction{BookingID: "B1"}), ErrInvalidTransaction)
}

func TestSweep_ResolvesPendingRepairs(t *testing.T) {
	s, db := newService(t)
	ctx := context.Background()

	require.NoError(t, s.MarkRepairPending(ctx, charge("evt_1", 25000), errors.New("insert timeout")))
	// duplicate marker for the same event is ignored
	require.NoError(t, s.MarkRepairPending(ctx, charge("evt_1", 25000), nil))

	pending, err := s.CountPendingRepairs(ctx, "B1")
	require.NoError(t, err)
	require.EqualValues(t, 1, pending)

	res, err := s.Sweep(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, &SweepResult{Scanned: 1, Resolved: 1}, res)

	rows, err := s.ListByBooking(ctx, "B1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 25000, rows[0].Amount)
	require.Equal(t, "evt_1", rows[0].SourceEventID)

	var repair models.LedgerRepair
	require.NoError(t, db.Where("event_id = ?", "evt_1").Take(&repair).Error)
	require.Equal(t, models.LedgerRepairStatusResolved, repair.Status)
	require.Equal(t, 1, repair.Attempts)
	require.NotNil(t, repair.ResolvedAt)

	res, err = s.Sweep(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, res.Scanned)
}

func TestSweep_RowAlreadyAppended(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, charge("evt_1", 25000)))
	require.NoError(t, s.MarkRepairPending(ctx, charge("evt_1", 25000), errors.New("ambiguous commit")))

	res, err := s.Sweep(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.Resolved)

	rows, err := s.ListByBooking(ctx, "B1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestSweep_KeepsMarkerWhenAppendFails(t *testing.T) {
	s, db := newService(t)
	ctx := context.Background()

	require.NoError(t, s.MarkRepairPending(ctx, charge("evt_1", 25000), nil))
	require.NoError(t, db.Migrator().DropTable(&models.PaymentTransaction{}))

	res, err := s.Sweep(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)

	var repair models.LedgerRepair
	require.NoError(t, db.Where("event_id = ?", "evt_1").Take(&repair).Error)
	require.Equal(t, models.LedgerRepairStatusPending, repair.Status)
	require.Equal(t, 1, repair.Attempts)
	require.NotNil(t, repair.LastError)
}

func TestScan(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, charge("evt_1", 25000)))
	refund := charge("evt_2", 5000)
	refund.Type = types.TransactionTypeRefund
	require.NoError(t, s.Append(ctx, refund))

	res, err := s.Scan(ctx, &types.ScanRequest{
		Filters: []*types.CommonFilter{{Field: "type", Operator: types.CommonFilterOperatorEq, Values: []any{"refund"}}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.EqualValues(t, 5000, res.Items[0].Amount)

	_, err = s.Scan(ctx, &types.ScanRequest{SortBy: "metadata"})
	require.ErrorIs(t, err, types.ErrFilterFieldNotAllowed)
}

func TestSweepWorker_StopsOnRequest(t *testing.T) {
	s, _ := newService(t)
	cfg := &config.Config{Ledger: config.LedgerConfig{SweepIntervalSeconds: 1, SweepBatchSize: 5}}
	w := NewSweepWorker(s, cfg, nil, zap.NewNop().Sugar())

	go w.Run(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	// second stop is a no-op
	require.NoError(t, w.Stop(ctx))
}
