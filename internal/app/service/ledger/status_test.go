package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/pkg/types"
)

func TestGetPaymentStatus(t *testing.T) {
	s, db := newService(t)
	ctx := context.Background()
	now := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&models.Booking{
		ID: "B1", PropertyID: "P1", GuestID: "G1", HostID: "H1",
		CheckIn: now.AddDate(0, 1, 0), CheckOut: now.AddDate(0, 1, 3),
		TotalAmount: 25000, Currency: "usd",
		Status: types.BookingStatusConfirmed, PaymentStatus: types.PaymentStatusRefunded,
		PaymentReference: lo.ToPtr("pi_1"), RefundAmount: 5000,
	}).Error)
	require.NoError(t, s.Append(ctx, charge("evt_1", 25000)))
	refund := charge("evt_2", 5000)
	refund.Type = types.TransactionTypeRefund
	require.NoError(t, s.Append(ctx, refund))

	events := webhookevent.New(db, s.log)
	for _, id := range []string{"evt_1", "evt_2"} {
		_, err := events.RecordAttempt(ctx, &webhookevent.AttemptRecord{EventID: id, EventType: "x", BookingID: "B1"})
		require.NoError(t, err)
	}

	st, err := s.GetPaymentStatus(ctx, "B1", now)
	require.NoError(t, err)
	require.EqualValues(t, 25000, st.TotalPaid)
	require.EqualValues(t, 5000, st.TotalRefunded)
	require.Len(t, st.Transactions, 2)
	require.Len(t, st.RecentEvents, 2)
	require.False(t, st.CanRetry)
	require.Equal(t, NextActionRefunded, st.NextAction)
}

func TestGetPaymentStatus_NotFound(t *testing.T) {
	s, _ := newService(t)
	_, err := s.GetPaymentStatus(context.Background(), "nope", time.Now())
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestNextAction(t *testing.T) {
	tests := []struct {
		name    string
		booking models.Booking
		status  PaymentStatus
		want    NextAction
	}{
		{"pending repair wins", models.Booking{PaymentStatus: types.PaymentStatusPaid}, PaymentStatus{PendingRepairs: 1}, NextActionAwaitRepair},
		{"paid", models.Booking{PaymentStatus: types.PaymentStatusPaid}, PaymentStatus{}, NextActionNone},
		{"unpaid retryable", models.Booking{PaymentStatus: types.PaymentStatusUnpaid}, PaymentStatus{CanRetry: true}, NextActionPay},
		{"failed retryable", models.Booking{PaymentStatus: types.PaymentStatusFailed}, PaymentStatus{CanRetry: true}, NextActionRetryPayment},
		{"failed too late", models.Booking{PaymentStatus: types.PaymentStatusFailed}, PaymentStatus{}, NextActionContactSupport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, nextAction(&tt.booking, &tt.status))
		})
	}
}

func TestGetDailyStatistic(t *testing.T) {
	s, db := newService(t)
	ctx := context.Background()

	day1 := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 10, 2, 10, 0, 0, 0, time.UTC)
	rows := []*models.PaymentTransaction{
		withCreated(charge("evt_1", 25000), day1),
		withCreated(charge("evt_2", 10000), day1),
		withCreated(charge("evt_3", 5000), day2),
	}
	refund := withCreated(charge("evt_4", 2000), day2)
	refund.Type = types.TransactionTypeRefund
	rows = append(rows, refund)
	for _, r := range rows {
		require.NoError(t, s.Append(ctx, r))
	}
	// rows outside the window are ignored
	require.NoError(t, s.Append(ctx, withCreated(charge("evt_5", 999), day1.AddDate(0, -2, 0))))
	require.NoError(t, db.Error)

	res, err := s.GetDailyStatistic(ctx, &StatisticRequest{From: day1.Add(-time.Hour), To: day2.Add(time.Hour)}, day2)
	require.NoError(t, err)
	require.Equal(t, []StatisticDataItem{{Date: "2026-10-02", Value: 1}, {Date: "2026-10-01", Value: 2}}, res.DataItems[StatisticTypeDailyChargeCount])
	require.Equal(t, []StatisticDataItem{{Date: "2026-10-02", Label: "usd", Value: 5000}, {Date: "2026-10-01", Label: "usd", Value: 35000}}, res.DataItems[StatisticTypeDailyGross])
	require.Equal(t, []StatisticDataItem{{Date: "2026-10-02", Label: "usd", Value: 2000}}, res.DataItems[StatisticTypeDailyRefunded])

	_, err = s.GetDailyStatistic(ctx, &StatisticRequest{DataItems: []StatisticType{"renewal_rate"}}, day2)
	require.Error(t, err)
}

func withCreated(tx *models.PaymentTransaction, at time.Time) *models.PaymentTransaction {
	tx.CreatedAt = at
	return tx
}
