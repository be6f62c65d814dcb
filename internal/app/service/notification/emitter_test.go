package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/internal/platform/db/dbtest"
	"github.com/fatflowers/staypay/internal/platform/mailer"
	"github.com/fatflowers/staypay/pkg/types"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []*mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg *mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

type failingLookup struct{}

func (failingLookup) Lookup(context.Context, *models.Booking) (*BookingDetails, error) {
	return nil, errors.New("listing service down")
}

func seedListing(t *testing.T, db *gorm.DB) *models.Booking {
	t.Helper()
	require.NoError(t, db.Create(&models.Property{ID: "P1", HostID: "H1", Title: "Lake House", Location: "Tahoe"}).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: "G1", Email: "guest@example.com", FirstName: "Ada", LastName: "Lovelace"}).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: "H1", Email: "host@example.com", FirstName: "Grace", LastName: "Hopper"}).Error)
	return &models.Booking{
		ID: "B1", PropertyID: "P1", GuestID: "G1", HostID: "H1",
		CheckIn: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), CheckOut: time.Date(2026, 12, 4, 0, 0, 0, 0, time.UTC),
		GuestsCount: 2, TotalAmount: 25000, RefundAmount: 5000,
	}
}

func notificationsFor(t *testing.T, db *gorm.DB, userID string) []*models.Notification {
	t.Helper()
	var rows []*models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Order("type").Find(&rows).Error)
	return rows
}

func TestEmitter_BookingConfirmed(t *testing.T) {
	db := dbtest.Open(t)
	b := seedListing(t, db)
	m := &recordingMailer{}
	e := NewEmitter(db, NewGormDetailsLookup(db), m, zap.NewNop().Sugar())

	e.BookingConfirmed(context.Background(), b)
	e.Wait()

	guest := notificationsFor(t, db, "G1")
	require.Len(t, guest, 1)
	require.Equal(t, types.NotificationTypeBookingConfirmed, guest[0].Type)
	require.Equal(t, "Booking Confirmed!", guest[0].Title)
	require.Equal(t, "Your booking at Lake House has been confirmed.", guest[0].Message)
	require.Equal(t, "B1", guest[0].Metadata["booking_id"])

	host := notificationsFor(t, db, "H1")
	require.Len(t, host, 1)
	require.Equal(t, types.NotificationTypeNewBooking, host[0].Type)
	require.Equal(t, "You have a new booking from Ada Lovelace.", host[0].Message)

	require.Len(t, m.sent, 2)
	require.Equal(t, types.EmailTypeBookingConfirmation, m.sent[0].Type)
	require.Equal(t, "guest@example.com", m.sent[0].Data.GuestEmail)
	require.Equal(t, "host@example.com", m.sent[0].Data.HostEmail)
	require.Equal(t, "2026-12-01", m.sent[0].Data.CheckInDate)
	require.Equal(t, "250.00", m.sent[0].Data.TotalAmount)
	require.Equal(t, types.EmailTypeHostNotification, m.sent[1].Type)
}

func TestEmitter_DegradesWithoutDetails(t *testing.T) {
	db := dbtest.Open(t)
	b := seedListing(t, db)
	e := NewEmitter(db, failingLookup{}, mailer.Disabled{}, zap.NewNop().Sugar())

	e.PaymentFailed(context.Background(), b)
	e.DisputeCreated(context.Background(), b, "dp_1")
	e.Wait()

	guest := notificationsFor(t, db, "G1")
	require.Len(t, guest, 1)
	require.Equal(t, "Your payment for your booking failed. Please try again.", guest[0].Message)

	host := notificationsFor(t, db, "H1")
	require.Len(t, host, 1)
	require.Equal(t, types.NotificationTypePaymentDispute, host[0].Type)
	require.Equal(t, "dp_1", host[0].Metadata["dispute_id"])
}

func TestEmitter_FailuresNeverEscape(t *testing.T) {
	db := dbtest.Open(t)
	b := seedListing(t, db)
	require.NoError(t, db.Migrator().DropTable(&models.Notification{}))
	m := &recordingMailer{err: errors.New("smtp down")}
	e := NewEmitter(db, NewGormDetailsLookup(db), m, zap.NewNop().Sugar())

	require.NotPanics(t, func() {
		e.BookingConfirmed(context.Background(), b)
		e.RefundProcessed(context.Background(), b)
		e.Wait()
	})
	require.Len(t, m.sent, 2)
}

func TestEmitter_SurvivesCancelledContext(t *testing.T) {
	db := dbtest.Open(t)
	b := seedListing(t, db)
	e := NewEmitter(db, NewGormDetailsLookup(db), mailer.Disabled{}, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	e.RefundProcessed(ctx, b)
	cancel()
	e.Wait()

	guest := notificationsFor(t, db, "G1")
	require.Len(t, guest, 1)
	require.Equal(t, "Your refund of 50.00 for Lake House has been processed.", guest[0].Message)
}
