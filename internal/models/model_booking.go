package models

import (
	"time"

	"github.com/fatflowers/staypay/pkg/types"
)

// Booking is owned by the booking CRUD layer; the reconciler only moves its
// status and payment columns.
type Booking struct {
	ID                string              `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	PropertyID        string              `gorm:"column:property_id;type:varchar(64);not null;index" json:"property_id"`
	GuestID           string              `gorm:"column:guest_id;type:varchar(64);not null;index" json:"guest_id"`
	HostID            string              `gorm:"column:host_id;type:varchar(64);not null;index" json:"host_id"`
	CheckIn           time.Time           `gorm:"column:check_in;not null" json:"check_in"`
	CheckOut          time.Time           `gorm:"column:check_out;not null" json:"check_out"`
	GuestsCount       int                 `gorm:"column:guests_count;not null;default:1" json:"guests_count"`
	TotalAmount       int64               `gorm:"column:total_amount;type:bigint;not null" json:"total_amount"`
	Currency          string              `gorm:"column:currency;type:varchar(8);not null;default:'usd'" json:"currency"`
	Status            types.BookingStatus `gorm:"column:status;type:varchar(32);not null;default:'pending'" json:"status"`
	PaymentStatus     types.PaymentStatus `gorm:"column:payment_status;type:varchar(32);not null;default:'unpaid'" json:"payment_status"`
	PaymentReference  *string             `gorm:"column:payment_reference;type:varchar(255);index" json:"payment_reference"`
	CheckoutSessionID *string             `gorm:"column:checkout_session_id;type:varchar(255)" json:"checkout_session_id"`
	PaymentMethod     *string             `gorm:"column:payment_method;type:varchar(64)" json:"payment_method"`
	// RefundAmount is the cumulative refunded amount in minor units.
	RefundAmount      int64               `gorm:"column:refund_amount;type:bigint;not null;default:0" json:"refund_amount"`
	RefundedAt        *time.Time          `gorm:"column:refunded_at" json:"refunded_at"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// RefundAmountMajor returns the refunded amount in major units, 5000 -> 50.00.
func (b *Booking) RefundAmountMajor() float64 {
	return types.MinorToMajor(b.RefundAmount)
}

// IsPaid reports whether the booking's payment has settled and not been refunded.
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == types.PaymentStatusPaid
}
