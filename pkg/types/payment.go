package types

import (
	"fmt"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type TransactionType string

const (
	TransactionTypeCharge TransactionType = "charge"
	TransactionTypeRefund TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionStatusSucceeded TransactionStatus = "succeeded"
	TransactionStatusFailed    TransactionStatus = "failed"
)

type NotificationType string

const (
	NotificationTypeBookingConfirmed NotificationType = "booking_confirmed"
	NotificationTypeNewBooking       NotificationType = "new_booking"
	NotificationTypePaymentFailed    NotificationType = "payment_failed"
	NotificationTypeRefundProcessed  NotificationType = "refund_processed"
	NotificationTypePaymentDispute   NotificationType = "payment_dispute"
)

type EmailType string

const (
	EmailTypeBookingConfirmation EmailType = "booking_confirmation"
	EmailTypeHostNotification    EmailType = "host_notification"
	EmailTypeBookingCancellation EmailType = "booking_cancellation"
)

const DefaultCurrency = "usd"

// MinorToMajor converts an amount in minor units (cents) to major units.
func MinorToMajor(amount int64) float64 {
	return float64(amount) / 100
}

// FormatMinor renders 5000 as "50.00".
func FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
