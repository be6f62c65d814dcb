package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent is the idempotency ledger entry for one provider event.
// Processed is terminal: once true it is never written back to false.
type WebhookEvent struct {
	EventID            string         `gorm:"column:event_id;type:varchar(255);primary_key" json:"event_id"`
	EventType          string         `gorm:"column:event_type;type:varchar(128);not null;index" json:"event_type"`
	BookingID          *string        `gorm:"column:booking_id;type:varchar(64);index" json:"booking_id"`
	PaymentReference   *string        `gorm:"column:payment_reference;type:varchar(255);index" json:"payment_reference"`
	Processed          bool           `gorm:"column:processed;not null;default:false;index" json:"processed"`
	ProcessingAttempts int            `gorm:"column:processing_attempts;not null;default:0" json:"processing_attempts"`
	LastError          *string        `gorm:"column:last_error;type:text" json:"last_error"`
	LastErrorAt        *time.Time     `gorm:"column:last_error_at" json:"last_error_at"`
	ProcessedAt        *time.Time     `gorm:"column:processed_at" json:"processed_at"`
	RawPayload         datatypes.JSON `gorm:"column:raw_payload;type:jsonb" json:"raw_payload" swaggertype:"object"`
	ProviderCreatedAt  time.Time      `gorm:"column:provider_created_at" json:"provider_created_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
