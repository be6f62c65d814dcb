package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/staypay/pkg/types"
)

// PaymentTransaction is an append-only ledger row. Corrections are new rows.
type PaymentTransaction struct {
	ID                       string                  `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	BookingID                string                  `gorm:"column:booking_id;type:varchar(64);not null;index" json:"booking_id"`
	Type                     types.TransactionType   `gorm:"column:type;type:varchar(16);not null" json:"type"`
	Amount                   int64                   `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency                 string                  `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	ProviderPaymentReference string                  `gorm:"column:provider_payment_reference;type:varchar(255);index" json:"provider_payment_reference"`
	ProviderChargeReference  *string                 `gorm:"column:provider_charge_reference;type:varchar(255)" json:"provider_charge_reference"`
	ProviderSessionReference *string                 `gorm:"column:provider_session_reference;type:varchar(255)" json:"provider_session_reference"`
	Status                   types.TransactionStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	PaymentMethodType        string                  `gorm:"column:payment_method_type;type:varchar(64)" json:"payment_method_type"`
	// SourceEventID is the provider event that produced the row; unique so
	// replays and repair sweeps append at most once.
	SourceEventID            string                  `gorm:"column:source_event_id;type:varchar(255);not null;uniqueIndex" json:"source_event_id"`
	CompletedAt              *time.Time              `gorm:"column:completed_at" json:"completed_at"`
	Metadata                 datatypes.JSONMap       `gorm:"column:metadata;type:jsonb;default:'{}'" json:"metadata" swaggertype:"object"`
	CreatedAt                time.Time               `json:"created_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
