package models

import (
	"time"

	"gorm.io/datatypes"
)

type LedgerRepairStatus string

const (
	LedgerRepairStatusPending  LedgerRepairStatus = "pending"
	LedgerRepairStatusResolved LedgerRepairStatus = "resolved"
)

// LedgerRepair marks a booking transition whose ledger row could not be
// appended. The sweep worker appends Transaction and resolves the marker.
type LedgerRepair struct {
	ID          string                                  `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	EventID     string                                  `gorm:"column:event_id;type:varchar(255);not null;uniqueIndex" json:"event_id"`
	BookingID   string                                  `gorm:"column:booking_id;type:varchar(64);not null;index" json:"booking_id"`
	Status      LedgerRepairStatus                      `gorm:"column:status;type:varchar(16);not null;default:'pending';index" json:"status"`
	// Transaction 待补写的账本记录快照
	Transaction datatypes.JSONType[*PaymentTransaction] `gorm:"column:transaction;type:jsonb;default:'null'" json:"transaction" swaggertype:"object"`
	Attempts    int                                     `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError   *string                                 `gorm:"column:last_error;type:text" json:"last_error"`
	ResolvedAt  *time.Time                              `gorm:"column:resolved_at" json:"resolved_at"`
	CreatedAt   time.Time                               `json:"created_at"`
	UpdatedAt   time.Time                               `json:"updated_at"`
}

func (LedgerRepair) TableName() string { return "ledger_repairs" }
