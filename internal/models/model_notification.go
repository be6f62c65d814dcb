package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/staypay/pkg/types"
)

type Notification struct {
	ID        string                 `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	UserID    string                 `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Type      types.NotificationType `gorm:"column:type;type:varchar(64);not null" json:"type"`
	Title     string                 `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Message   string                 `gorm:"column:message;type:text;not null" json:"message"`
	Read      bool                   `gorm:"column:read;not null;default:false" json:"read"`
	Metadata  datatypes.JSONMap      `gorm:"column:metadata;type:jsonb;default:'{}'" json:"metadata" swaggertype:"object"`
	CreatedAt time.Time              `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
