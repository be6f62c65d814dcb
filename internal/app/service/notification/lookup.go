package notification

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/fatflowers/staypay/internal/models"
)

// BookingDetails is the display data used for notification and email text.
type BookingDetails struct {
	PropertyTitle    string
	PropertyLocation string
	Guest            *models.Profile
	Host             *models.Profile
}

// DetailsLookup reads listing and profile data owned by other services.
type DetailsLookup interface {
	Lookup(ctx context.Context, b *models.Booking) (*BookingDetails, error)
}

type GormDetailsLookup struct {
	db *gorm.DB
}

func NewGormDetailsLookup(db *gorm.DB) *GormDetailsLookup { return &GormDetailsLookup{db: db} }

func (l *GormDetailsLookup) Lookup(ctx context.Context, b *models.Booking) (*BookingDetails, error) {
	var prop models.Property
	if err := l.db.WithContext(ctx).Where("id = ?", b.PropertyID).Take(&prop).Error; err != nil {
		return nil, fmt.Errorf("lookup property %s: %w", b.PropertyID, err)
	}
	d := &BookingDetails{PropertyTitle: prop.Title, PropertyLocation: prop.Location}

	var profiles []*models.Profile
	if err := l.db.WithContext(ctx).Where("user_id IN ?", []string{b.GuestID, b.HostID}).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("lookup profiles for booking %s: %w", b.ID, err)
	}
	for _, p := range profiles {
		switch p.UserID {
		case b.GuestID:
			d.Guest = p
		case b.HostID:
			d.Host = p
		}
	}
	return d, nil
}
