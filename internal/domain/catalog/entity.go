// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"gorm.io/gorm"
)

// Drink represents a sellable drink product. VolumeML is the nominal size
// of one retail unit and drives all ml/unit conversions; a drink is
// immutable once stock, movements or recipes reference it.
type Drink struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Brand     string         `gorm:"size:100" json:"brand"`
	VolumeML  int64          `gorm:"not null" json:"volume_ml"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Supplier represents a drink supplier
type Supplier struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Email     string         `gorm:"size:100" json:"email"`
	Phone     string         `gorm:"size:20" json:"phone"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Event represents a temporary event (festival, concert) owned by a user
type Event struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	OwnerID   uint           `gorm:"not null;index" json:"owner_id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Venue     string         `gorm:"size:100" json:"venue"`
	StartsAt  time.Time      `json:"starts_at"`
	EndsAt    time.Time      `json:"ends_at"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Bars []Bar `gorm:"foreignKey:EventID" json:"bars,omitempty"`
}

// Bar represents a serving point inside an event
type Bar struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	EventID   uint           `gorm:"not null;index" json:"event_id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Event Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}

// UnitCount converts a raw ml quantity into whole retail units of this drink.
func (d *Drink) UnitCount(quantityML int64) int64 {
	if d.VolumeML <= 0 {
		return 0
	}
	return quantityML / d.VolumeML
}
