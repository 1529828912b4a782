// internal/domain/alert/entity.go
package alert

import (
	"encoding/json"
	"time"
)

// AlertType represents the kind of stock alert
type AlertType string

const (
	AlertTypeLowStock           AlertType = "low_stock"
	AlertTypeProjectedDepletion AlertType = "projected_depletion"
)

// AlertStatus represents the alert lifecycle state
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// StockThreshold configures low-stock and donation limits for one
// (event, drink, pool). Thresholds are whole retail units. Invariant:
// DonationThreshold >= LowerThreshold, so a donor is never suggested
// below its own floor.
type StockThreshold struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	EventID             uint      `gorm:"not null;uniqueIndex:idx_thresholds_key" json:"event_id"`
	DrinkID             uint      `gorm:"not null;uniqueIndex:idx_thresholds_key" json:"drink_id"`
	SellAsWholeUnit     bool      `gorm:"not null;uniqueIndex:idx_thresholds_key" json:"sell_as_whole_unit"`
	LowerThreshold      int64     `gorm:"not null" json:"lower_threshold"`
	DonationThreshold   int64     `gorm:"not null" json:"donation_threshold"`
	DepletionHorizonMin *int64    `json:"depletion_horizon_min,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DonorSuggestion is one ranked donor bar proposal. Quantities are whole
// units; the ranking is advisory and reserves nothing.
type DonorSuggestion struct {
	BarID             uint  `json:"bar_id"`
	SurplusUnits      int64 `json:"surplus_units"`
	SuggestedQuantity int64 `json:"suggested_quantity"`
}

// StockAlert records a breached threshold for one (bar, drink, pool).
// CurrentUnits and the threshold fields are a static snapshot taken at
// creation. At most one non-resolved alert may exist per
// (bar, drink, pool, type); a partial unique index backs this.
type StockAlert struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	EventID           uint        `gorm:"not null;index" json:"event_id"`
	BarID             uint        `gorm:"not null;index" json:"bar_id"`
	DrinkID           uint        `gorm:"not null" json:"drink_id"`
	SellAsWholeUnit   bool        `gorm:"not null" json:"sell_as_whole_unit"`
	AlertType         AlertType   `gorm:"not null;size:30" json:"alert_type"`
	Status            AlertStatus `gorm:"not null;default:'active';index" json:"status"`
	CurrentUnits      int64       `gorm:"not null" json:"current_units"`
	LowerThreshold    int64       `gorm:"not null" json:"lower_threshold"`
	DonationThreshold int64       `gorm:"not null" json:"donation_threshold"`
	ProjectedMinutes  *float64    `json:"projected_minutes,omitempty"`
	SuggestedDonors   string      `gorm:"type:text" json:"-"`
	ExternalNeeded    bool        `json:"external_needed"`
	Message           string      `gorm:"type:text" json:"message"`
	AcknowledgedAt    *time.Time  `json:"acknowledged_at,omitempty"`
	ResolvedAt        *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// Donors decodes the suggested-donor snapshot.
func (a *StockAlert) Donors() []DonorSuggestion {
	if a.SuggestedDonors == "" {
		return nil
	}
	var donors []DonorSuggestion
	if err := json.Unmarshal([]byte(a.SuggestedDonors), &donors); err != nil {
		return nil
	}
	return donors
}

// SetDonors encodes the suggested-donor snapshot.
func (a *StockAlert) SetDonors(donors []DonorSuggestion) {
	if len(donors) == 0 {
		a.SuggestedDonors = ""
		return
	}
	data, err := json.Marshal(donors)
	if err != nil {
		return
	}
	a.SuggestedDonors = string(data)
}
