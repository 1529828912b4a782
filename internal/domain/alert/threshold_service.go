// internal/domain/alert/threshold_service.go
package alert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/barflow-backend/internal/domain/catalog"
	"github.com/your-org/barflow-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// ThresholdRequest represents threshold create/update data
type ThresholdRequest struct {
	DrinkID             uint   `json:"drink_id" binding:"required"`
	SellAsWholeUnit     bool   `json:"sell_as_whole_unit"`
	LowerThreshold      int64  `json:"lower_threshold" binding:"gte=0"`
	DonationThreshold   int64  `json:"donation_threshold" binding:"gte=0"`
	DepletionHorizonMin *int64 `json:"depletion_horizon_min"`
}

func validateThreshold(req *ThresholdRequest) error {
	if req.DonationThreshold < req.LowerThreshold {
		return apperr.New(apperr.CodeInvalidThreshold,
			"donation threshold %d must not be below lower threshold %d",
			req.DonationThreshold, req.LowerThreshold)
	}
	if req.DepletionHorizonMin != nil && *req.DepletionHorizonMin <= 0 {
		return apperr.New(apperr.CodeInvalidThreshold, "depletion horizon must be positive")
	}
	return nil
}

// CreateThreshold configures a threshold for one (event, drink, pool);
// only the event owner may do so. Each pool needs its own configuration.
func (s *Service) CreateThreshold(eventID uint, req *ThresholdRequest, userID uint) (*StockThreshold, error) {
	if err := s.catalog.RequireEventOwner(eventID, userID); err != nil {
		return nil, err
	}
	if err := validateThreshold(req); err != nil {
		return nil, err
	}

	var drink catalog.Drink
	if err := s.db.First(&drink, req.DrinkID).Error; err != nil {
		return nil, apperr.NotFound("drink")
	}

	threshold := &StockThreshold{
		EventID:             eventID,
		DrinkID:             req.DrinkID,
		SellAsWholeUnit:     req.SellAsWholeUnit,
		LowerThreshold:      req.LowerThreshold,
		DonationThreshold:   req.DonationThreshold,
		DepletionHorizonMin: req.DepletionHorizonMin,
	}
	if err := s.db.Create(threshold).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.New(apperr.CodeDuplicateThreshold,
				"threshold already exists for drink %d (whole_unit=%t)", req.DrinkID, req.SellAsWholeUnit)
		}
		return nil, fmt.Errorf("failed to create threshold: %w", err)
	}
	return threshold, nil
}

// UpdateThreshold changes the limits of an existing threshold
func (s *Service) UpdateThreshold(thresholdID uint, req *ThresholdRequest, userID uint) (*StockThreshold, error) {
	var threshold StockThreshold
	if err := s.db.First(&threshold, thresholdID).Error; err != nil {
		return nil, apperr.NotFound("threshold")
	}
	if err := s.catalog.RequireEventOwner(threshold.EventID, userID); err != nil {
		return nil, err
	}
	if err := validateThreshold(req); err != nil {
		return nil, err
	}

	threshold.LowerThreshold = req.LowerThreshold
	threshold.DonationThreshold = req.DonationThreshold
	threshold.DepletionHorizonMin = req.DepletionHorizonMin
	if err := s.db.Save(&threshold).Error; err != nil {
		return nil, fmt.Errorf("failed to update threshold: %w", err)
	}
	return &threshold, nil
}

// DeleteThreshold removes a threshold configuration
func (s *Service) DeleteThreshold(thresholdID, userID uint) error {
	var threshold StockThreshold
	if err := s.db.First(&threshold, thresholdID).Error; err != nil {
		return apperr.NotFound("threshold")
	}
	if err := s.catalog.RequireEventOwner(threshold.EventID, userID); err != nil {
		return err
	}
	if err := s.db.Delete(&threshold).Error; err != nil {
		return fmt.Errorf("failed to delete threshold: %w", err)
	}
	return nil
}

// GetThresholds retrieves all thresholds of an event
func (s *Service) GetThresholds(eventID uint) ([]StockThreshold, error) {
	var thresholds []StockThreshold
	if err := s.db.Where("event_id = ?", eventID).Order("drink_id, sell_as_whole_unit").Find(&thresholds).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve thresholds: %w", err)
	}
	return thresholds, nil
}

// isUniqueViolation detects a uniqueness-constraint collision across the
// drivers in use (postgres 23505, sqlite "UNIQUE constraint failed").
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
