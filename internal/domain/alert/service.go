// internal/domain/alert/service.go
package alert

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/barflow-backend/internal/config"
	"github.com/your-org/barflow-backend/internal/domain/catalog"
	"github.com/your-org/barflow-backend/internal/domain/inventory"
	"github.com/your-org/barflow-backend/internal/pkg/apperr"
	"github.com/your-org/barflow-backend/internal/pkg/notify"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the alert engine: it evaluates stock against the threshold
// registry, deduplicates alerts and computes donor suggestions.
type Service struct {
	db       *gorm.DB
	config   *config.Config
	logger   *logrus.Logger
	catalog  *catalog.Service
	notifier notify.Notifier
}

// NewService creates a new alert engine
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, cat *catalog.Service, notifier notify.Notifier) *Service {
	return &Service{
		db:       db,
		config:   cfg,
		logger:   logger,
		catalog:  cat,
		notifier: notifier,
	}
}

// poolKey addresses one pool of one drink at one bar.
type poolKey struct {
	barID     uint
	drinkID   uint
	wholeUnit bool
}

// stockSnapshot is one sweep's in-memory picture of an event's stock.
// It is loaded with a fixed number of queries regardless of how many
// bars and drinks the sweep covers.
type stockSnapshot struct {
	bars       []catalog.Bar
	drinks     map[uint]catalog.Drink
	quantities map[poolKey]int64
	consumed   map[poolKey]int64
	window     time.Duration
}

// donorCandidates collects every other bar's unit count for the pool.
func (snap *stockSnapshot) donorCandidates(threshold *StockThreshold, excludeBarID uint) []DonorCandidate {
	drink, ok := snap.drinks[threshold.DrinkID]
	if !ok {
		return nil
	}
	var candidates []DonorCandidate
	for _, bar := range snap.bars {
		if bar.ID == excludeBarID {
			continue
		}
		rawML := snap.quantities[poolKey{bar.ID, threshold.DrinkID, threshold.SellAsWholeUnit}]
		candidates = append(candidates, DonorCandidate{BarID: bar.ID, Units: drink.UnitCount(rawML)})
	}
	return candidates
}

// loadSnapshot reads the event's bars, the given drinks, and the grouped
// stock and trailing-window consumption totals for them: four queries,
// then everything else is evaluated in memory.
func (s *Service) loadSnapshot(eventID uint, drinkIDs []uint) (*stockSnapshot, error) {
	bars, err := s.catalog.GetBarsForEvent(eventID)
	if err != nil {
		return nil, err
	}

	snap := &stockSnapshot{
		bars:       bars,
		drinks:     make(map[uint]catalog.Drink),
		quantities: make(map[poolKey]int64),
		consumed:   make(map[poolKey]int64),
		window:     s.config.Alerting.ConsumptionWindow,
	}
	if len(bars) == 0 || len(drinkIDs) == 0 {
		return snap, nil
	}

	var drinks []catalog.Drink
	if err := s.db.Where("id IN ?", drinkIDs).Find(&drinks).Error; err != nil {
		return nil, fmt.Errorf("failed to load drinks: %w", err)
	}
	for _, drink := range drinks {
		snap.drinks[drink.ID] = drink
	}

	barIDs := make([]uint, 0, len(bars))
	for _, bar := range bars {
		barIDs = append(barIDs, bar.ID)
	}

	type poolTotal struct {
		BarID           uint
		DrinkID         uint
		SellAsWholeUnit bool
		Total           int64
	}

	var stocks []poolTotal
	err = s.db.Model(&inventory.BarStock{}).
		Select("bar_id, drink_id, sell_as_whole_unit, SUM(quantity) AS total").
		Where("bar_id IN ? AND drink_id IN ?", barIDs, drinkIDs).
		Group("bar_id, drink_id, sell_as_whole_unit").
		Scan(&stocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load stock totals: %w", err)
	}
	for _, row := range stocks {
		snap.quantities[poolKey{row.BarID, row.DrinkID, row.SellAsWholeUnit}] = row.Total
	}

	since := time.Now().Add(-snap.window)
	var sales []poolTotal
	err = s.db.Model(&inventory.InventoryMovement{}).
		Select("from_id AS bar_id, drink_id, sell_as_whole_unit, SUM(quantity) AS total").
		Where("from_type = ? AND from_id IN ? AND drink_id IN ? AND movement_type = ? AND created_at >= ?",
			inventory.LocationBar, barIDs, drinkIDs, inventory.MovementTypeSaleDepletion, since).
		Group("from_id, drink_id, sell_as_whole_unit").
		Scan(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load consumption totals: %w", err)
	}
	for _, row := range sales {
		snap.consumed[poolKey{row.BarID, row.DrinkID, row.SellAsWholeUnit}] = row.Total
	}

	return snap, nil
}

// OnSale evaluates the affected drinks of one bar after a sale. Errors
// are returned for the caller to log; they must never reach the sale.
func (s *Service) OnSale(eventID, barID uint, drinkIDs []uint) error {
	if len(drinkIDs) == 0 {
		return nil
	}

	var thresholds []StockThreshold
	if err := s.db.Where("event_id = ? AND drink_id IN ?", eventID, drinkIDs).Find(&thresholds).Error; err != nil {
		return fmt.Errorf("failed to load thresholds: %w", err)
	}
	if len(thresholds) == 0 {
		return nil
	}

	snap, err := s.loadSnapshot(eventID, drinkIDs)
	if err != nil {
		return err
	}

	for i := range thresholds {
		if _, err := s.evaluatePool(&thresholds[i], barID, snap); err != nil {
			return err
		}
	}
	return nil
}

// ForceCheck sweeps every (threshold, bar) pair of an event and returns
// the complete current picture: alerts created by this sweep plus any
// already-active alerts for still-breached pairs. All pairs are
// evaluated against one batched snapshot; the sweep is best-effort with
// respect to concurrent sales and holds no lock across the evaluation.
func (s *Service) ForceCheck(eventID, userID uint) ([]StockAlert, error) {
	if err := s.catalog.RequireEventOwner(eventID, userID); err != nil {
		return nil, err
	}

	var thresholds []StockThreshold
	if err := s.db.Where("event_id = ?", eventID).Find(&thresholds).Error; err != nil {
		return nil, fmt.Errorf("failed to load thresholds: %w", err)
	}

	seen := make(map[uint]struct{}, len(thresholds))
	drinkIDs := make([]uint, 0, len(thresholds))
	for _, threshold := range thresholds {
		if _, ok := seen[threshold.DrinkID]; ok {
			continue
		}
		seen[threshold.DrinkID] = struct{}{}
		drinkIDs = append(drinkIDs, threshold.DrinkID)
	}

	snap, err := s.loadSnapshot(eventID, drinkIDs)
	if err != nil {
		return nil, err
	}

	var alerts []StockAlert
	for i := range thresholds {
		for _, bar := range snap.bars {
			result, err := s.evaluatePool(&thresholds[i], bar.ID, snap)
			if err != nil {
				return nil, err
			}
			alerts = append(alerts, result...)
		}
	}
	return alerts, nil
}

// evaluatePool checks one (threshold, bar) pair against the snapshot
// and returns the alerts currently in force for it (created or
// pre-existing).
func (s *Service) evaluatePool(threshold *StockThreshold, barID uint, snap *stockSnapshot) ([]StockAlert, error) {
	drink, ok := snap.drinks[threshold.DrinkID]
	if !ok {
		return nil, apperr.NotFound("drink")
	}

	rawML := snap.quantities[poolKey{barID, threshold.DrinkID, threshold.SellAsWholeUnit}]
	units := drink.UnitCount(rawML)

	var alerts []StockAlert

	if units <= threshold.LowerThreshold {
		alert, err := s.raiseAlert(threshold, barID, AlertTypeLowStock, units, nil, snap)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	if threshold.DepletionHorizonMin != nil {
		consumedML := snap.consumed[poolKey{barID, threshold.DrinkID, threshold.SellAsWholeUnit}]
		minutes := snap.window.Minutes()
		if consumedML > 0 && minutes > 0 && drink.VolumeML > 0 {
			mlPerMin := float64(consumedML) / minutes
			unitsPerMin := mlPerMin / float64(drink.VolumeML)
			projected := float64(units) / unitsPerMin
			if projected < float64(*threshold.DepletionHorizonMin) {
				alert, err := s.raiseAlert(threshold, barID, AlertTypeProjectedDepletion, units, &projected, snap)
				if err != nil {
					return nil, err
				}
				if alert != nil {
					alerts = append(alerts, *alert)
				}
			}
		}
	}

	return alerts, nil
}

// raiseAlert creates an alert unless a non-resolved one already covers
// the same (bar, drink, pool, type). The dedup check is backed by a
// partial unique index, so a concurrent duplicate insert is dropped
// instead of violating the invariant.
func (s *Service) raiseAlert(threshold *StockThreshold, barID uint, alertType AlertType, units int64, projectedMinutes *float64, snap *stockSnapshot) (*StockAlert, error) {
	var existing StockAlert
	err := s.db.Where("bar_id = ? AND drink_id = ? AND sell_as_whole_unit = ? AND alert_type = ? AND status <> ?",
		barID, threshold.DrinkID, threshold.SellAsWholeUnit, alertType, AlertStatusResolved).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to check existing alerts: %w", err)
	}

	needed := threshold.LowerThreshold - units
	if needed < 1 {
		needed = 1
	}
	donors, externalNeeded := SuggestDonors(snap.donorCandidates(threshold, barID), threshold.DonationThreshold, needed)

	alert := StockAlert{
		EventID:           threshold.EventID,
		BarID:             barID,
		DrinkID:           threshold.DrinkID,
		SellAsWholeUnit:   threshold.SellAsWholeUnit,
		AlertType:         alertType,
		Status:            AlertStatusActive,
		CurrentUnits:      units,
		LowerThreshold:    threshold.LowerThreshold,
		DonationThreshold: threshold.DonationThreshold,
		ProjectedMinutes:  projectedMinutes,
		ExternalNeeded:    externalNeeded,
	}
	alert.SetDonors(donors)
	if alertType == AlertTypeProjectedDepletion && projectedMinutes != nil {
		alert.Message = fmt.Sprintf("Bar %d projects depletion of drink %d in %.0f minutes (%d units left)",
			barID, threshold.DrinkID, *projectedMinutes, units)
	} else {
		alert.Message = fmt.Sprintf("Bar %d is low on drink %d: %d units at or below threshold %d",
			barID, threshold.DrinkID, units, threshold.LowerThreshold)
	}

	// Insert-or-ignore against the partial unique index covers the
	// check-then-act race between concurrent evaluations.
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&alert)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	s.notifier.Publish(notify.Event{
		Kind:    "stock_alert",
		EventID: threshold.EventID,
		BarID:   barID,
		DrinkID: threshold.DrinkID,
		Status:  string(alert.Status),
		RefID:   alert.ID,
	})

	return &alert, nil
}

// ALERT LIFECYCLE

// GetAlerts retrieves alerts of an event, optionally filtered by status
func (s *Service) GetAlerts(eventID uint, status *AlertStatus) ([]StockAlert, error) {
	query := s.db.Where("event_id = ?", eventID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var alerts []StockAlert
	if err := query.Order("created_at desc").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve alerts: %w", err)
	}
	return alerts, nil
}

// Acknowledge moves an active alert to acknowledged
func (s *Service) Acknowledge(alertID, userID uint) (*StockAlert, error) {
	return s.transition(alertID, userID, AlertStatusAcknowledged, []AlertStatus{AlertStatusActive})
}

// Resolve closes an alert from active or acknowledged
func (s *Service) Resolve(alertID, userID uint) (*StockAlert, error) {
	return s.transition(alertID, userID, AlertStatusResolved, []AlertStatus{AlertStatusActive, AlertStatusAcknowledged})
}

func (s *Service) transition(alertID, userID uint, to AlertStatus, from []AlertStatus) (*StockAlert, error) {
	var alert StockAlert
	if err := s.db.First(&alert, alertID).Error; err != nil {
		return nil, apperr.NotFound("alert")
	}
	if err := s.catalog.RequireEventOwner(alert.EventID, userID); err != nil {
		return nil, err
	}

	allowed := false
	for _, st := range from {
		if alert.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperr.New(apperr.CodeInvalidTransition,
			"alert %d cannot move from %s to %s", alertID, alert.Status, to)
	}

	now := time.Now()
	updates := map[string]interface{}{"status": to}
	switch to {
	case AlertStatusAcknowledged:
		updates["acknowledged_at"] = &now
	case AlertStatusResolved:
		updates["resolved_at"] = &now
	}

	// Conditional write: a concurrent transition on the same alert makes
	// the claim miss instead of silently overwriting it.
	result := s.db.Model(&StockAlert{}).
		Where("id = ? AND status = ?", alertID, alert.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.CodeInvalidTransition,
			"alert %d left state %s concurrently", alertID, alert.Status)
	}

	if err := s.db.First(&alert, alertID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload alert: %w", err)
	}
	return &alert, nil
}
