// internal/domain/transfer/service.go
package transfer

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/barflow-backend/internal/domain/catalog"
	"github.com/your-org/barflow-backend/internal/domain/inventory"
	"github.com/your-org/barflow-backend/internal/pkg/apperr"
	"github.com/your-org/barflow-backend/internal/pkg/notify"
	"gorm.io/gorm"
)

// Service is the transfer workflow: a thin state machine layered on the
// inventory ledger's Move operation.
type Service struct {
	db       *gorm.DB
	logger   *logrus.Logger
	ledger   *inventory.Service
	catalog  *catalog.Service
	notifier notify.Notifier
}

// NewService creates a new transfer workflow service
func NewService(db *gorm.DB, logger *logrus.Logger, ledger *inventory.Service, cat *catalog.Service, notifier notify.Notifier) *Service {
	return &Service{
		db:       db,
		logger:   logger,
		ledger:   ledger,
		catalog:  cat,
		notifier: notifier,
	}
}

// CreateRequest represents transfer creation data. Quantity is ml.
type CreateRequest struct {
	ReceiverBarID uint   `json:"receiver_bar_id" binding:"required"`
	DonorBarID    uint   `json:"donor_bar_id" binding:"required"`
	DrinkID       uint   `json:"drink_id" binding:"required"`
	Quantity      int64  `json:"quantity" binding:"required,gt=0"`
	AlertID       *uint  `json:"alert_id"`
	Notes         string `json:"notes"`
}

// Create validates and persists a transfer in the requested state. Both
// bars must belong to eventID.
func (s *Service) Create(eventID uint, req *CreateRequest, userID uint) (*StockTransfer, error) {
	if req.ReceiverBarID == req.DonorBarID {
		return nil, apperr.New(apperr.CodeInvalidInput, "receiver and donor bar must differ")
	}

	receiver, err := s.catalog.GetBar(req.ReceiverBarID)
	if err != nil {
		return nil, err
	}
	donor, err := s.catalog.GetBar(req.DonorBarID)
	if err != nil {
		return nil, err
	}
	if receiver.EventID != eventID || donor.EventID != eventID {
		return nil, apperr.New(apperr.CodeInvalidInput, "both bars must belong to event %d", eventID)
	}
	if err := s.catalog.RequireEventOwner(receiver.EventID, userID); err != nil {
		return nil, err
	}

	if err := s.checkDonorStock(req.DonorBarID, req.DrinkID, req.Quantity); err != nil {
		return nil, err
	}

	transfer := &StockTransfer{
		EventID:       receiver.EventID,
		ReceiverBarID: req.ReceiverBarID,
		DonorBarID:    req.DonorBarID,
		DrinkID:       req.DrinkID,
		Quantity:      req.Quantity,
		Status:        StatusRequested,
		AlertID:       req.AlertID,
		Notes:         req.Notes,
		CreatedBy:     userID,
	}
	if err := s.db.Create(transfer).Error; err != nil {
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}

	s.publishStatus(transfer)
	return transfer, nil
}

// Approve moves a requested transfer to approved, re-checking that the
// donor still has the quantity live.
func (s *Service) Approve(transferID, userID uint) (*StockTransfer, error) {
	return s.transition(transferID, userID, StatusApproved, true, nil)
}

// Reject declines a requested transfer
func (s *Service) Reject(transferID, userID uint) (*StockTransfer, error) {
	return s.transition(transferID, userID, StatusRejected, false, nil)
}

// Cancel withdraws a requested or approved transfer
func (s *Service) Cancel(transferID, userID uint) (*StockTransfer, error) {
	return s.transition(transferID, userID, StatusCancelled, false, nil)
}

// Complete executes an approved transfer: donor stock is re-checked one
// last time and the ledger performs the actual move.
func (s *Service) Complete(transferID, userID uint) (*StockTransfer, error) {
	return s.transition(transferID, userID, StatusCompleted, true, func(t *StockTransfer) error {
		return s.ledger.Move(&inventory.MoveRequest{
			FromBarID: t.DonorBarID,
			ToBarID:   t.ReceiverBarID,
			DrinkID:   t.DrinkID,
			Quantity:  t.Quantity,
		}, userID, &t.ID)
	})
}

// GetTransfers retrieves transfers of an event, optionally by status
func (s *Service) GetTransfers(eventID uint, status *Status) ([]StockTransfer, error) {
	query := s.db.Where("event_id = ?", eventID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var transfers []StockTransfer
	if err := query.Order("created_at desc").Find(&transfers).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve transfers: %w", err)
	}
	return transfers, nil
}

// GetTransfer retrieves one transfer
func (s *Service) GetTransfer(transferID uint) (*StockTransfer, error) {
	var transfer StockTransfer
	if err := s.db.First(&transfer, transferID).Error; err != nil {
		return nil, apperr.NotFound("transfer")
	}
	return &transfer, nil
}

func (s *Service) transition(transferID, userID uint, to Status, checkStock bool, execute func(*StockTransfer) error) (*StockTransfer, error) {
	var transfer StockTransfer
	if err := s.db.First(&transfer, transferID).Error; err != nil {
		return nil, apperr.NotFound("transfer")
	}
	if err := s.catalog.RequireEventOwner(transfer.EventID, userID); err != nil {
		return nil, err
	}

	allowed := false
	for _, from := range validTransitions[to] {
		if transfer.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperr.New(apperr.CodeInvalidTransition,
			"transfer %d cannot move from %s to %s", transferID, transfer.Status, to)
	}

	if checkStock {
		if err := s.checkDonorStock(transfer.DonorBarID, transfer.DrinkID, transfer.Quantity); err != nil {
			return nil, err
		}
	}

	// Claim the transition with a conditional write. Concurrent calls on
	// the same transfer serialize on the status column: only one update
	// can match the prior status, so a transfer is completed (and its
	// stock moved) at most once.
	from := transfer.Status
	updates := map[string]interface{}{"status": to}
	if to == StatusCompleted {
		now := time.Now()
		transfer.CompletedAt = &now
		updates["completed_at"] = transfer.CompletedAt
	}
	result := s.db.Model(&StockTransfer{}).
		Where("id = ? AND status = ?", transferID, from).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update transfer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.CodeInvalidTransition,
			"transfer %d left state %s concurrently", transferID, from)
	}
	transfer.Status = to

	if execute != nil {
		if err := execute(&transfer); err != nil {
			// Release the claim so the transfer stays actionable.
			s.db.Model(&StockTransfer{}).
				Where("id = ? AND status = ?", transferID, to).
				Updates(map[string]interface{}{"status": from, "completed_at": nil})
			return nil, err
		}
	}

	if to == StatusCompleted {
		s.logger.WithFields(logrus.Fields{
			"transfer_id": transfer.ID,
			"donor_bar":   transfer.DonorBarID,
			"receiver":    transfer.ReceiverBarID,
			"quantity":    transfer.Quantity,
		}).Info("stock transfer completed")
	}

	s.publishStatus(&transfer)
	return &transfer, nil
}

// checkDonorStock verifies a single donor lot covers the quantity. Move
// draws from one stock row, so checking the pooled sum would let a
// transfer through that the ledger later refuses.
func (s *Service) checkDonorStock(barID, drinkID uint, quantity int64) error {
	largest, err := s.ledger.LargestLot(barID, drinkID)
	if err != nil {
		return err
	}
	if largest < quantity {
		return apperr.New(apperr.CodeInsufficientStock,
			"no single lot at donor bar %d covers %d ml of drink %d", barID, quantity, drinkID)
	}
	return nil
}

func (s *Service) publishStatus(t *StockTransfer) {
	s.notifier.Publish(notify.Event{
		Kind:     "transfer_status",
		EventID:  t.EventID,
		BarID:    t.ReceiverBarID,
		DrinkID:  t.DrinkID,
		Status:   string(t.Status),
		Quantity: t.Quantity,
		RefID:    t.ID,
	})
}
