// internal/domain/transfer/entity.go
package transfer

import "time"

// Status represents the transfer lifecycle state
type Status string

const (
	StatusRequested Status = "requested"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// validTransitions maps each target status to the states it may leave.
var validTransitions = map[Status][]Status{
	StatusApproved:  {StatusRequested},
	StatusCompleted: {StatusApproved},
	StatusRejected:  {StatusRequested},
	StatusCancelled: {StatusRequested, StatusApproved},
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// StockTransfer is an explicit bar-to-bar stock move request. Quantity
// is ml and is re-validated against live donor stock at approval and at
// completion, since stock may have been consumed in between.
type StockTransfer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       uint      `gorm:"not null;index" json:"event_id"`
	ReceiverBarID uint      `gorm:"not null;index" json:"receiver_bar_id"`
	DonorBarID    uint      `gorm:"not null;index" json:"donor_bar_id"`
	DrinkID       uint      `gorm:"not null" json:"drink_id"`
	Quantity      int64     `gorm:"not null" json:"quantity"`
	Status        Status    `gorm:"not null;default:'requested';index" json:"status"`
	AlertID       *uint     `gorm:"index" json:"alert_id,omitempty"`
	Notes         string    `gorm:"type:text" json:"notes"`
	CreatedBy     uint      `json:"created_by"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
