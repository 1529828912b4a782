// internal/domain/catalog/service.go
package catalog

import (
	"fmt"

	"github.com/your-org/barflow-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service handles catalog business logic
type Service struct {
	db *gorm.DB
}

// NewService creates a new catalog service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateDrinkRequest represents drink creation data
type CreateDrinkRequest struct {
	Name     string `json:"name" binding:"required"`
	Brand    string `json:"brand"`
	VolumeML int64  `json:"volume_ml" binding:"required,gt=0"`
}

// CreateEventRequest represents event creation data
type CreateEventRequest struct {
	Name  string `json:"name" binding:"required"`
	Venue string `json:"venue"`
}

// CreateBarRequest represents bar creation data
type CreateBarRequest struct {
	EventID uint   `json:"event_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
}

// CreateDrink creates a new drink
func (s *Service) CreateDrink(req *CreateDrinkRequest) (*Drink, error) {
	drink := &Drink{
		Name:     req.Name,
		Brand:    req.Brand,
		VolumeML: req.VolumeML,
	}
	if err := s.db.Create(drink).Error; err != nil {
		return nil, fmt.Errorf("failed to create drink: %w", err)
	}
	return drink, nil
}

// GetDrink retrieves a drink by id
func (s *Service) GetDrink(drinkID uint) (*Drink, error) {
	var drink Drink
	if err := s.db.First(&drink, drinkID).Error; err != nil {
		return nil, apperr.NotFound("drink")
	}
	return &drink, nil
}

// GetDrinks retrieves all drinks
func (s *Service) GetDrinks() ([]Drink, error) {
	var drinks []Drink
	if err := s.db.Order("name").Find(&drinks).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve drinks: %w", err)
	}
	return drinks, nil
}

// CreateSupplier creates a new supplier
func (s *Service) CreateSupplier(name, email, phone string) (*Supplier, error) {
	supplier := &Supplier{Name: name, Email: email, Phone: phone}
	if err := s.db.Create(supplier).Error; err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return supplier, nil
}

// GetSuppliers retrieves all suppliers
func (s *Service) GetSuppliers() ([]Supplier, error) {
	var suppliers []Supplier
	if err := s.db.Order("name").Find(&suppliers).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve suppliers: %w", err)
	}
	return suppliers, nil
}

// CreateEvent creates a new event owned by the given user
func (s *Service) CreateEvent(req *CreateEventRequest, ownerID uint) (*Event, error) {
	event := &Event{
		OwnerID:  ownerID,
		Name:     req.Name,
		Venue:    req.Venue,
		IsActive: true,
	}
	if err := s.db.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

// GetEvent retrieves an event by id
func (s *Service) GetEvent(eventID uint) (*Event, error) {
	var event Event
	if err := s.db.Preload("Bars").First(&event, eventID).Error; err != nil {
		return nil, apperr.NotFound("event")
	}
	return &event, nil
}

// GetEventsForOwner retrieves all events owned by a user
func (s *Service) GetEventsForOwner(ownerID uint) ([]Event, error) {
	var events []Event
	if err := s.db.Where("owner_id = ?", ownerID).Order("starts_at desc").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}
	return events, nil
}

// CreateBar creates a new bar inside an event; only the event owner may do so
func (s *Service) CreateBar(req *CreateBarRequest, userID uint) (*Bar, error) {
	if err := s.RequireEventOwner(req.EventID, userID); err != nil {
		return nil, err
	}

	bar := &Bar{
		EventID:  req.EventID,
		Name:     req.Name,
		IsActive: true,
	}
	if err := s.db.Create(bar).Error; err != nil {
		return nil, fmt.Errorf("failed to create bar: %w", err)
	}
	return bar, nil
}

// GetBar retrieves a bar by id
func (s *Service) GetBar(barID uint) (*Bar, error) {
	var bar Bar
	if err := s.db.First(&bar, barID).Error; err != nil {
		return nil, apperr.NotFound("bar")
	}
	return &bar, nil
}

// GetBarsForEvent retrieves all bars of an event
func (s *Service) GetBarsForEvent(eventID uint) ([]Bar, error) {
	var bars []Bar
	if err := s.db.Where("event_id = ?", eventID).Order("name").Find(&bars).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve bars: %w", err)
	}
	return bars, nil
}

// RequireEventOwner verifies that userID owns the event
func (s *Service) RequireEventOwner(eventID, userID uint) error {
	var event Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		return apperr.NotFound("event")
	}
	if event.OwnerID != userID {
		return apperr.New(apperr.CodeNotOwner, "user %d does not own event %d", userID, eventID)
	}
	return nil
}
