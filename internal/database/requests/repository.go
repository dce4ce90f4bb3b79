// Package requests provides database operations for member book requests.
package requests

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/entities"
)

// ErrAlreadyProcessed is returned when approving or rejecting a request that
// has already left the pending state.
var ErrAlreadyProcessed = errors.New("request already processed")

// Repository handles book request database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new book requests repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create submits a request with PENDING status.
func (r *Repository) Create(request *entities.BookRequest, now time.Time) error {
	request.Status = entities.RequestStatusPending
	request.RequestDate = now
	return r.db.Create(request).Error
}

// GetByID retrieves a request.
func (r *Repository) GetByID(id uint) (*entities.BookRequest, error) {
	var request entities.BookRequest
	if err := r.db.First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// ForMember returns a member's requests, newest first.
func (r *Repository) ForMember(memberID uint) ([]entities.BookRequest, error) {
	var results []entities.BookRequest
	err := r.db.Where("member_id = ?", memberID).
		Order("request_date DESC").
		Find(&results).Error
	return results, err
}

// Pending returns all requests awaiting a librarian decision.
func (r *Repository) Pending() ([]entities.BookRequest, error) {
	var results []entities.BookRequest
	err := r.db.Where("status = ?", entities.RequestStatusPending).
		Order("request_date ASC").
		Find(&results).Error
	return results, err
}

// Process resolves a pending request to APPROVED or REJECTED with response
// notes. Requests that were already decided report ErrAlreadyProcessed.
func (r *Repository) Process(id uint, approve bool, notes string, now time.Time) (*entities.BookRequest, error) {
	var request entities.BookRequest

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, id).Error; err != nil {
			return err
		}
		if request.Status != entities.RequestStatusPending {
			return fmt.Errorf("%w: status is %s", ErrAlreadyProcessed, request.Status)
		}

		request.Status = entities.RequestStatusRejected
		if approve {
			request.Status = entities.RequestStatusApproved
		}
		request.ResponseNotes = notes
		request.ResponseDate = &now
		return tx.Save(&request).Error
	})
	if err != nil {
		return nil, err
	}

	return &request, nil
}

// MarkFulfilled closes an approved request once the title was added to the
// catalog.
func (r *Repository) MarkFulfilled(id uint) error {
	return r.db.Model(&entities.BookRequest{}).Where("id = ?", id).
		Update("status", entities.RequestStatusFulfilled).Error
}
