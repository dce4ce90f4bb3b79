// Package reservations provides database operations for book reservations.
package reservations

import (
	"time"

	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/entities"
)

// Repository handles reservation database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reservations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create records a member's reservation for a book.
func (r *Repository) Create(reservation *entities.Reservation) error {
	return r.db.Create(reservation).Error
}

// GetByID retrieves a reservation with its book.
func (r *Repository) GetByID(id uint) (*entities.Reservation, error) {
	var reservation entities.Reservation
	if err := r.db.Preload("Book").First(&reservation, id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ForMember returns a member's reservations, newest first.
func (r *Repository) ForMember(memberID uint) ([]entities.Reservation, error) {
	var results []entities.Reservation
	err := r.db.Preload("Book").
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&results).Error
	return results, err
}

// Pending returns unnotified, unfulfilled reservations for a book that have
// not expired as of now. These are the recipients when the book regains
// availability.
func (r *Repository) Pending(bookID uint, now time.Time) ([]entities.Reservation, error) {
	var results []entities.Reservation
	err := r.db.Preload("Member").Preload("Book").
		Where("book_id = ? AND notified = ? AND fulfilled = ? AND expiry_date > ?",
			bookID, false, false, now).
		Order("created_at ASC").
		Find(&results).Error
	return results, err
}

// PendingBookIDs returns the distinct book IDs that have pending
// reservations, for the batch notification scan.
func (r *Repository) PendingBookIDs(now time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&entities.Reservation{}).
		Where("notified = ? AND fulfilled = ? AND expiry_date > ?", false, false, now).
		Distinct().
		Pluck("book_id", &ids).Error
	return ids, err
}

// MarkNotified flips the notified flag after a delivery attempt succeeded.
// It is never set ahead of delivery, so failed sends stay eligible for the
// next scan.
func (r *Repository) MarkNotified(id uint) error {
	return r.db.Model(&entities.Reservation{}).Where("id = ?", id).
		Update("notified", true).Error
}

// MarkFulfilled closes a reservation once the member claimed the book.
func (r *Repository) MarkFulfilled(id uint) error {
	return r.db.Model(&entities.Reservation{}).Where("id = ?", id).
		Update("fulfilled", true).Error
}

// Delete cancels a reservation.
func (r *Repository) Delete(id uint) error {
	return r.db.Delete(&entities.Reservation{}, id).Error
}
