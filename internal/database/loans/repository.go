// Package loans provides database operations for loan records.
//
// State transitions (create, return, delete) run through the lifecycle
// service in internal/circulation, which combines these operations with the
// inventory ledger inside one transaction.
package loans

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/entities"
)

// ErrAlreadyReturned is reported when marking a returned loan returned again.
var ErrAlreadyReturned = errors.New("loan already returned")

// Repository handles loan database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new loans repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts a loan inside an existing transaction.
func (r *Repository) CreateTx(tx *gorm.DB, loan *entities.Loan) error {
	return tx.Create(loan).Error
}

// GetByID retrieves a loan with its book and member.
func (r *Repository) GetByID(id uint) (*entities.Loan, error) {
	var loan entities.Loan
	err := r.db.Preload("Book").Preload("Member").First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// GetByIDTx retrieves a loan inside an existing transaction.
func (r *Repository) GetByIDTx(tx *gorm.DB, id uint) (*entities.Loan, error) {
	var loan entities.Loan
	if err := tx.First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// Active returns unreturned loans, newest checkout first. memberID 0 means
// all members.
func (r *Repository) Active(memberID uint) ([]entities.Loan, error) {
	query := r.db.Preload("Book").Preload("Member").Where("returned = ?", false)
	if memberID != 0 {
		query = query.Where("member_id = ?", memberID)
	}

	var results []entities.Loan
	err := query.Order("checkout_date DESC").Find(&results).Error
	return results, err
}

// Overdue returns unreturned loans whose due date passed more than
// thresholdDays ago, most overdue first.
func (r *Repository) Overdue(thresholdDays int, now time.Time) ([]entities.Loan, error) {
	cutoff := now.AddDate(0, 0, -thresholdDays)

	var results []entities.Loan
	err := r.db.Preload("Book").Preload("Member").
		Where("returned = ? AND due_date < ?", false, cutoff).
		Order("due_date ASC").
		Find(&results).Error
	return results, err
}

// DueSoon returns unreturned loans due within the given window from now,
// excluding loans that are already overdue.
func (r *Repository) DueSoon(windowDays int, now time.Time) ([]entities.Loan, error) {
	limit := now.AddDate(0, 0, windowDays)

	var results []entities.Loan
	err := r.db.Preload("Book").Preload("Member").
		Where("returned = ? AND due_date > ? AND due_date <= ?", false, now, limit).
		Order("due_date ASC").
		Find(&results).Error
	return results, err
}

// DueSoonPending returns due-soon loans whose reminder has not gone out yet.
func (r *Repository) DueSoonPending(windowDays int, now time.Time) ([]entities.Loan, error) {
	limit := now.AddDate(0, 0, windowDays)

	var results []entities.Loan
	err := r.db.Preload("Book").Preload("Member").
		Where("returned = ? AND reminded = ? AND due_date > ? AND due_date <= ?", false, false, now, limit).
		Order("due_date ASC").
		Find(&results).Error
	return results, err
}

// MarkReminded records that the due-soon reminder for a loan was delivered.
func (r *Repository) MarkReminded(id uint) error {
	return r.db.Model(&entities.Loan{}).Where("id = ?", id).
		Update("reminded", true).Error
}

// History returns all loans, newest checkout first. memberID 0 means all
// members.
func (r *Repository) History(memberID uint) ([]entities.Loan, error) {
	query := r.db.Preload("Book").Preload("Member")
	if memberID != 0 {
		query = query.Where("member_id = ?", memberID)
	}

	var results []entities.Loan
	err := query.Order("checkout_date DESC").Find(&results).Error
	return results, err
}

// UpdateFine persists a recomputed fine for an active loan.
func (r *Repository) UpdateFine(id uint, fine float64) error {
	return r.db.Model(&entities.Loan{}).Where("id = ?", id).
		Update("total_fine", fine).Error
}

// MarkReturnedTx finalizes a loan inside an existing transaction: sets the
// return date once and freezes the fine. The update is conditional on the
// loan still being active, so a concurrent return that committed first makes
// this one report ErrAlreadyReturned instead of overwriting the frozen fine.
func (r *Repository) MarkReturnedTx(tx *gorm.DB, id uint, returnDate time.Time, fine float64) error {
	result := tx.Model(&entities.Loan{}).
		Where("id = ? AND returned = ?", id, false).
		Updates(map[string]any{
			"returned":    true,
			"return_date": returnDate,
			"total_fine":  fine,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyReturned
	}
	return nil
}

// DeleteTx removes a loan record inside an existing transaction.
func (r *Repository) DeleteTx(tx *gorm.DB, id uint) error {
	return tx.Delete(&entities.Loan{}, id).Error
}
