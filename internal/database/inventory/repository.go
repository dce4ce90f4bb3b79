// Package inventory owns the copy counts on books.
//
// AvailableCopies is only ever mutated here, inside a transaction that
// re-reads the book row under a write lock, so concurrent checkouts cannot
// both observe stale availability and oversubscribe a book.
package inventory

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avolkov/biblio/internal/entities"
)

// ErrInsufficientCopies is returned when a reservation asks for more copies
// than are currently available. No mutation occurs.
var ErrInsufficientCopies = errors.New("not enough copies available")

// ErrBookHasActiveLoans is returned when deleting a book that unreturned
// loans still reference.
var ErrBookHasActiveLoans = errors.New("book has active loans")

// Repository handles book catalog and copy-count database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new inventory repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBook adds a book to the catalog. Available copies start equal to
// total copies.
func (r *Repository) CreateBook(book *entities.Book) error {
	if book.TotalCopies < 0 {
		return fmt.Errorf("total copies must not be negative, got %d", book.TotalCopies)
	}
	book.AvailableCopies = book.TotalCopies
	return r.db.Create(book).Error
}

// Reserve atomically claims qty copies of a book. It fails with
// ErrInsufficientCopies, without mutating anything, when fewer than qty
// copies are available.
func (r *Repository) Reserve(bookID uint, qty int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return r.ReserveTx(tx, bookID, qty)
	})
}

// ReserveTx is Reserve running inside an existing transaction, so callers
// can make the claim and their own writes a single atomic unit.
func (r *Repository) ReserveTx(tx *gorm.DB, bookID uint, qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}

	var book entities.Book
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, bookID).Error; err != nil {
		return err
	}

	if book.AvailableCopies < qty {
		return fmt.Errorf("%w: requested %d, have %d", ErrInsufficientCopies, qty, book.AvailableCopies)
	}

	return tx.Model(&entities.Book{}).Where("id = ?", bookID).
		Update("available_copies", book.AvailableCopies-qty).Error
}

// Release atomically returns qty copies of a book to the pool. The count is
// clamped so available never exceeds total; any excess is dropped and
// logged, restoring the invariant rather than failing the return.
//
// becameAvailable reports whether availability moved from zero to positive,
// which is the trigger for reservation notifications.
func (r *Repository) Release(bookID uint, qty int) (released int, becameAvailable bool, err error) {
	err = r.db.Transaction(func(tx *gorm.DB) error {
		released, becameAvailable, err = r.ReleaseTx(tx, bookID, qty)
		return err
	})
	return released, becameAvailable, err
}

// ReleaseTx is Release running inside an existing transaction.
func (r *Repository) ReleaseTx(tx *gorm.DB, bookID uint, qty int) (released int, becameAvailable bool, err error) {
	if qty < 1 {
		return 0, false, fmt.Errorf("quantity must be positive, got %d", qty)
	}

	var book entities.Book
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, bookID).Error; err != nil {
		return 0, false, err
	}

	released = qty
	if book.AvailableCopies+qty > book.TotalCopies {
		released = book.TotalCopies - book.AvailableCopies
		log.Printf("Release of %d copies for book %d exceeds total %d (available %d), clamping to %d",
			qty, bookID, book.TotalCopies, book.AvailableCopies, released)
	}
	if released == 0 {
		return 0, false, nil
	}

	err = tx.Model(&entities.Book{}).Where("id = ?", bookID).
		Update("available_copies", book.AvailableCopies+released).Error
	if err != nil {
		return 0, false, err
	}

	return released, book.AvailableCopies == 0, nil
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetAllBooks retrieves the full catalog.
func (r *Repository) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("title ASC").Find(&books).Error
	return books, err
}

// SearchBooks filters the catalog by title, author, publisher (partial,
// case-insensitive) and genre. Empty arguments are ignored.
func (r *Repository) SearchBooks(title, author, publisher string, genre entities.Genre) ([]entities.Book, error) {
	query := r.db.Model(&entities.Book{})
	if title != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+title+"%")
	}
	if author != "" {
		query = query.Where("LOWER(author) LIKE LOWER(?)", "%"+author+"%")
	}
	if publisher != "" {
		query = query.Where("LOWER(publisher) LIKE LOWER(?)", "%"+publisher+"%")
	}
	if genre != "" {
		query = query.Where("genre = ?", genre)
	}

	var books []entities.Book
	err := query.Order("title ASC").Find(&books).Error
	return books, err
}

// UpdateBook updates catalog metadata and the total copy count. When the
// total shrinks below the current availability, availability is clamped back
// into [0, total] under the row lock.
func (r *Repository) UpdateBook(book *entities.Book) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var current entities.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, book.ID).Error; err != nil {
			return err
		}

		book.AvailableCopies = current.AvailableCopies
		if book.AvailableCopies > book.TotalCopies {
			book.AvailableCopies = book.TotalCopies
		}
		if book.AvailableCopies < 0 {
			book.AvailableCopies = 0
		}
		return tx.Save(book).Error
	})
}

// DeleteBook soft-deletes a book. Books referenced by unreturned loans
// cannot be removed, the copies would be lost from the pool.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var active int64
		err := tx.Model(&entities.Loan{}).
			Where("book_id = ? AND returned = ?", id, false).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: %d active", ErrBookHasActiveLoans, active)
		}
		return tx.Delete(&entities.Book{}, id).Error
	})
}
