// Package circulation implements the loan lifecycle: checkout, return and
// the fine bookkeeping layered on top of loan records.
//
// A loan has two states, active and returned. It enters active only if the
// inventory ledger grants the requested quantity, and reaches returned
// exactly once. Loan writes and the matching copy-count mutation always share
// one transaction: either both persist or neither does.
package circulation

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/database/inventory"
	loansdb "github.com/avolkov/biblio/internal/database/loans"
	"github.com/avolkov/biblio/internal/entities"
	"github.com/avolkov/biblio/internal/fines"
)

// ErrAlreadyReturned is reported when returning a loan a second time. The
// first return already froze the fine and released the copies, so the second
// call mutates nothing.
var ErrAlreadyReturned = loansdb.ErrAlreadyReturned

// Clock supplies the current time. Injected so tests can pin "now".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Notifier receives availability events after the owning transaction has
// committed. Delivery is fire-and-forget: the loan mutation never waits on
// it and never rolls back because of it.
type Notifier interface {
	BookAvailable(bookID uint)
}

// Service coordinates loan state transitions with the inventory ledger.
type Service struct {
	db        *gorm.DB
	inventory *inventory.Repository
	loans     *loansdb.Repository
	policy    fines.Policy
	clock     Clock
	notifier  Notifier

	loanPeriodDays int
	dueSoonDays    int
}

// NewService creates a circulation service. clock may be nil to use the
// system clock; notifier may be nil to disable availability events.
func NewService(db *gorm.DB, inv *inventory.Repository, loans *loansdb.Repository, policy fines.Policy, loanPeriodDays, dueSoonDays int, clock Clock, notifier Notifier) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		db:             db,
		inventory:      inv,
		loans:          loans,
		policy:         policy,
		clock:          clock,
		notifier:       notifier,
		loanPeriodDays: loanPeriodDays,
		dueSoonDays:    dueSoonDays,
	}
}

// Create checks out quantity copies of a book for a member. The copy claim
// and the loan row are one atomic unit: when the ledger reports insufficient
// copies the error surfaces unchanged and no loan is persisted. A nil
// dueDate defaults to checkout time plus the configured loan period.
func (s *Service) Create(bookID, memberID uint, quantity int, dueDate *time.Time) (*entities.Loan, error) {
	now := s.clock.Now()

	due := now.AddDate(0, 0, s.loanPeriodDays)
	if dueDate != nil {
		due = *dueDate
	}

	loan := &entities.Loan{
		BookID:        bookID,
		MemberID:      memberID,
		Quantity:      quantity,
		CheckoutDate:  now,
		DueDate:       due,
		DailyFineRate: s.policy.DailyRate,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.inventory.ReserveTx(tx, bookID, quantity); err != nil {
			return err
		}
		return s.loans.CreateTx(tx, loan)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// Return marks a loan returned: sets the return date, freezes the fine at
// the value owed right now, and releases the copies back to the pool.
// Returning an already-returned loan reports ErrAlreadyReturned without
// touching the record.
func (s *Service) Return(loanID uint) (*entities.Loan, error) {
	now := s.clock.Now()

	var becameAvailable bool
	var bookID uint

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loans.GetByIDTx(tx, loanID)
		if err != nil {
			return err
		}
		if loan.Returned {
			return ErrAlreadyReturned
		}

		fine := s.policy.Calculate(loan.DueDate, now, loan.DailyFineRate)
		if err := s.loans.MarkReturnedTx(tx, loan.ID, now, fine); err != nil {
			return err
		}

		_, becameAvailable, err = s.inventory.ReleaseTx(tx, loan.BookID, loan.Quantity)
		if err != nil {
			return err
		}
		bookID = loan.BookID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if becameAvailable && s.notifier != nil {
		s.notifier.BookAvailable(bookID)
	}

	return s.loans.GetByID(loanID)
}

// Delete removes a loan record. An unreturned loan still owns copies, so the
// deletion releases them first as a compensating action.
func (s *Service) Delete(loanID uint) error {
	var becameAvailable bool
	var bookID uint

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loans.GetByIDTx(tx, loanID)
		if err != nil {
			return err
		}

		if !loan.Returned {
			_, becameAvailable, err = s.inventory.ReleaseTx(tx, loan.BookID, loan.Quantity)
			if err != nil {
				return err
			}
			bookID = loan.BookID
		}
		return s.loans.DeleteTx(tx, loan.ID)
	})
	if err != nil {
		return err
	}

	if becameAvailable && s.notifier != nil {
		s.notifier.BookAvailable(bookID)
	}

	return nil
}

// Get retrieves a loan. For active loans the fine is refreshed to its
// current accrual before returning, so displays never show a stale value;
// returned loans keep their frozen fine.
func (s *Service) Get(loanID uint) (*entities.Loan, error) {
	loan, err := s.loans.GetByID(loanID)
	if err != nil {
		return nil, err
	}

	if !loan.Returned {
		fine := s.policy.Calculate(loan.DueDate, s.clock.Now(), loan.DailyFineRate)
		if fine != loan.TotalFine {
			if err := s.loans.UpdateFine(loan.ID, fine); err != nil {
				return nil, fmt.Errorf("failed to refresh fine for loan %d: %w", loan.ID, err)
			}
			loan.TotalFine = fine
		}
	}

	return loan, nil
}

// Active returns unreturned loans, optionally limited to one member
// (memberID 0 means all).
func (s *Service) Active(memberID uint) ([]entities.Loan, error) {
	return s.loans.Active(memberID)
}

// Overdue returns unreturned loans whose due date passed more than
// thresholdDays ago.
func (s *Service) Overdue(thresholdDays int) ([]entities.Loan, error) {
	return s.loans.Overdue(thresholdDays, s.clock.Now())
}

// History returns all loans, optionally limited to one member.
func (s *Service) History(memberID uint) ([]entities.Loan, error) {
	return s.loans.History(memberID)
}

// RecalculateFines re-runs the fine calculation over all active loans past
// the grace period and persists any values that drifted. This is the batch
// reconciliation pass for loans that were never re-read while overdue; it
// uses the same formula as the inline path. Returns the number of loans
// whose fine changed.
func (s *Service) RecalculateFines() (int, error) {
	now := s.clock.Now()

	overdue, err := s.loans.Overdue(s.policy.GracePeriodDays, now)
	if err != nil {
		return 0, fmt.Errorf("failed to load overdue loans: %w", err)
	}

	updated := 0
	for _, loan := range overdue {
		fine := s.policy.Calculate(loan.DueDate, now, loan.DailyFineRate)
		if fine == loan.TotalFine {
			continue
		}
		if err := s.loans.UpdateFine(loan.ID, fine); err != nil {
			log.Printf("Fine recalculation: failed to update loan %d: %v", loan.ID, err)
			continue
		}
		updated++
	}

	log.Printf("Fine recalculation: %d of %d overdue loans updated", updated, len(overdue))
	return updated, nil
}

// DueSoonWindow returns the configured "due soon" window in days.
func (s *Service) DueSoonWindow() int {
	return s.dueSoonDays
}
