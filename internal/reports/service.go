// Package reports builds circulation reports for librarians: which books
// are out, which loans are overdue and what the accrued fines look like.
package reports

import (
	"fmt"
	"time"

	"github.com/avolkov/biblio/internal/circulation"
	loansdb "github.com/avolkov/biblio/internal/database/loans"
	"github.com/avolkov/biblio/internal/entities"
	"github.com/avolkov/biblio/internal/fines"
)

// IssuedBookRow is one line in the issued-books report.
type IssuedBookRow struct {
	LoanID       uint      `json:"loan_id"`
	BookTitle    string    `json:"book_title"`
	BookAuthor   string    `json:"book_author"`
	MemberName   string    `json:"member_name"`
	MemberEmail  string    `json:"member_email"`
	Quantity     int       `json:"quantity"`
	CheckoutDate time.Time `json:"checkout_date"`
	DueDate      time.Time `json:"due_date"`
	Status       string    `json:"status"`
}

// OverdueBookRow is one line in the overdue-books report.
type OverdueBookRow struct {
	LoanID      uint      `json:"loan_id"`
	BookTitle   string    `json:"book_title"`
	MemberName  string    `json:"member_name"`
	MemberEmail string    `json:"member_email"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
	AccruedFine float64   `json:"accrued_fine"`
}

// DueDateReport groups outstanding loans by urgency.
type DueDateReport struct {
	Overdue []OverdueBookRow `json:"overdue"`
	DueSoon []IssuedBookRow  `json:"due_soon"`
}

// Service assembles reports from the loan ledger.
type Service struct {
	loans       *loansdb.Repository
	policy      fines.Policy
	clock       circulation.Clock
	dueSoonDays int
}

// NewService creates a report service. A nil clock falls back to wall time.
func NewService(loans *loansdb.Repository, policy fines.Policy, dueSoonDays int, clock circulation.Clock) *Service {
	if clock == nil {
		clock = circulation.SystemClock()
	}
	return &Service{
		loans:       loans,
		policy:      policy,
		clock:       clock,
		dueSoonDays: dueSoonDays,
	}
}

// IssuedBooks lists every unreturned loan with its member and due status.
func (s *Service) IssuedBooks() ([]IssuedBookRow, error) {
	active, err := s.loans.Active(0)
	if err != nil {
		return nil, fmt.Errorf("failed to load active loans: %w", err)
	}

	now := s.clock.Now()
	rows := make([]IssuedBookRow, 0, len(active))
	for _, loan := range active {
		rows = append(rows, issuedRow(loan, now, s.dueSoonDays))
	}
	return rows, nil
}

// OverdueBooks lists unreturned loans whose due date passed more than
// thresholdDays ago, with the fine as it stands right now.
func (s *Service) OverdueBooks(thresholdDays int) ([]OverdueBookRow, error) {
	overdue, err := s.loans.Overdue(thresholdDays, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load overdue loans: %w", err)
	}

	now := s.clock.Now()
	rows := make([]OverdueBookRow, 0, len(overdue))
	for _, loan := range overdue {
		rows = append(rows, OverdueBookRow{
			LoanID:      loan.ID,
			BookTitle:   loan.Book.Title,
			MemberName:  loan.Member.FullName,
			MemberEmail: loan.Member.Email,
			DueDate:     loan.DueDate,
			DaysOverdue: circulation.DaysOverdue(&loan, now),
			AccruedFine: s.policy.Calculate(loan.DueDate, now, loan.DailyFineRate),
		})
	}
	return rows, nil
}

// DueDates buckets outstanding loans into overdue and due-soon groups.
func (s *Service) DueDates() (*DueDateReport, error) {
	overdue, err := s.OverdueBooks(0)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	dueSoon, err := s.loans.DueSoon(s.dueSoonDays, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load due-soon loans: %w", err)
	}

	soonRows := make([]IssuedBookRow, 0, len(dueSoon))
	for _, loan := range dueSoon {
		soonRows = append(soonRows, issuedRow(loan, now, s.dueSoonDays))
	}

	return &DueDateReport{Overdue: overdue, DueSoon: soonRows}, nil
}

func issuedRow(loan entities.Loan, now time.Time, dueSoonDays int) IssuedBookRow {
	return IssuedBookRow{
		LoanID:       loan.ID,
		BookTitle:    loan.Book.Title,
		BookAuthor:   loan.Book.Author,
		MemberName:   loan.Member.FullName,
		MemberEmail:  loan.Member.Email,
		Quantity:     loan.Quantity,
		CheckoutDate: loan.CheckoutDate,
		DueDate:      loan.DueDate,
		Status:       circulation.DueStatus(&loan, now, dueSoonDays),
	}
}
