package circulation

import (
	"fmt"
	"time"

	"github.com/avolkov/biblio/internal/entities"
	"github.com/avolkov/biblio/internal/fines"
)

// IsOverdue reports whether the loan is unreturned and past its due date.
func IsOverdue(loan *entities.Loan, now time.Time) bool {
	return !loan.Returned && now.After(loan.DueDate)
}

// DaysOverdue returns the number of whole days the loan is past due,
// 0 if it is not overdue.
func DaysOverdue(loan *entities.Loan, now time.Time) int {
	if !IsOverdue(loan, now) {
		return 0
	}
	return fines.DaysBetween(loan.DueDate, now)
}

// IsDueSoon reports whether the loan is unreturned, not yet overdue, and due
// within windowDays.
func IsDueSoon(loan *entities.Loan, now time.Time, windowDays int) bool {
	if loan.Returned || IsOverdue(loan, now) {
		return false
	}
	return fines.DaysBetween(now, loan.DueDate) <= windowDays
}

// DueStatus returns a human-readable status line for a loan.
func DueStatus(loan *entities.Loan, now time.Time, windowDays int) string {
	switch {
	case loan.Returned:
		return "Returned"
	case IsOverdue(loan, now):
		return fmt.Sprintf("Overdue by %d day(s)", DaysOverdue(loan, now))
	case IsDueSoon(loan, now, windowDays):
		return "Due soon"
	}
	return "On time"
}
