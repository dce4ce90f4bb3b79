// Package fines computes overdue fines for loans.
//
// The same formula serves the inline path (keeping an active loan's fine
// current on save), the authoritative computation at return time, and the
// periodic batch reconciliation. Policy parameters are passed in explicitly
// so tests can vary them without touching shared state.
package fines

import (
	"time"

	"github.com/avolkov/biblio/internal/config"
)

// Policy holds the fine parameters applied to late returns.
type Policy struct {
	DailyRate       float64 // Default charge per chargeable late day
	GracePeriodDays int     // Days after the due date before fines accrue
	MaxFineDays     int     // Cap on chargeable late days per loan
}

// PolicyFromConfig builds a Policy from the application configuration.
func PolicyFromConfig(cfg config.Fines) Policy {
	return Policy{
		DailyRate:       cfg.DailyRate,
		GracePeriodDays: cfg.GracePeriodDays,
		MaxFineDays:     cfg.MaxFineDays,
	}
}

// Calculate returns the fine owed on a loan with the given due date, as of
// the given moment (the return time for returned loans, "now" for active
// ones). rate is the loan's own daily rate, captured at checkout time.
//
// daysLate = floor(asOf - dueDate in days) - grace, clamped to
// [0, MaxFineDays]; fine = daysLate * rate.
func (p Policy) Calculate(dueDate, asOf time.Time, rate float64) float64 {
	daysLate := DaysBetween(dueDate, asOf) - p.GracePeriodDays
	if daysLate < 0 {
		daysLate = 0
	}
	if daysLate > p.MaxFineDays {
		daysLate = p.MaxFineDays
	}
	return float64(daysLate) * rate
}

// DaysBetween returns the number of whole days from earlier to later,
// 0 if later does not come after earlier.
func DaysBetween(earlier, later time.Time) int {
	if !later.After(earlier) {
		return 0
	}
	return int(later.Sub(earlier).Hours() / 24)
}
