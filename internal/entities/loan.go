package entities

import (
	"time"
)

// Loan records a checkout of one or more copies of a book by a member.
//
// While Returned is false the loan owns a claim on Quantity copies of the
// book and TotalFine tracks the current overdue accrual. Once Returned is
// true, ReturnDate is set exactly once and TotalFine is frozen at the value
// computed at return time.
type Loan struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	BookID        uint       `gorm:"index" json:"book_id"`
	MemberID      uint       `gorm:"index" json:"member_id"`
	Quantity      int        `gorm:"default:1" json:"quantity"`
	CheckoutDate  time.Time  `json:"checkout_date"`
	DueDate       time.Time  `gorm:"index" json:"due_date"`
	Returned      bool       `gorm:"index;default:false" json:"returned"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	Reminded      bool       `gorm:"default:false" json:"reminded"`
	DailyFineRate float64    `json:"daily_fine_rate"`
	TotalFine     float64    `json:"total_fine"`

	Book   Book   `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Member Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Loan) TableName() string {
	return "loans"
}
