package entities

import (
	"time"
)

// Reservation is a member's standing request to be notified when a currently
// unavailable book regains availability. Notified flips to true only after a
// notification was actually delivered, so failed sends are retried by the
// next scan.
type Reservation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BookID     uint      `gorm:"index" json:"book_id"`
	MemberID   uint      `gorm:"index" json:"member_id"`
	Notified   bool      `gorm:"index;default:false" json:"notified"`
	Fulfilled  bool      `gorm:"default:false" json:"fulfilled"`
	ExpiryDate time.Time `json:"expiry_date"`

	Book   Book   `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Member Member `gorm:"foreignKey:MemberID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}
