package entities

import (
	"time"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusFulfilled RequestStatus = "FULFILLED"
)

// BookRequest is a member-submitted suggestion for a title the library does
// not carry yet. Pure workflow entity.
type BookRequest struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	MemberID      uint          `gorm:"index" json:"member_id"`
	Title         string        `gorm:"size:200" json:"title"`
	Author        string        `gorm:"size:100" json:"author,omitempty"`
	Reason        string        `gorm:"type:text" json:"reason"`
	Status        RequestStatus `gorm:"index;size:10;default:'PENDING'" json:"status"`
	RequestDate   time.Time     `json:"request_date"`
	ResponseDate  *time.Time    `json:"response_date,omitempty"`
	ResponseNotes string        `gorm:"type:text" json:"response_notes,omitempty"`

	Member Member `gorm:"foreignKey:MemberID" json:"-"`
}

func (BookRequest) TableName() string {
	return "book_requests"
}
