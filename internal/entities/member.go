package entities

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleMember    Role = "member"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleMember:
		return true
	}
	return false
}

// CanManageCatalog reports whether the role may create, edit and delete books
// and process loans on behalf of members.
func (r Role) CanManageCatalog() bool {
	return r == RoleAdmin || r == RoleLibrarian
}

// CanManageMembers reports whether the role may administer member accounts.
func (r Role) CanManageMembers() bool {
	return r == RoleAdmin
}

type Member struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string         `gorm:"size:100" json:"-"`
	Token        string         `gorm:"uniqueIndex;size:64" json:"-"` // API token, hidden from JSON
	Role         Role           `gorm:"size:20;default:'member'" json:"role"`
	FullName     string         `gorm:"size:200" json:"full_name,omitempty"`
	Phone        string         `gorm:"size:20" json:"phone,omitempty"`
	Address      string         `gorm:"type:text" json:"address,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// GenreSubscription is a standing member preference to be notified when new
// books of a genre are added to the catalog.
type GenreSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"index" json:"member_id"`
	Genre     Genre     `gorm:"index;size:3" json:"genre"`
	Active    bool      `json:"active"`
	Member    Member    `gorm:"foreignKey:MemberID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Member) TableName() string {
	return "members"
}

func (GenreSubscription) TableName() string {
	return "genre_subscriptions"
}
