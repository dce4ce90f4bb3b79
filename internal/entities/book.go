package entities

import (
	"time"

	"gorm.io/gorm"
)

type Genre string

const (
	GenreFiction    Genre = "FIC"
	GenreNonFiction Genre = "NF"
	GenreScience    Genre = "SCI"
	GenreHistory    Genre = "HIS"
	GenreBiography  Genre = "BIO"
)

// Valid reports whether the genre is one of the catalog's known codes.
func (g Genre) Valid() bool {
	switch g {
	case GenreFiction, GenreNonFiction, GenreScience, GenreHistory, GenreBiography:
		return true
	}
	return false
}

// Book is a catalog entry. TotalCopies and AvailableCopies hold the copy
// counts; AvailableCopies is only ever mutated through the inventory
// repository so that 0 <= available <= total holds at all times.
type Book struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"index;size:200" json:"title"`
	Author          string         `gorm:"index;size:100" json:"author"`
	Publisher       string         `gorm:"size:100" json:"publisher,omitempty"`
	Genre           Genre          `gorm:"index;size:3" json:"genre"`
	ISBN            string         `gorm:"uniqueIndex;size:13" json:"isbn"`
	PublicationDate time.Time      `json:"publication_date,omitempty"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	CoverURL        string         `gorm:"size:2048" json:"cover_url,omitempty"`
	TotalCopies     int            `json:"total_copies"`
	AvailableCopies int            `json:"available_copies"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Book) TableName() string {
	return "books"
}
