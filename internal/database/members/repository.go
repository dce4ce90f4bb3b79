// Package members provides database operations for member accounts and
// genre subscriptions.
package members

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/database"
	"github.com/avolkov/biblio/internal/entities"
)

// ErrInvalidRole is returned when creating a member with an unknown role.
var ErrInvalidRole = errors.New("invalid role")

// Repository handles member database operations.
type Repository struct {
	db         *gorm.DB
	bcryptCost int
}

// NewRepository creates a new members repository.
func NewRepository(db *gorm.DB, bcryptCost int) *Repository {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Repository{db: db, bcryptCost: bcryptCost}
}

// Create registers a member with a hashed password and a fresh API token.
func (r *Repository) Create(member *entities.Member, password string) error {
	if !member.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, member.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	member.PasswordHash = string(hash)

	token, err := database.GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	member.Token = token

	return r.db.Create(member).Error
}

// VerifyPassword checks a candidate password against the stored hash.
func (r *Repository) VerifyPassword(member *entities.Member, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)) == nil
}

// GetByID retrieves a member by ID.
func (r *Repository) GetByID(id uint) (*entities.Member, error) {
	var member entities.Member
	if err := r.db.First(&member, id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByUsername retrieves a member by username.
func (r *Repository) GetByUsername(username string) (*entities.Member, error) {
	var member entities.Member
	if err := r.db.Where("username = ?", username).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByToken retrieves a member by API token.
func (r *Repository) GetByToken(token string) (*entities.Member, error) {
	var member entities.Member
	if err := r.db.Where("token = ?", token).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// List returns members with the given role, or every member when role is
// empty.
func (r *Repository) List(role entities.Role) ([]entities.Member, error) {
	query := r.db.Order("username ASC")
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var results []entities.Member
	err := query.Find(&results).Error
	return results, err
}

// Update persists profile changes.
func (r *Repository) Update(member *entities.Member) error {
	return r.db.Save(member).Error
}

// Delete soft-deletes a member account.
func (r *Repository) Delete(id uint) error {
	return r.db.Delete(&entities.Member{}, id).Error
}

// Subscribe adds an active genre subscription, reactivating a previous one
// if present.
func (r *Repository) Subscribe(memberID uint, genre entities.Genre) (*entities.GenreSubscription, error) {
	var sub entities.GenreSubscription
	err := r.db.Where("member_id = ? AND genre = ?", memberID, genre).First(&sub).Error
	if err == nil {
		if !sub.Active {
			sub.Active = true
			if err := r.db.Save(&sub).Error; err != nil {
				return nil, err
			}
		}
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub = entities.GenreSubscription{MemberID: memberID, Genre: genre, Active: true}
	if err := r.db.Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// Unsubscribe deactivates a genre subscription.
func (r *Repository) Unsubscribe(memberID uint, genre entities.Genre) error {
	return r.db.Model(&entities.GenreSubscription{}).
		Where("member_id = ? AND genre = ?", memberID, genre).
		Update("active", false).Error
}

// Subscriptions returns a member's active genre subscriptions.
func (r *Repository) Subscriptions(memberID uint) ([]entities.GenreSubscription, error) {
	var subs []entities.GenreSubscription
	err := r.db.Where("member_id = ? AND active = ?", memberID, true).Find(&subs).Error
	return subs, err
}

// SubscribersForGenre returns members with an active subscription to the
// genre.
func (r *Repository) SubscribersForGenre(genre entities.Genre) ([]entities.GenreSubscription, error) {
	var subs []entities.GenreSubscription
	err := r.db.Preload("Member").
		Where("genre = ? AND active = ?", genre, true).
		Find(&subs).Error
	return subs, err
}
