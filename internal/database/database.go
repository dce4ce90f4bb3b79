package database

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avolkov/biblio/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate all entities
	err = db.AutoMigrate(
		&entities.Member{},
		&entities.Book{},
		&entities.Loan{},
		&entities.Reservation{},
		&entities.BookRequest{},
		&entities.GenreSubscription{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedAdmin(); err != nil {
		return nil, fmt.Errorf("failed to seed admin account: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// seedAdmin creates a bootstrap admin account on first run so the API is
// usable before any members exist. The generated token is logged once.
func (d *Database) seedAdmin() error {
	var count int64
	if err := d.DB.Model(&entities.Member{}).Where("role = ?", entities.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	token, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	admin := &entities.Member{
		Username: "admin",
		Email:    "admin@localhost",
		Role:     entities.RoleAdmin,
		Token:    token,
	}
	if err := d.DB.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("Created bootstrap admin account (token: %s)", token)
	return nil
}

// GenerateToken returns a random 64-character hex API token.
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
