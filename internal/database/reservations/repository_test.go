package reservations

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avolkov/biblio/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	dbPath := "./test_reservations_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Member{},
		&entities.Book{},
		&entities.Reservation{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, repo, cleanup
}

func createFixtures(t *testing.T, db *gorm.DB) (*entities.Book, *entities.Member) {
	book := &entities.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593"}
	require.NoError(t, db.Create(book).Error)

	member := &entities.Member{Username: "alice", Email: "a@example.com", Role: entities.RoleMember}
	require.NoError(t, db.Create(member).Error)

	return book, member
}

func TestRepository_Pending(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book, member := createFixtures(t, db)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	pending := &entities.Reservation{BookID: book.ID, MemberID: member.ID, ExpiryDate: now.AddDate(0, 0, 7)}
	require.NoError(t, repo.Create(pending))

	notified := &entities.Reservation{BookID: book.ID, MemberID: member.ID, Notified: true, ExpiryDate: now.AddDate(0, 0, 7)}
	require.NoError(t, repo.Create(notified))

	fulfilled := &entities.Reservation{BookID: book.ID, MemberID: member.ID, Fulfilled: true, ExpiryDate: now.AddDate(0, 0, 7)}
	require.NoError(t, repo.Create(fulfilled))

	expired := &entities.Reservation{BookID: book.ID, MemberID: member.ID, ExpiryDate: now.AddDate(0, 0, -1)}
	require.NoError(t, repo.Create(expired))

	results, err := repo.Pending(book.ID, now)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, pending.ID, results[0].ID)
	assert.Equal(t, "alice", results[0].Member.Username)
}

func TestRepository_PendingBookIDs(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book, member := createFixtures(t, db)
	other := &entities.Book{Title: "Cosmos", Author: "Carl Sagan", ISBN: "9780345539434"}
	require.NoError(t, db.Create(other).Error)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	expiry := now.AddDate(0, 0, 7)

	require.NoError(t, repo.Create(&entities.Reservation{BookID: book.ID, MemberID: member.ID, ExpiryDate: expiry}))
	require.NoError(t, repo.Create(&entities.Reservation{BookID: book.ID, MemberID: member.ID, ExpiryDate: expiry}))
	require.NoError(t, repo.Create(&entities.Reservation{BookID: other.ID, MemberID: member.ID, Notified: true, ExpiryDate: expiry}))

	ids, err := repo.PendingBookIDs(now)
	require.NoError(t, err)
	assert.Equal(t, []uint{book.ID}, ids)
}

func TestRepository_MarkNotified(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book, member := createFixtures(t, db)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	reservation := &entities.Reservation{BookID: book.ID, MemberID: member.ID, ExpiryDate: now.AddDate(0, 0, 7)}
	require.NoError(t, repo.Create(reservation))

	require.NoError(t, repo.MarkNotified(reservation.ID))

	results, err := repo.Pending(book.ID, now)
	require.NoError(t, err)
	assert.Empty(t, results)

	reloaded, err := repo.GetByID(reservation.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Notified)
	assert.False(t, reloaded.Fulfilled)
}
