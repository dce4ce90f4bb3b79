package inventory

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avolkov/biblio/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	dbPath := "./test_inventory_" + t.Name() + ".db"

	// Write transactions take the lock up front so concurrent reserves
	// queue on the busy timeout instead of failing with SQLITE_BUSY.
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000&_txlock=immediate"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.Loan{},
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

func createTestBook(t *testing.T, repo *Repository, title string, copies int) *entities.Book {
	book := &entities.Book{
		Title:       title,
		Author:      "Test Author",
		Genre:       entities.GenreFiction,
		ISBN:        "978000000" + title,
		TotalCopies: copies,
	}
	require.NoError(t, repo.CreateBook(book))
	return book
}

func TestRepository_CreateBook_InitializesAvailability(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 5)

	saved, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.TotalCopies)
	assert.Equal(t, 5, saved.AvailableCopies)
}

func TestRepository_CreateBook_ZeroCopies(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	// An out-of-stock catalog entry stays at zero once persisted; nothing
	// may be reserved against copies the library does not own.
	book := createTestBook(t, repo, "Dune", 0)

	saved, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.TotalCopies)
	assert.Equal(t, 0, saved.AvailableCopies)

	err = repo.Reserve(book.ID, 1)
	require.ErrorIs(t, err, ErrInsufficientCopies)
}

func TestRepository_Reserve(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 3)

	err := repo.Reserve(book.ID, 2)
	require.NoError(t, err)

	saved, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.AvailableCopies)
}

func TestRepository_Reserve_Insufficient(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 1)

	err := repo.Reserve(book.ID, 2)
	require.ErrorIs(t, err, ErrInsufficientCopies)

	// Failed reservation must not mutate anything.
	saved, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.AvailableCopies)
}

func TestRepository_Reserve_InvalidQuantity(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 1)

	assert.Error(t, repo.Reserve(book.ID, 0))
	assert.Error(t, repo.Reserve(book.ID, -1))
}

func TestRepository_ReserveRelease_RoundTrip(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 4)

	require.NoError(t, repo.Reserve(book.ID, 3))

	released, becameAvailable, err := repo.Release(book.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, released)
	assert.False(t, becameAvailable)

	saved, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, saved.AvailableCopies)
}

func TestRepository_Release_ReportsZeroToPositive(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 2)
	require.NoError(t, repo.Reserve(book.ID, 2))

	released, becameAvailable, err := repo.Release(book.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.True(t, becameAvailable)

	// Already positive, so the second release does not re-trigger.
	released, becameAvailable, err = repo.Release(book.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.False(t, becameAvailable)
}

func TestRepository_Release_ClampsAtTotal(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 2)
	require.NoError(t, repo.Reserve(book.ID, 1))

	// Releasing more than was reserved clamps instead of erroring.
	released, _, err := repo.Release(book.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	saved, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.AvailableCopies)

	// Fully stocked: release drops everything.
	released, becameAvailable, err := repo.Release(book.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.False(t, becameAvailable)
}

func TestRepository_ConcurrentReserve_NoOversell(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	const copies = 3
	const attempts = 10

	book := createTestBook(t, repo, "Dune", copies)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = repo.Reserve(book.ID, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientCopies)
		}
	}
	assert.Equal(t, copies, succeeded)

	saved, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.AvailableCopies)
}

func TestRepository_UpdateBook_ClampsAvailability(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 5)

	// Shrinking the total below current availability re-clamps it.
	book.TotalCopies = 2
	require.NoError(t, repo.UpdateBook(book))

	saved, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.TotalCopies)
	assert.Equal(t, 2, saved.AvailableCopies)
}

func TestRepository_DeleteBook_RefusesWithActiveLoans(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, repo, "Dune", 2)

	loan := &entities.Loan{BookID: book.ID, MemberID: 1, Quantity: 1}
	require.NoError(t, db.Create(loan).Error)

	err := repo.DeleteBook(book.ID)
	require.ErrorIs(t, err, ErrBookHasActiveLoans)

	require.NoError(t, db.Model(loan).Update("returned", true).Error)
	require.NoError(t, repo.DeleteBook(book.ID))
}

func TestRepository_SearchBooks(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	dune := createTestBook(t, repo, "Dune", 1)
	createTestBook(t, repo, "Cosmos", 1)

	byTitle, err := repo.SearchBooks("dun", "", "", "")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, dune.ID, byTitle[0].ID)

	byGenre, err := repo.SearchBooks("", "", "", entities.GenreFiction)
	require.NoError(t, err)
	assert.Len(t, byGenre, 2)

	none, err := repo.SearchBooks("", "nobody", "", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}
