package circulation

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avolkov/biblio/internal/database/inventory"
	loansdb "github.com/avolkov/biblio/internal/database/loans"
	"github.com/avolkov/biblio/internal/entities"
	"github.com/avolkov/biblio/internal/fines"
)

// fakeClock pins "now" and can be advanced by tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// recordingNotifier collects availability events.
type recordingNotifier struct {
	books []uint
}

func (n *recordingNotifier) BookAvailable(bookID uint) {
	n.books = append(n.books, bookID)
}

func testPolicy() fines.Policy {
	return fines.Policy{DailyRate: 10, GracePeriodDays: 2, MaxFineDays: 30}
}

func setupTestService(t *testing.T) (*gorm.DB, *Service, *fakeClock, *recordingNotifier, func()) {
	dbPath := "./test_circulation_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Member{},
		&entities.Book{},
		&entities.Loan{},
	)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	svc := NewService(db, inventory.NewRepository(db), loansdb.NewRepository(db), testPolicy(), 14, 3, clock, notifier)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, svc, clock, notifier, cleanup
}

func createTestBook(t *testing.T, db *gorm.DB, title string, copies int) *entities.Book {
	book := &entities.Book{
		Title:           title,
		Author:          "Test Author",
		Genre:           entities.GenreFiction,
		ISBN:            "978000000" + title,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func createTestMember(t *testing.T, db *gorm.DB, username string) *entities.Member {
	member := &entities.Member{
		Username: username,
		Email:    username + "@example.com",
		Token:    "token-" + username,
		Role:     entities.RoleMember,
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

func bookAvailability(t *testing.T, db *gorm.DB, id uint) int {
	var book entities.Book
	require.NoError(t, db.First(&book, id).Error)
	return book.AvailableCopies
}

func TestService_Create(t *testing.T) {
	db, svc, clock, _, cleanup := setupTestService(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", 3)
	member := createTestMember(t, db, "alice")

	loan, err := svc.Create(book.ID, member.ID, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, loan.Quantity)
	assert.False(t, loan.Returned)
	assert.Equal(t, clock.Now(), loan.CheckoutDate)
	assert.Equal(t, clock.Now().AddDate(0, 0, 14), loan.DueDate)
	assert.Equal(t, 10.0, loan.DailyFineRate)
	assert.Equal(t, 1, bookAvailability(t, db, book.ID))
}

func TestService_Create_ExplicitDueDate(t *testing.T) {
	db, svc, clock, _, cleanup := setupTestService(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", 1)
	member := createTestMember(t, db, "alice")

	due := clock.Now().AddDate(0, 0, 7)
	loan, err := svc.Create(book.ID, member.ID, 1, &due)
	require.NoError(t, err)
	assert.Equal(t, due, loan.DueDate)
}

func TestService_Create_InsufficientCopies(t *testing.T) {
	db, svc, _, _, cleanup := setupTestService(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", 1)
	member := createTestMember(t, db, "alice")

	loan, err := svc.Create(book.ID, member.ID, 2, nil)
	require.ErrorIs(t, err, inventory.ErrInsufficientCopies)
	assert.Nil(t, loan)

	// No loan row persisted, availability untouched.
	var count int64
	require.NoError(t, db.Model(&entities.Loan{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 1, bookAvailability(t, db, book.ID))
}

func TestService_Return_OnTime(t *testing.T) {
	db, svc, clock, _, cleanup := setupTestService(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", 2)
	member := createTestMember(t, db, "alice")

	loan, err := svc.Create(book.ID, member.ID, 2, nil)
	require.NoError(t, err)

	clock.advance(24 * time.Hour)

	returned, err := svc.Return(loan.ID)
	require.NoError(t, err)
	assert.True(t, returned.Returned)
	require.NotNil(t, returned.ReturnDate)
	assert.True(t, returned.ReturnDate.Equal(clock.Now()))
	assert.Zero(t, returned.TotalFine)
	assert.Equal(t, 2, bookAvailability(t, db, book.ID))
}

func TestService_Return_LateFreezesFine(t *testing.T) {
	db, svc, clock, _, cleanup := setupTestService(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", 1)
	member := createTestMember(t, db, "alice")

	loan, err := svc.Create(book.ID, member.ID, 1, nil)
	require.NoError(t, err)

	// 5 days past due: 5 - 2 grace = 3 chargeable days at 10.00.
	clock.advance(19 * 24 * time.Hour)

	returned, err := svc.Return(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, returned.TotalFine)

	// The frozen value survives later clock movement.
	clock.advance(10 * 24 * time.Hour)
	reloaded, err := svc.Get(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, reloaded.TotalFine)
}

func TestService_Return_Idempotent(t *testing.T) {
	db, svc, clock, _, cleanup := setupTestService(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", 1)
	member := createTestMember(t, db, "alice")

	loan, err := svc.Create(book.ID, member.ID, 1, nil)
	require.NoError(t, err)

	clock.advance(19 * 24 * time.Hour)
	first, err := svc.Return(loan.ID)
	require.NoError(t, err)

	clock.advance(48 * time.Hour)
	_, err = svc.Return(loan.ID)
	require.ErrorIs(t, err, ErrAlreadyReturned)

	// Second call changed nothing.
	reloaded, err := svc.Get(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TotalFine, reloaded.TotalFine)
	assert.True(t, first.ReturnDate.Equal(*reloaded.ReturnDate))
	assert.Equal(t, 1, bookAvailability(t, db, book.ID))
}

func TestService_Delete_CompensatesInventory(t *testing.T) {
	db, svc, _, _, cleanup := setupTestService(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", 2)
	member := createTestMember(t, db, "alice")

	loan, err := svc.Create(book.ID, member.ID, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, bookAvailability(t, db, book.ID))

	require.NoError(t, svc.Delete(loan.ID))
	assert.Equal(t, 2, bookAvailability(t, db, book.ID))

	var count int64
	require.NoError(t, db.Model(&entities.Loan{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestService_Delete_ReturnedLoanDoesNotRelease(t *testing.T) {
	db, svc, _, _, cleanup := setupTestService(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", 1)
	member := createTestMember(t, db, "alice")

	loan, err := svc.Create(book.ID, member.ID, 1, nil)
	require.NoError(t, err)
	_, err = svc.Return(loan.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(loan.ID))
	assert.Equal(t, 1, bookAvailability(t, db, book.ID))
}

func TestService_Get_RefreshesActiveFine(t *testing.T) {
	db, svc, clock, _, cleanup := setupTestService(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", 1)
	member := createTestMember(t, db, "alice")

	loan, err := svc.Create(book.ID, member.ID, 1, nil)
	require.NoError(t, err)

	// 19 days after checkout: 5 days past due, 3 chargeable.
	clock.advance(19 * 24 * time.Hour)

	current, err := svc.Get(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, current.TotalFine)

	// The refreshed value was persisted too.
	var stored entities.Loan
	require.NoError(t, db.First(&stored, loan.ID).Error)
	assert.Equal(t, 30.0, stored.TotalFine)
}

func TestService_RecalculateFines(t *testing.T) {
	db, svc, clock, _, cleanup := setupTestService(t)
	defer cleanup()

	member := createTestMember(t, db, "alice")
	overdueBook := createTestBook(t, db, "Dune", 1)
	onTimeBook := createTestBook(t, db, "Cosmos", 1)

	overdueLoan, err := svc.Create(overdueBook.ID, member.ID, 1, nil)
	require.NoError(t, err)

	// Second loan issued 18 days later stays within its own period.
	clock.advance(18 * 24 * time.Hour)
	onTimeLoan, err := svc.Create(onTimeBook.ID, member.ID, 1, nil)
	require.NoError(t, err)

	// First loan is now 4 days past due -> 2 chargeable days.
	updated, err := svc.RecalculateFines()
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	var storedOverdue entities.Loan
	require.NoError(t, db.First(&storedOverdue, overdueLoan.ID).Error)
	assert.Equal(t, 20.0, storedOverdue.TotalFine)

	var storedOnTime entities.Loan
	require.NoError(t, db.First(&storedOnTime, onTimeLoan.ID).Error)
	assert.Zero(t, storedOnTime.TotalFine)

	// Nothing drifted since the last pass.
	updated, err = svc.RecalculateFines()
	require.NoError(t, err)
	assert.Zero(t, updated)

	// Batch and inline paths agree.
	clock.advance(24 * time.Hour)
	_, err = svc.RecalculateFines()
	require.NoError(t, err)
	inline, err := svc.Get(overdueLoan.ID)
	require.NoError(t, err)
	var batch entities.Loan
	require.NoError(t, db.First(&batch, overdueLoan.ID).Error)
	assert.Equal(t, batch.TotalFine, inline.TotalFine)
}

func TestService_ReturnNotifiesWhenBookBecomesAvailable(t *testing.T) {
	db, svc, _, notifier, cleanup := setupTestService(t)
	defer cleanup()

	book := createTestBook(t, db, "Dune", 2)
	alice := createTestMember(t, db, "alice")
	bob := createTestMember(t, db, "bob")

	// Alice takes both copies, pool is empty.
	aliceLoan, err := svc.Create(book.ID, alice.ID, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, bookAvailability(t, db, book.ID))

	// Bob cannot check out.
	_, err = svc.Create(book.ID, bob.ID, 1, nil)
	require.ErrorIs(t, err, inventory.ErrInsufficientCopies)
	assert.Equal(t, 0, bookAvailability(t, db, book.ID))
	assert.Empty(t, notifier.books)

	// Alice returns: availability flips 0 -> positive exactly once.
	_, err = svc.Return(aliceLoan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, bookAvailability(t, db, book.ID))
	assert.Equal(t, []uint{book.ID}, notifier.books)
}

func TestStatusDerivation(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

	active := &entities.Loan{DueDate: now.AddDate(0, 0, 5)}
	assert.False(t, IsOverdue(active, now))
	assert.Zero(t, DaysOverdue(active, now))
	assert.False(t, IsDueSoon(active, now, 3))
	assert.Equal(t, "On time", DueStatus(active, now, 3))

	dueSoon := &entities.Loan{DueDate: now.AddDate(0, 0, 2)}
	assert.True(t, IsDueSoon(dueSoon, now, 3))
	assert.Equal(t, "Due soon", DueStatus(dueSoon, now, 3))

	overdue := &entities.Loan{DueDate: now.AddDate(0, 0, -4)}
	assert.True(t, IsOverdue(overdue, now))
	assert.Equal(t, 4, DaysOverdue(overdue, now))
	assert.False(t, IsDueSoon(overdue, now, 3))
	assert.Equal(t, "Overdue by 4 day(s)", DueStatus(overdue, now, 3))

	returned := &entities.Loan{Returned: true, DueDate: now.AddDate(0, 0, -4)}
	assert.False(t, IsOverdue(returned, now))
	assert.Zero(t, DaysOverdue(returned, now))
	assert.Equal(t, "Returned", DueStatus(returned, now, 3))
}
