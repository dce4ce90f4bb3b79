package notify

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avolkov/biblio/internal/database/inventory"
	loansdb "github.com/avolkov/biblio/internal/database/loans"
	"github.com/avolkov/biblio/internal/database/members"
	"github.com/avolkov/biblio/internal/database/reservations"
	"github.com/avolkov/biblio/internal/entities"
)

// stubDispatcher records deliveries and can be told to fail.
type stubDispatcher struct {
	sent []Notification
	fail bool
}

func (d *stubDispatcher) Send(_ context.Context, n Notification) error {
	if d.fail {
		return errors.New("gateway unreachable")
	}
	d.sent = append(d.sent, n)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func setupTestService(t *testing.T) (*gorm.DB, *Service, *stubDispatcher, *fixedClock, func()) {
	dbPath := "./test_notify_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Member{},
		&entities.Book{},
		&entities.Loan{},
		&entities.Reservation{},
		&entities.GenreSubscription{},
	)
	require.NoError(t, err)

	dispatcher := &stubDispatcher{}
	clock := &fixedClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewService(
		inventory.NewRepository(db),
		reservations.NewRepository(db),
		members.NewRepository(db, bcrypt.MinCost),
		loansdb.NewRepository(db),
		dispatcher,
		3,
		clock,
	)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, svc, dispatcher, clock, cleanup
}

func createBook(t *testing.T, db *gorm.DB, title string, available int) *entities.Book {
	book := &entities.Book{
		Title:           title,
		Author:          "Test Author",
		Genre:           entities.GenreScience,
		ISBN:            "978000000" + title,
		TotalCopies:     available + 1,
		AvailableCopies: available,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func createMember(t *testing.T, db *gorm.DB, username string) *entities.Member {
	member := &entities.Member{
		Username: username,
		Email:    username + "@example.com",
		Token:    "token-" + username,
		Role:     entities.RoleMember,
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

func TestService_NotifyAvailability(t *testing.T) {
	db, svc, dispatcher, clock, cleanup := setupTestService(t)
	defer cleanup()

	book := createBook(t, db, "Dune", 1)
	alice := createMember(t, db, "alice")
	bob := createMember(t, db, "bob")

	expiry := clock.Now().AddDate(0, 0, 7)
	for _, m := range []*entities.Member{alice, bob} {
		require.NoError(t, db.Create(&entities.Reservation{
			BookID: book.ID, MemberID: m.ID, ExpiryDate: expiry,
		}).Error)
	}

	count, err := svc.NotifyAvailability(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, dispatcher.sent, 2)
	assert.Equal(t, TemplateReservationAvailable, dispatcher.sent[0].TemplateKey)
	assert.Equal(t, "alice@example.com", dispatcher.sent[0].Recipient)
	assert.NotEmpty(t, dispatcher.sent[0].ID)

	// Everyone is marked notified, a second pass sends nothing.
	count, err = svc.NotifyAvailability(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, dispatcher.sent, 2)
}

func TestService_NotifyAvailability_UnavailableBook(t *testing.T) {
	db, svc, dispatcher, clock, cleanup := setupTestService(t)
	defer cleanup()

	book := createBook(t, db, "Dune", 0)
	alice := createMember(t, db, "alice")
	require.NoError(t, db.Create(&entities.Reservation{
		BookID: book.ID, MemberID: alice.ID, ExpiryDate: clock.Now().AddDate(0, 0, 7),
	}).Error)

	count, err := svc.NotifyAvailability(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, dispatcher.sent)
}

func TestService_NotifyAvailability_FailedDeliveryStaysPending(t *testing.T) {
	db, svc, dispatcher, clock, cleanup := setupTestService(t)
	defer cleanup()

	book := createBook(t, db, "Dune", 1)
	alice := createMember(t, db, "alice")
	reservation := &entities.Reservation{
		BookID: book.ID, MemberID: alice.ID, ExpiryDate: clock.Now().AddDate(0, 0, 7),
	}
	require.NoError(t, db.Create(reservation).Error)

	dispatcher.fail = true
	count, err := svc.NotifyAvailability(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// The notified flag stayed false, so the next pass retries and succeeds.
	dispatcher.fail = false
	count, err = svc.ScanReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var reloaded entities.Reservation
	require.NoError(t, db.First(&reloaded, reservation.ID).Error)
	assert.True(t, reloaded.Notified)
}

func TestService_NotifyNewBook(t *testing.T) {
	db, svc, dispatcher, _, cleanup := setupTestService(t)
	defer cleanup()

	book := createBook(t, db, "Cosmos", 2)
	alice := createMember(t, db, "alice")
	bob := createMember(t, db, "bob")

	require.NoError(t, db.Create(&entities.GenreSubscription{
		MemberID: alice.ID, Genre: entities.GenreScience, Active: true,
	}).Error)
	// Inactive subscriptions are skipped.
	require.NoError(t, db.Create(&entities.GenreSubscription{
		MemberID: bob.ID, Genre: entities.GenreScience, Active: false,
	}).Error)

	count, err := svc.NotifyNewBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, TemplateNewBookInGenre, dispatcher.sent[0].TemplateKey)
	assert.Equal(t, "alice@example.com", dispatcher.sent[0].Recipient)
}

func TestService_NotifyDueSoon(t *testing.T) {
	db, svc, dispatcher, clock, cleanup := setupTestService(t)
	defer cleanup()

	book := createBook(t, db, "Dune", 1)
	alice := createMember(t, db, "alice")

	mkLoan := func(due time.Time, returned bool) {
		require.NoError(t, db.Create(&entities.Loan{
			BookID: book.ID, MemberID: alice.ID, Quantity: 1,
			CheckoutDate: clock.Now().AddDate(0, 0, -10),
			DueDate:      due, Returned: returned,
		}).Error)
	}

	mkLoan(clock.Now().AddDate(0, 0, 2), false)  // due soon
	mkLoan(clock.Now().AddDate(0, 0, 10), false) // not yet
	mkLoan(clock.Now().AddDate(0, 0, -1), false) // already overdue
	mkLoan(clock.Now().AddDate(0, 0, 2), true)   // returned

	count, err := svc.NotifyDueSoon(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, TemplateLoanDueSoon, dispatcher.sent[0].TemplateKey)

	// Reminders go out once per loan.
	count, err = svc.NotifyDueSoon(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, dispatcher.sent, 1)
}
