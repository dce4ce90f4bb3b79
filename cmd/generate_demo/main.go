// Command generate_demo creates a demo database with a small library:
// a staffed member roster, a public-domain catalog, and loans in every
// lifecycle state (active, due soon, overdue, returned).
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/circulation"
	"github.com/avolkov/biblio/internal/database"
	"github.com/avolkov/biblio/internal/database/inventory"
	loansdb "github.com/avolkov/biblio/internal/database/loans"
	"github.com/avolkov/biblio/internal/database/members"
	"github.com/avolkov/biblio/internal/database/reservations"
	"github.com/avolkov/biblio/internal/entities"
	"github.com/avolkov/biblio/internal/fines"
)

const defaultDemoDatabasePath = "./demo.db"

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	memberRepo := members.NewRepository(db.DB, bcrypt.DefaultCost)
	roster := createMembers(memberRepo)

	inv := inventory.NewRepository(db.DB)
	catalog := createCatalog(inv)

	policy := fines.Policy{DailyRate: 10.00, GracePeriodDays: 2, MaxFineDays: 30}
	circ := circulation.NewService(db.DB, inv, loansdb.NewRepository(db.DB), policy, 14, 3, nil, nil)
	createLoans(db.DB, circ, catalog, roster)

	createReservations(reservations.NewRepository(db.DB), catalog, roster)

	log.Printf("Demo database generated successfully at %s", *dbPath)
	log.Printf("Log in as librarian/demo-password or any reader (password demo-password)")
}

func createMembers(repo *members.Repository) map[string]*entities.Member {
	roster := map[string]*entities.Member{}

	for _, m := range []entities.Member{
		{Username: "librarian", Email: "librarian@biblio.local", Role: entities.RoleLibrarian, FullName: "Lydia Marsh"},
		{Username: "asimov_fan", Email: "dora@example.com", Role: entities.RoleMember, FullName: "Dora Quinn"},
		{Username: "nightreader", Email: "theo@example.com", Role: entities.RoleMember, FullName: "Theo Brandt"},
		{Username: "histbuff", Email: "mira@example.com", Role: entities.RoleMember, FullName: "Mira Castellanos"},
	} {
		member := m
		if err := repo.Create(&member, "demo-password"); err != nil {
			log.Fatalf("Failed to create member %s: %v", m.Username, err)
		}
		roster[member.Username] = &member
		log.Printf("Created member %s (%s)", member.Username, member.Role)
	}

	// Subscribe a couple of readers to genres so new-book announcements
	// have an audience.
	if _, err := repo.Subscribe(roster["asimov_fan"].ID, entities.GenreScience); err != nil {
		log.Printf("Failed to subscribe: %v", err)
	}
	if _, err := repo.Subscribe(roster["histbuff"].ID, entities.GenreHistory); err != nil {
		log.Printf("Failed to subscribe: %v", err)
	}

	return roster
}

func createCatalog(inv *inventory.Repository) map[string]*entities.Book {
	catalog := map[string]*entities.Book{}

	for _, b := range []entities.Book{
		{Title: "Pride and Prejudice", Author: "Jane Austen", Genre: entities.GenreFiction, ISBN: "9780141439518", TotalCopies: 3},
		{Title: "Moby-Dick", Author: "Herman Melville", Genre: entities.GenreFiction, ISBN: "9780142437247", TotalCopies: 2},
		{Title: "On the Origin of Species", Author: "Charles Darwin", Genre: entities.GenreScience, ISBN: "9780451529060", TotalCopies: 2},
		{Title: "The Souls of Black Folk", Author: "W. E. B. Du Bois", Genre: entities.GenreHistory, ISBN: "9780486280417", TotalCopies: 1},
		{Title: "The Autobiography of Benjamin Franklin", Author: "Benjamin Franklin", Genre: entities.GenreBiography, ISBN: "9780486290737", TotalCopies: 2},
		{Title: "Relativity: The Special and General Theory", Author: "Albert Einstein", Genre: entities.GenreScience, ISBN: "9780517884416", TotalCopies: 1},
	} {
		book := b
		if err := inv.CreateBook(&book); err != nil {
			log.Fatalf("Failed to save book %s: %v", b.Title, err)
		}
		catalog[book.Title] = &book
		log.Printf("Saved: %s by %s (%d copies)", book.Title, book.Author, book.TotalCopies)
	}

	return catalog
}

func createLoans(db *gorm.DB, circ *circulation.Service, catalog map[string]*entities.Book, roster map[string]*entities.Member) {
	now := time.Now()

	// An active loan well within its period.
	mustLoan(circ, catalog["Pride and Prejudice"].ID, roster["asimov_fan"].ID, nil)

	// A loan due in two days, i.e. inside the due-soon window.
	dueSoon := now.AddDate(0, 0, 2)
	mustLoan(circ, catalog["Moby-Dick"].ID, roster["nightreader"].ID, &dueSoon)

	// An overdue loan; backdate it so fines accrue immediately.
	overdue := now.AddDate(0, 0, -9)
	loan := mustLoan(circ, catalog["On the Origin of Species"].ID, roster["histbuff"].ID, &overdue)
	db.Model(&entities.Loan{}).Where("id = ?", loan.ID).
		Update("checkout_date", now.AddDate(0, 0, -23))

	// A completed loan for the history views.
	finished := mustLoan(circ, catalog["The Souls of Black Folk"].ID, roster["asimov_fan"].ID, nil)
	if _, err := circ.Return(finished.ID); err != nil {
		log.Fatalf("Failed to return demo loan: %v", err)
	}

	// Check out the last Einstein copy so reservations have something to
	// wait on.
	mustLoan(circ, catalog["Relativity: The Special and General Theory"].ID, roster["nightreader"].ID, nil)
}

func mustLoan(circ *circulation.Service, bookID, memberID uint, due *time.Time) *entities.Loan {
	loan, err := circ.Create(bookID, memberID, 1, due)
	if err != nil {
		log.Fatalf("Failed to create demo loan: %v", err)
	}
	return loan
}

func createReservations(repo *reservations.Repository, catalog map[string]*entities.Book, roster map[string]*entities.Member) {
	reservation := &entities.Reservation{
		BookID:     catalog["Relativity: The Special and General Theory"].ID,
		MemberID:   roster["asimov_fan"].ID,
		ExpiryDate: time.Now().AddDate(0, 0, 7),
	}
	if err := repo.Create(reservation); err != nil {
		log.Fatalf("Failed to create demo reservation: %v", err)
	}
	log.Printf("Created reservation for %s", roster["asimov_fan"].Username)
}
