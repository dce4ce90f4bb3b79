package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/avolkov/biblio/internal/circulation"
	"github.com/avolkov/biblio/internal/database/inventory"
	loansdb "github.com/avolkov/biblio/internal/database/loans"
	"github.com/avolkov/biblio/internal/database/members"
	"github.com/avolkov/biblio/internal/database/reservations"
)

// Service scans for notifiable state and raises one event per recipient.
type Service struct {
	inventory    *inventory.Repository
	reservations *reservations.Repository
	members      *members.Repository
	loans        *loansdb.Repository
	dispatcher   Dispatcher
	clock        circulation.Clock

	dueSoonDays int
}

// NewService creates a notification service. clock may be nil to use the
// system clock.
func NewService(inv *inventory.Repository, res *reservations.Repository, mem *members.Repository, loans *loansdb.Repository, dispatcher Dispatcher, dueSoonDays int, clock circulation.Clock) *Service {
	if clock == nil {
		clock = circulation.SystemClock()
	}
	return &Service{
		inventory:    inv,
		reservations: res,
		members:      mem,
		loans:        loans,
		dispatcher:   dispatcher,
		clock:        clock,
		dueSoonDays:  dueSoonDays,
	}
}

// NotifyAvailability tells members with pending reservations that the book
// is available again. The notified flag flips only after a send succeeded,
// so failed deliveries are retried by the next pass. Returns the number of
// members notified.
func (s *Service) NotifyAvailability(ctx context.Context, bookID uint) (int, error) {
	book, err := s.inventory.GetBookByID(bookID)
	if err != nil {
		return 0, fmt.Errorf("failed to load book %d: %w", bookID, err)
	}
	if book.AvailableCopies <= 0 {
		return 0, nil
	}

	pending, err := s.reservations.Pending(bookID, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to load reservations for book %d: %w", bookID, err)
	}

	notified := 0
	for _, reservation := range pending {
		n := NewNotification(reservation.Member.Email, TemplateReservationAvailable, map[string]any{
			"book_title":  book.Title,
			"book_author": book.Author,
			"expires_at":  reservation.ExpiryDate.Format(time.RFC3339),
		})
		if err := s.dispatcher.Send(ctx, n); err != nil {
			log.Printf("Notification delivery failed for reservation %d: %v", reservation.ID, err)
			continue
		}
		if err := s.reservations.MarkNotified(reservation.ID); err != nil {
			log.Printf("Failed to mark reservation %d notified: %v", reservation.ID, err)
			continue
		}
		notified++
	}

	if notified > 0 {
		log.Printf("Notified %d member(s) that %q is available", notified, book.Title)
	}
	return notified, nil
}

// NotifyNewBook tells active genre subscribers about a newly added book.
func (s *Service) NotifyNewBook(ctx context.Context, bookID uint) (int, error) {
	book, err := s.inventory.GetBookByID(bookID)
	if err != nil {
		return 0, fmt.Errorf("failed to load book %d: %w", bookID, err)
	}

	subs, err := s.members.SubscribersForGenre(book.Genre)
	if err != nil {
		return 0, fmt.Errorf("failed to load subscribers for genre %s: %w", book.Genre, err)
	}

	notified := 0
	for _, sub := range subs {
		n := NewNotification(sub.Member.Email, TemplateNewBookInGenre, map[string]any{
			"book_title":  book.Title,
			"book_author": book.Author,
			"genre":       string(book.Genre),
		})
		if err := s.dispatcher.Send(ctx, n); err != nil {
			log.Printf("New-book notification failed for member %d: %v", sub.MemberID, err)
			continue
		}
		notified++
	}
	return notified, nil
}

// NotifyDueSoon reminds members about unreturned loans due within the
// configured window. Each loan is reminded at most once: the flag flips
// only after a successful delivery, so failures are retried on the next
// scan.
func (s *Service) NotifyDueSoon(ctx context.Context) (int, error) {
	due, err := s.loans.DueSoonPending(s.dueSoonDays, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to load due-soon loans: %w", err)
	}

	notified := 0
	for _, loan := range due {
		n := NewNotification(loan.Member.Email, TemplateLoanDueSoon, map[string]any{
			"book_title": loan.Book.Title,
			"due_date":   loan.DueDate.Format(time.RFC3339),
			"quantity":   loan.Quantity,
		})
		if err := s.dispatcher.Send(ctx, n); err != nil {
			log.Printf("Due-soon notification failed for loan %d: %v", loan.ID, err)
			continue
		}
		if err := s.loans.MarkReminded(loan.ID); err != nil {
			log.Printf("Failed to mark loan %d as reminded: %v", loan.ID, err)
		}
		notified++
	}
	return notified, nil
}

// ScanReservations runs NotifyAvailability over every book that has pending
// reservations. This is the batch retry pass for deliveries that failed
// when availability first flipped.
func (s *Service) ScanReservations(ctx context.Context) (int, error) {
	ids, err := s.reservations.PendingBookIDs(s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to scan pending reservations: %w", err)
	}

	total := 0
	for _, id := range ids {
		n, err := s.NotifyAvailability(ctx, id)
		if err != nil {
			log.Printf("Reservation scan failed for book %d: %v", id, err)
			continue
		}
		total += n
	}
	return total, nil
}
