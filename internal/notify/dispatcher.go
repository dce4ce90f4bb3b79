// Package notify raises notification events for waiting members.
//
// Actual delivery (email, SMS) is an external collaborator behind the
// Dispatcher interface. A delivery failure never rolls back or blocks the
// inventory mutation that triggered it; the event simply stays eligible for
// the next batch pass.
package notify

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Template keys understood by the delivery collaborator.
const (
	TemplateReservationAvailable = "reservation_available"
	TemplateNewBookInGenre       = "new_book_in_genre"
	TemplateLoanDueSoon          = "loan_due_soon"
)

// Notification is one delivery request: a recipient, a template key and the
// template context.
type Notification struct {
	ID          string         `json:"id"`
	Recipient   string         `json:"recipient"` // member email
	TemplateKey string         `json:"template_key"`
	Context     map[string]any `json:"context"`
}

// NewNotification builds a notification with a fresh event ID.
func NewNotification(recipient, templateKey string, templateCtx map[string]any) Notification {
	return Notification{
		ID:          uuid.NewString(),
		Recipient:   recipient,
		TemplateKey: templateKey,
		Context:     templateCtx,
	}
}

// Dispatcher delivers notifications. Implementations must be safe for
// concurrent use.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// LogDispatcher writes notifications to the application log. It stands in
// for a real email/SMS gateway in development and tests.
type LogDispatcher struct{}

// Send implements Dispatcher.
func (LogDispatcher) Send(_ context.Context, n Notification) error {
	log.Printf("[NOTIFY] %s -> %s (event %s)", n.TemplateKey, n.Recipient, n.ID)
	return nil
}
