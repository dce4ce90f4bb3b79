package tasks

import "log"

// Enqueuer pushes notification work onto the task queue. It implements
// circulation.Notifier so loan returns hand availability events to the
// background workers instead of dispatching inline.
type Enqueuer struct {
	client *Client
}

// NewEnqueuer creates an Enqueuer backed by the given task client.
func NewEnqueuer(client *Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// BookAvailable enqueues an availability notification for a book whose
// copies just went from none to some. Enqueue failures are logged rather
// than propagated: the hourly reservation scan picks up anything missed.
func (e *Enqueuer) BookAvailable(bookID uint) {
	if _, err := e.client.Add(NotifyAvailabilityTask{BookID: bookID}).Save(); err != nil {
		log.Printf("[TASK ERROR] Failed to enqueue availability notification for book %d: %v", bookID, err)
	}
}

// NewBookAdded enqueues a new-book announcement for genre subscribers.
func (e *Enqueuer) NewBookAdded(bookID uint) {
	if _, err := e.client.Add(NotifyNewBookTask{BookID: bookID}).Save(); err != nil {
		log.Printf("[TASK ERROR] Failed to enqueue new book announcement for book %d: %v", bookID, err)
	}
}
