package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/avolkov/biblio/internal/notify"
)

// NotifyNewBookTask notifies genre subscribers about a newly catalogued book.
type NotifyNewBookTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for new-book notifications.
func (t NotifyNewBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "notify_new_book",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// NotifyNewBookProcessor creates a processor function for NotifyNewBookTask.
func NotifyNewBookProcessor(notifier *notify.Service) backlite.QueueProcessor[NotifyNewBookTask] {
	return func(ctx context.Context, task NotifyNewBookTask) error {
		if notifier == nil {
			return fmt.Errorf("notifier not configured")
		}

		count, err := notifier.NotifyNewBook(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("notify new book %d: %w", task.BookID, err)
		}

		log.Printf("[TASK] New book %d announced to %d subscriber(s)", task.BookID, count)
		return nil
	}
}

// NewNotifyNewBookQueue creates a backlite queue for new-book notifications.
func NewNotifyNewBookQueue(notifier *notify.Service) backlite.Queue {
	return backlite.NewQueue(NotifyNewBookProcessor(notifier))
}
