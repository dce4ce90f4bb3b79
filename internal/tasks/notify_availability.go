package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/avolkov/biblio/internal/notify"
)

// NotifyAvailabilityTask notifies pending reservation holders that a book
// has copies available again.
type NotifyAvailabilityTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for availability notifications.
func (t NotifyAvailabilityTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "notify_availability",
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

// NotifyAvailabilityProcessor creates a processor function for NotifyAvailabilityTask.
func NotifyAvailabilityProcessor(notifier *notify.Service) backlite.QueueProcessor[NotifyAvailabilityTask] {
	return func(ctx context.Context, task NotifyAvailabilityTask) error {
		if notifier == nil {
			return fmt.Errorf("notifier not configured")
		}

		count, err := notifier.NotifyAvailability(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("notify availability for book %d: %w", task.BookID, err)
		}

		if count > 0 {
			log.Printf("[TASK] Book %d available again: notified %d reservation holder(s)", task.BookID, count)
		}
		return nil
	}
}

// NewNotifyAvailabilityQueue creates a backlite queue for availability notifications.
func NewNotifyAvailabilityQueue(notifier *notify.Service) backlite.Queue {
	return backlite.NewQueue(NotifyAvailabilityProcessor(notifier))
}
