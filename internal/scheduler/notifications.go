package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/avolkov/biblio/internal/notify"
)

// NotificationScheduler periodically scans for pending reservation
// notifications and loans approaching their due date.
type NotificationScheduler struct {
	notifier *notify.Service
	schedule string
	enabled  bool

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isWorking  bool
	cancelFunc context.CancelFunc
}

// NewNotificationScheduler creates a new scheduler instance.
func NewNotificationScheduler(notifier *notify.Service, schedule string, enabled bool) *NotificationScheduler {
	return &NotificationScheduler{
		notifier: notifier,
		schedule: schedule,
		enabled:  enabled,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if notification scanning is enabled.
func (s *NotificationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.enabled {
		log.Printf("Notification scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runScan()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule notification scan: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Notification scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *NotificationScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cancelFunc = nil
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()

	log.Printf("Notification scheduler: stopped")
}

// RunNow triggers an immediate scan.
func (s *NotificationScheduler) RunNow() error {
	go s.runScan()
	return nil
}

// IsRunning returns whether the scheduler is active.
func (s *NotificationScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *NotificationScheduler) runScan() {
	s.mu.Lock()
	if s.isWorking {
		s.mu.Unlock()
		log.Printf("Notification scan: skipped (already running)")
		return
	}
	s.isWorking = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isWorking = false
		s.mu.Unlock()
	}()

	log.Printf("Notification scan: starting")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	reserved, err := s.notifier.ScanReservations(ctx)
	if err != nil {
		log.Printf("Notification scan: reservation pass failed: %v", err)
	}

	dueSoon, err := s.notifier.NotifyDueSoon(ctx)
	if err != nil {
		log.Printf("Notification scan: due-soon pass failed: %v", err)
	}

	log.Printf("Notification scan: sent %d reservation and %d due-soon notification(s) in %v",
		reserved, dueSoon, time.Since(startTime).Round(time.Millisecond))
}
