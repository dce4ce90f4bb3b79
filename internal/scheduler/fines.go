package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/avolkov/biblio/internal/circulation"
)

// FineScheduler manages periodic recalculation of fines on overdue loans.
type FineScheduler struct {
	circulation *circulation.Service
	schedule    string
	enabled     bool

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isWorking  bool
	cancelFunc context.CancelFunc
}

// NewFineScheduler creates a new scheduler instance.
func NewFineScheduler(svc *circulation.Service, schedule string, enabled bool) *FineScheduler {
	return &FineScheduler{
		circulation: svc,
		schedule:    schedule,
		enabled:     enabled,
		cron:        cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if fine recalculation is enabled.
func (s *FineScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.enabled {
		log.Printf("Fine scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runRecalculation()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule fine recalculation: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Fine scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *FineScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cancelFunc = nil
	s.mu.Unlock()

	// Stop accepting new jobs and wait for running jobs to complete.
	// The wait happens outside the lock so a finishing job can flip its
	// isWorking flag.
	ctx := s.cron.Stop()
	<-ctx.Done()

	log.Printf("Fine scheduler: stopped")
}

// RunNow triggers an immediate recalculation.
func (s *FineScheduler) RunNow() error {
	go s.runRecalculation()
	return nil
}

// IsRunning returns whether the scheduler is active.
func (s *FineScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next recalculation will occur.
func (s *FineScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *FineScheduler) runRecalculation() {
	s.mu.Lock()
	if s.isWorking {
		s.mu.Unlock()
		log.Printf("Fine recalculation: skipped (already running)")
		return
	}
	s.isWorking = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isWorking = false
		s.mu.Unlock()
	}()

	log.Printf("Fine recalculation: starting")
	startTime := time.Now()

	updated, err := s.circulation.RecalculateFines()
	if err != nil {
		log.Printf("Fine recalculation: failed: %v", err)
		return
	}

	log.Printf("Fine recalculation: updated %d loan(s) in %v",
		updated, time.Since(startTime).Round(time.Millisecond))
}
