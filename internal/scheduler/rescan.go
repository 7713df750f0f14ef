// Package scheduler keeps a long-running process's library current by
// rescanning the library root on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/epubshelf/epubshelf/internal/scan"
)

// RescanScheduler runs periodic library scans.
type RescanScheduler struct {
	scanner     *scan.Scanner
	libraryPath string
	schedule    string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.Mutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewRescanScheduler creates a new scheduler instance.
func NewRescanScheduler(scanner *scan.Scanner, libraryPath, schedule string) *RescanScheduler {
	return &RescanScheduler{
		scanner:     scanner,
		libraryPath: libraryPath,
		schedule:    schedule,
		cron:        cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *RescanScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	var runCtx context.Context
	runCtx, s.cancelFunc = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runScan(runCtx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule rescan job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	log.Printf("Rescan scheduler: started with schedule '%s'", s.schedule)

	return nil
}

// Stop halts the scheduler. A scan already running is allowed to finish
// its in-flight commit.
func (s *RescanScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.cron.Remove(s.entryID)
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	s.isRunning = false
	log.Printf("Rescan scheduler: stopped")
}

func (s *RescanScheduler) runScan(ctx context.Context) {
	log.Printf("Rescan scheduler: scanning %s", s.libraryPath)

	summary, err := s.scanner.Scan(ctx, s.libraryPath)
	if err != nil {
		log.Printf("Rescan scheduler: scan failed: %v", err)
		return
	}

	log.Printf("Rescan scheduler: imported %d, unchanged %d, failed %d, orphaned %d",
		summary.Imported, summary.Unchanged, len(summary.Failures), len(summary.Orphaned))
}
