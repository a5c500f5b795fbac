// Package scheduler implements background task scheduling for the ragnet
// gateway, including daily journal pruning and periodic statistics logging.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ragnet-project/ragnet/internal/config"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/journal"
)

// Scheduler manages periodic background tasks.
type Scheduler struct {
	cfg      *config.Config
	eventBus *events.Bus
	journal  *journal.Journal
}

// NewScheduler creates a new task scheduler. The journal may be nil when
// the event journal is disabled; pruning and stats are skipped then.
func NewScheduler(cfg *config.Config, eventBus *events.Bus, jnl *journal.Journal) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		eventBus: eventBus,
		journal:  jnl,
	}
}

// Start begins running all scheduled tasks.
func (s *Scheduler) Start(ctx context.Context) {
	log.Info().Msg("scheduler started")

	// Journal pruner - runs at configured time daily
	if s.journal != nil && s.cfg.GetApplicationData().Journal.RetentionDays > 0 {
		go s.runJournalPrunerLoop(ctx)
	}

	// Stats collection - runs daily
	if s.journal != nil {
		go s.runStatsCollectionLoop(ctx)
	}

	// Block until context is cancelled
	<-ctx.Done()
	log.Info().Msg("scheduler stopped")
}

// runJournalPrunerLoop runs the journal pruner at the configured time.
func (s *Scheduler) runJournalPrunerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		nextRun := s.calculateNextPruneTime()
		sleepDuration := time.Until(nextRun)

		if sleepDuration <= 0 {
			sleepDuration = 24 * time.Hour
		}

		log.Info().
			Time("next_run", nextRun).
			Dur("sleep", sleepDuration).
			Msg("journal pruner scheduled")

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepDuration):
			s.runJournalPruner()
		}
	}
}

// runJournalPruner removes journal entries older than the retention window.
func (s *Scheduler) runJournalPruner() {
	days := s.cfg.GetApplicationData().Journal.RetentionDays
	retention := time.Duration(days) * 24 * time.Hour

	log.Info().
		Int("retention_days", days).
		Msg("running journal pruner")

	removed, err := s.journal.Prune(retention)
	if err != nil {
		log.Warn().Err(err).Msg("journal pruner encountered errors")
		return
	}

	log.Info().
		Int64("removed_entries", removed).
		Msg("journal pruner completed")
}

// runStatsCollectionLoop logs journal statistics daily.
func (s *Scheduler) runStatsCollectionLoop(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collectStats()
		}
	}
}

// collectStats gathers and logs daily journal statistics.
func (s *Scheduler) collectStats() {
	total, err := s.journal.Count()
	if err != nil {
		log.Warn().Err(err).Msg("stats collection failed")
		return
	}

	counts, err := s.journal.Stats()
	if err != nil {
		log.Warn().Err(err).Msg("stats collection failed")
		return
	}

	top := "none"
	if len(counts) > 0 {
		top = fmt.Sprintf("%s (%d)", counts[0].Type, counts[0].Count)
	}

	log.Info().
		Int64("journal_entries", total).
		Str("top_event", top).
		Msg("daily stats collected")
}

// calculateNextPruneTime returns the next time the pruner should run.
func (s *Scheduler) calculateNextPruneTime() time.Time {
	pruneTime := s.cfg.GetApplicationData().Journal.PruneTime
	parts := strings.Split(pruneTime, ":")

	hour, minute := 4, 0 // Default: 4:00 AM
	if len(parts) >= 2 {
		fmt.Sscanf(parts[0], "%d", &hour)
		fmt.Sscanf(parts[1], "%d", &minute)
	}

	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	if next.Before(now) {
		next = next.Add(24 * time.Hour)
	}

	return next
}
