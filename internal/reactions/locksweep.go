package reactions

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LPredmore/lh-ehr/pkg/config"
	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/monitoring"
)

// NoteLocker locks every signed, unlocked note whose signature is older than
// the cutoff, writing a system-attributed audit record per note in the same
// transaction. It returns how many notes were locked.
type NoteLocker interface {
	LockOverdueNotes(ctx context.Context, signedBefore time.Time) (int, error)
}

// LockSweeper periodically locks signed notes past the edit window. Locking
// happens on a schedule rather than lazily at read time, so a note's locked
// state is the same for every reader at any instant.
type LockSweeper struct {
	cron      *cron.Cron
	locker    NoteLocker
	schedule  string
	lockAfter time.Duration
	logger    *logger.Logger
}

// NewLockSweeper creates a sweeper from config.
func NewLockSweeper(cfg *config.LockSweepConfig, locker NoteLocker, log *logger.Logger) *LockSweeper {
	return &LockSweeper{
		cron:      cron.New(),
		locker:    locker,
		schedule:  cfg.Schedule,
		lockAfter: time.Duration(cfg.LockAfterDays) * 24 * time.Hour,
		logger:    log,
	}
}

// Start registers the cron entry and begins sweeping.
func (s *LockSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.WithError(err).Error("Note lock sweep failed")
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithFields(map[string]interface{}{
		"schedule":        s.schedule,
		"lock_after_days": int(s.lockAfter.Hours() / 24),
	}).Info("Note lock sweep started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *LockSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs a single sweep.
func (s *LockSweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.lockAfter)
	locked, err := s.locker.LockOverdueNotes(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if locked > 0 {
		monitoring.RecordNotesLocked(locked)
		s.logger.WithFields(map[string]interface{}{
			"locked": locked,
			"cutoff": cutoff,
		}).Info("Locked signed notes past edit window")
	}
	return locked, nil
}
