package match

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/models"
)

// Sweeper periodically cancels challenges that reached their scheduled
// start without an opponent, driving each through the same refund path a
// creator-initiated cancel uses. It keeps no in-memory work queue: each
// run re-derives its targets from persisted rows, and a cancelled match
// never matches the selection predicate again, so repeated runs are
// idempotent by construction.
type Sweeper struct {
	db    *sqlx.DB
	cfg   *config.Config
	sched gocron.Scheduler
}

func NewSweeper(db *sqlx.DB, cfg *config.Config) *Sweeper {
	return &Sweeper{db: db, cfg: cfg}
}

// Start schedules the recurring sweep
func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create sweep scheduler: %w", err)
	}
	s.sched = sched

	interval := time.Duration(s.cfg.SweepIntervalMinutes) * time.Minute
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.Sweep(time.Now()) }),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}

	sched.Start()
	log.Printf("[SWEEP] Challenge expiry sweeper started (every %v)", interval)
	return nil
}

// Stop shuts the scheduler down
func (s *Sweeper) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

// Sweep runs one pass: expired unaccepted challenges get cancelled with a
// full escrow refund, tagged as system-initiated
func (s *Sweeper) Sweep(now time.Time) {
	var ids []int
	err := s.db.Select(&ids, `
		SELECT id FROM matches
		WHERE is_challenge = TRUE
		  AND status NOT IN ($1, $2)
		  AND scheduled_at < $3
		  AND filled_slots <= 1
		ORDER BY scheduled_at
	`, models.StatusCompleted, models.StatusCancelled, now)
	if err != nil {
		log.Printf("[SWEEP] Failed to select expired challenges: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	log.Printf("[SWEEP] Expiring %d unaccepted challenges", len(ids))
	for _, id := range ids {
		if err := Cancel(s.db, id, "challenge expired without opponent", "system", true); err != nil {
			// Surfaced for operator retry; the match is already
			// cancelled, so the next sweep will not touch it
			log.Printf("[SWEEP] Failed to expire challenge %d: %v", id, err)
		}
	}
}
