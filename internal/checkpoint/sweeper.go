package checkpoint

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the expiry sweep at the top of every hour
const DefaultSweepSchedule = "0 * * * *"

// Sweeper periodically removes expired checkpoints
type Sweeper struct {
	store    *Store
	logger   *slog.Logger
	cron     *cron.Cron
	schedule string
	entryID  cron.EntryID
	removed  atomic.Int64
}

// NewSweeper validates the schedule (standard 5-field cron) and prepares
// the sweeper. It does not start it.
func NewSweeper(store *Store, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	s := &Sweeper{
		store:    store,
		logger:   logger.With("component", "sweeper"),
		cron:     c,
		schedule: schedule,
	}

	id, err := c.AddFunc(schedule, func() { s.Sweep() })
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.entryID = id
	return s, nil
}

// Sweep runs one cleanup pass immediately
func (s *Sweeper) Sweep() int {
	n := s.store.CleanupExpired()
	s.removed.Add(int64(n))
	s.logger.Debug("Sweep finished", "removed", n)
	return n
}

// Removed returns the total number of checkpoints removed by this sweeper
func (s *Sweeper) Removed() int {
	return int(s.removed.Load())
}

// Start begins running the schedule in the background
func (s *Sweeper) Start() {
	s.logger.Info("Starting checkpoint sweeper", "schedule", s.schedule, "dir", s.store.Dir())
	s.cron.Start()
}

// Stop stops the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Checkpoint sweeper stopped", "removed", s.Removed())
}

// Next returns when the next sweep is scheduled, zero if not started
func (s *Sweeper) Next() string {
	e := s.cron.Entry(s.entryID)
	if e.Next.IsZero() {
		return ""
	}
	return e.Next.Format("2006-01-02 15:04:05")
}
