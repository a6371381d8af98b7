package scheduler

import (
	"time"

	"github.com/ikkim/candle-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// CartPurger deletes carts whose retention window has passed.
// service.CartService satisfies it.
type CartPurger interface {
	PurgeExpired(now time.Time) (int64, error)
}

// CartCleanupScheduler periodically removes abandoned guest and user carts.
type CartCleanupScheduler struct {
	cron  *cron.Cron
	carts CartPurger
	spec  string
	now   func() time.Time
	entry cron.EntryID
}

// NewCartCleanupScheduler builds a scheduler running on spec, a standard cron
// expression or descriptor such as "@hourly".
func NewCartCleanupScheduler(carts CartPurger, spec string) *CartCleanupScheduler {
	return &CartCleanupScheduler{
		cron:  cron.New(),
		carts: carts,
		spec:  spec,
		now:   time.Now,
	}
}

// Start registers the purge job and starts the cron runner.
func (s *CartCleanupScheduler) Start() error {
	entry, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce()
	})
	if err != nil {
		logger.Error("Failed to add cron job for cart cleanup", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}
	s.entry = entry

	s.cron.Start()
	logger.Info("Cart cleanup scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// RunOnce purges expired carts immediately and returns how many were removed.
func (s *CartCleanupScheduler) RunOnce() int64 {
	deleted, err := s.carts.PurgeExpired(s.now())
	if err != nil {
		logger.Error("Scheduled cart cleanup failed", err, nil)
		return 0
	}
	if deleted > 0 {
		logger.Info("Expired carts purged", map[string]interface{}{
			"deleted": deleted,
		})
	}
	return deleted
}

// Stop waits for a running purge to finish.
func (s *CartCleanupScheduler) Stop() {
	logger.Info("Stopping cart cleanup scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Cart cleanup scheduler stopped", nil)
}
