package service

import (
	"context"
	"time"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
	log "github.com/sirupsen/logrus"
)

const defaultRetentionInterval = 6 * time.Hour

// RetentionCleaner periodically soft deletes call logs that are older than
// their API's logging.retentionPeriod.
type RetentionCleaner struct {
	apis     *repository.APIRepository
	logs     *repository.CallLogRepository
	interval time.Duration
	now      func() time.Time
}

func NewRetentionCleaner(apis *repository.APIRepository, logs *repository.CallLogRepository, interval time.Duration) *RetentionCleaner {
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	return &RetentionCleaner{
		apis:     apis,
		logs:     logs,
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the cleanup loop in a background goroutine
func (c *RetentionCleaner) Start(ctx context.Context) {
	go c.run(ctx)
	log.Infof("call log retention cleaner started (interval=%s)", c.interval)
}

func (c *RetentionCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.cleanupOnce(ctx)

		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Returns the number of call logs removed
func (c *RetentionCleaner) cleanupOnce(ctx context.Context) int64 {
	apis, err := c.apis.List(ctx)
	if err != nil {
		log.WithError(err).Warn("retention cleaner: failed to list apis")
		return 0
	}

	var total int64
	for _, api := range apis {
		if ctx.Err() != nil {
			return total
		}

		policy := api.Settings.Data().Logging
		if policy.Status != models.StatusEnabled || policy.RetentionPeriod <= 0 {
			continue
		}

		cutoff := c.now().UTC().AddDate(0, 0, -policy.RetentionPeriod)
		n, err := c.logs.DeleteOlderThan(ctx, api.ID, cutoff)
		if err != nil {
			log.WithError(err).WithField("api_id", api.ID).Warn("retention cleaner: delete failed")
			continue
		}
		if n > 0 {
			log.WithFields(log.Fields{
				"api_id":         api.ID,
				"deleted":        n,
				"cutoff":         cutoff.Format(time.RFC3339),
				"retention_days": policy.RetentionPeriod,
			}).Info("retention cleaner: removed call logs")
		}
		total += n
	}
	return total
}
